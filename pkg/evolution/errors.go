package evolution

import "errors"

// ErrUnknownPromptVersion is returned by UpdatePromptPerformance when
// version_id has no record for the given agent_id.
var ErrUnknownPromptVersion = errors.New("evolution: unknown prompt version")
