package config

import "os"

// ExpandEnv replaces ${VAR} / $VAR references in raw with values from the
// process environment, leaving unknown references as empty strings — the
// same behavior as os.Expand, exposed here so config loading has one place
// that performs environment substitution on raw YAML bytes.
func ExpandEnv(raw string) string {
	return os.Expand(raw, os.Getenv)
}
