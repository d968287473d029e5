package poolmaker

import "errors"

// ErrPoolInstantiationFailed is returned by InstantiatePool when any worker
// fails to instantiate; the whole pool is rejected atomically (spec §4.2).
var ErrPoolInstantiationFailed = errors.New("poolmaker: pool instantiation failed")
