package bench

import "errors"

// ErrInterrupted marks a run aborted by context cancellation while
// dispatching, awaiting a round barrier, or cooling down.
var ErrInterrupted = errors.New("run interrupted")

// ErrRoundTimeout marks a round whose in-flight requests did not all
// complete within the configured round deadline.
var ErrRoundTimeout = errors.New("round deadline exceeded")

// ConfigError reports an unusable run configuration, detected before
// any round dispatches.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid run configuration: " + e.Reason
}
