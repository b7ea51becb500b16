package techsim

import (
	"errors"
	"fmt"
)

var (
	ErrNotReady     = errors.New("simulation is not ready")
	ErrAlreadyReady = errors.New("simulation is already readied")
	ErrComplete     = errors.New("simulation is complete")
	ErrNoCycle      = errors.New("no eligible cycle type")
)

// ConfigError reports a missing or invalid field in a configuration document,
// or a library state that makes a round impossible to compute.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// InvariantError reports an event whose rules cannot be applied to the chosen
// participants, such as using charges the participant does not have. It points
// at a defect in the events document.
type InvariantError struct {
	Event    string
	Position int
	Message  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("event %q position %d: %s", e.Event, e.Position+1, e.Message)
}
