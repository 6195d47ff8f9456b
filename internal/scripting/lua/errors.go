package lua

import "errors"

// Domain errors for the Lua provider.
var (
	// ErrCompile is returned when source content is not valid Lua.
	ErrCompile = errors.New("lua: compile failed")

	// ErrNoContent is returned when a source has neither a file nor content.
	ErrNoContent = errors.New("lua: no source content")

	// ErrSourceConsumed is returned when a static source was already issued.
	ErrSourceConsumed = errors.New("lua: script source already issued")

	// ErrNoSetup is returned when a script defines no setup function.
	ErrNoSetup = errors.New("lua: setup function not defined")

	// ErrStateClosed is returned when a terminated script is called.
	ErrStateClosed = errors.New("lua: state is closed")
)
