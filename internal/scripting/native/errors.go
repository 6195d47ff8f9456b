package native

import "errors"

// Domain errors for the native provider.
var (
	// ErrUnknownSource is returned when a source name was never registered.
	ErrUnknownSource = errors.New("native: unknown script source")

	// ErrSourceConsumed is returned when a static source was already issued.
	ErrSourceConsumed = errors.New("native: script source already issued")

	// ErrMissingSymbol is returned when a module lacks a required export.
	ErrMissingSymbol = errors.New("native: symbol not found")

	// ErrSymbolType is returned when an export has an unexpected signature.
	ErrSymbolType = errors.New("native: symbol has wrong type")

	// ErrInvalidLibrary is returned when library metadata is incomplete.
	ErrInvalidLibrary = errors.New("native: invalid library information")

	// ErrPluginPanic is returned when plugin code panics.
	ErrPluginPanic = errors.New("native: plugin panicked")

	// ErrNilScript is returned when a factory returns neither script nor error.
	ErrNilScript = errors.New("native: factory returned no script")
)
