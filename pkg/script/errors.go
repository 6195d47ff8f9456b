package script

import "errors"

// Domain errors for the script package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, script.ErrNoBehavior) {
//	    // factory returned an incomplete script
//	}
var (
	// ErrNoBehavior is returned when a script is constructed without a behaviour.
	ErrNoBehavior = errors.New("script: behaviour is required")

	// ErrNoView is returned when a script is constructed without a view.
	ErrNoView = errors.New("script: view is required")

	// ErrNoSource is returned when a script is constructed without a source.
	ErrNoSource = errors.New("script: source is required")

	// ErrReadOnlyContent is returned when SetContent is called on a compiled source.
	ErrReadOnlyContent = errors.New("script: source content is read-only")

	// ErrInvalidJSON is returned when property input is not a JSON object.
	ErrInvalidJSON = errors.New("script: input is not a JSON object")

	// ErrSetupFailed is returned when a behaviour's setup routine fails or panics.
	ErrSetupFailed = errors.New("script: setup failed")
)
