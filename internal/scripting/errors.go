package scripting

import "errors"

// Domain errors for the scripting package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, scripting.ErrSourceNotFound) {
//	    // handle missing source
//	}
var (
	// ErrProviderNotFound is returned when a provider name is not registered.
	ErrProviderNotFound = errors.New("scripting: provider not found")

	// ErrProviderExists is returned when adding a provider whose name is taken.
	ErrProviderExists = errors.New("scripting: provider already registered")

	// ErrSourceNotFound is returned when a source ID does not exist.
	ErrSourceNotFound = errors.New("scripting: source not found")

	// ErrSourceExists is returned when a source ID is already in use.
	ErrSourceExists = errors.New("scripting: source already exists")

	// ErrUnsupportedType is returned when a source cannot bind to the
	// requested domain type.
	ErrUnsupportedType = errors.New("scripting: source does not support domain type")

	// ErrScriptCreation is returned when a source fails to produce a script.
	ErrScriptCreation = errors.New("scripting: script creation failed")

	// ErrNoRepository is returned when a persisting operation runs before
	// Bootstrap has attached a source repository.
	ErrNoRepository = errors.New("scripting: no source repository")
)
