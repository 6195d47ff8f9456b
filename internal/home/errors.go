package home

import "errors"

// Domain-specific errors for home entities.
// Use errors.Is() to check for these errors:
//
//	if errors.Is(err, home.ErrEntityNotFound) {
//	    // handle not found
//	}
var (
	// ErrEntityNotFound is returned when a room, device or service does not exist.
	ErrEntityNotFound = errors.New("home: entity not found")

	// ErrInvalidType is returned for a domain type that cannot hold entities.
	ErrInvalidType = errors.New("home: invalid entity type")

	// ErrInvalidName is returned when an entity name is empty.
	ErrInvalidName = errors.New("home: invalid entity name")

	// ErrRoomNotFound is returned when a device references a missing room.
	ErrRoomNotFound = errors.New("home: room not found")

	// ErrNoScripts is returned when a script is requested but no script
	// factory is configured.
	ErrNoScripts = errors.New("home: no script factory configured")

	// ErrScriptInit is returned when an attached script fails to initialise.
	ErrScriptInit = errors.New("home: script initialisation failed")

	// ErrNoScript is returned when an operation needs a script and the
	// entity has none.
	ErrNoScript = errors.New("home: entity has no script")

	// ErrInvalidTopic is returned for a malformed command topic.
	ErrInvalidTopic = errors.New("home: invalid command topic")
)
