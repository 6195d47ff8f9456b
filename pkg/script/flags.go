package script

import "strings"

// Flags describe how a property participates in the JSON protocol.
type Flags uint8

const (
	// Visible properties are projected to clients.
	Visible Flags = 1 << iota

	// Store properties are persisted by the database layer.
	Store

	// InitiateUpdate properties trigger a state broadcast when they change.
	InitiateUpdate

	// FlagsNone is the empty flag set.
	FlagsNone Flags = 0

	// FlagsAll matches every property.
	FlagsAll = Visible | Store | InitiateUpdate
)

// Has reports whether f shares at least one bit with other.
func (f Flags) Has(other Flags) bool {
	return f&other != 0
}

// String returns a "|" separated list of flag names.
func (f Flags) String() string {
	if f == FlagsNone {
		return "none"
	}
	var names []string
	if f&Visible != 0 {
		names = append(names, "visible")
	}
	if f&Store != 0 {
		names = append(names, "store")
	}
	if f&InitiateUpdate != 0 {
		names = append(names, "initiate_update")
	}
	return strings.Join(names, "|")
}

// ParseFlags converts flag names ("visible", "store", "initiate_update")
// into a flag set. Unknown names are ignored.
func ParseFlags(names ...string) Flags {
	var f Flags
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "visible":
			f |= Visible
		case "store":
			f |= Store
		case "initiate_update", "update":
			f |= InitiateUpdate
		case "all":
			f |= FlagsAll
		}
	}
	return f
}

// Support records which domain types a script source may bind to.
type Support uint8

const (
	// RoomSupport allows binding to rooms.
	RoomSupport Support = 1 << iota

	// DeviceSupport allows binding to devices.
	DeviceSupport

	// ServiceSupport allows binding to services.
	ServiceSupport

	// SupportNone binds to nothing.
	SupportNone Support = 0

	// SupportAll binds to every domain type.
	SupportAll = RoomSupport | DeviceSupport | ServiceSupport
)

// Has reports whether s shares at least one bit with other.
func (s Support) Has(other Support) bool {
	return s&other != 0
}

// String returns a "|" separated list of supported domain types.
func (s Support) String() string {
	if s == SupportNone {
		return "none"
	}
	var names []string
	if s&RoomSupport != 0 {
		names = append(names, "room")
	}
	if s&DeviceSupport != 0 {
		names = append(names, "device")
	}
	if s&ServiceSupport != 0 {
		names = append(names, "service")
	}
	return strings.Join(names, "|")
}

// ParseSupport converts domain type names ("room", "device", "service")
// into a support set. Unknown names are ignored.
func ParseSupport(names ...string) Support {
	var s Support
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "room":
			s |= RoomSupport
		case "device":
			s |= DeviceSupport
		case "service":
			s |= ServiceSupport
		case "all":
			s |= SupportAll
		}
	}
	return s
}
