package script

import "weak"

// ViewType identifies the domain type behind a View.
type ViewType uint8

// Domain types a View can front.
const (
	ViewHome ViewType = iota
	ViewRoom
	ViewDevice
	ViewService
)

// String returns the domain type name.
func (t ViewType) String() string {
	switch t {
	case ViewHome:
		return "home"
	case ViewRoom:
		return "room"
	case ViewDevice:
		return "device"
	case ViewService:
		return "service"
	default:
		return "unknown"
	}
}

// Support returns the source support bit required to bind to this type.
// Home has no support bit.
func (t ViewType) Support() Support {
	switch t {
	case ViewRoom:
		return RoomSupport
	case ViewDevice:
		return DeviceSupport
	case ViewService:
		return ServiceSupport
	default:
		return SupportNone
	}
}

// View is the capability surface a script uses to reach its owning domain
// object without owning it.
//
// Implementations hold only a non-owning reference to the owner and resolve
// it on every call. When the owner is gone: ID returns 0, Name returns "",
// SetName, Publish and PublishState do nothing and Invoke returns false.
type View interface {
	// ID returns the owner's identifier.
	ID() uint32

	// Type returns the owner's domain type.
	Type() ViewType

	// Name returns the owner's display name.
	Name() string

	// SetName renames the owner.
	SetName(name string)

	// Invoke calls a method on the owner's script.
	Invoke(method string, param Value) bool

	// Publish announces that the owner changed (persist and broadcast).
	Publish()

	// PublishState broadcasts the owner's current visible state.
	PublishState()
}

// WeakView is a non-owning handle to a View.
type WeakView interface {
	// Resolve returns the view, or nil once it has been collected.
	Resolve() View
}

// WeakRef returns a weak handle to a pointer-backed view. Holding the handle
// never keeps the view alive.
func WeakRef[T any, P interface {
	*T
	View
}](view P) WeakView {
	return weakView[T, P]{ptr: weak.Make((*T)(view))}
}

type weakView[T any, P interface {
	*T
	View
}] struct {
	ptr weak.Pointer[T]
}

func (w weakView[T, P]) Resolve() View {
	target := w.ptr.Value()
	if target == nil {
		return nil
	}
	return P(target)
}
