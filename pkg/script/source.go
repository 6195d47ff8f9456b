package script

// Source is a named template that produces Scripts for one backend.
type Source interface {
	// ID returns the source identifier assigned by the host.
	ID() uint32

	// Name returns the source name, unique within its provider.
	Name() string

	// Flags returns the domain types the source may bind to.
	Flags() Support

	// Content returns the source text. Compiled sources return "".
	Content() string

	// SetContent replaces the source text. Compiled sources return
	// ErrReadOnlyContent.
	SetContent(content string) error

	// CreateScript builds an uninitialized script bound to view.
	CreateScript(view View) (*Script, error)
}

// SourceBase carries the identity fields shared by Source implementations.
// Embed it and implement Content, SetContent and CreateScript.
type SourceBase struct {
	id    uint32
	name  string
	flags Support
}

// NewSourceBase returns the identity part of a source.
func NewSourceBase(id uint32, name string, flags Support) SourceBase {
	return SourceBase{id: id, name: name, flags: flags}
}

// ID returns the source identifier.
func (b SourceBase) ID() uint32 { return b.id }

// Name returns the source name.
func (b SourceBase) Name() string { return b.name }

// Flags returns the supported domain types.
func (b SourceBase) Flags() Support { return b.flags }
