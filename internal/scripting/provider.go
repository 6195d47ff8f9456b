package scripting

import "github.com/nerrad567/gray-logic-home/pkg/script"

// Provider is a script backend (native plugins, Lua, ...).
//
// A provider exposes a set of static source names it can instantiate. A
// provider may also accept arbitrary names when content is supplied
// (interpreted backends).
type Provider interface {
	// Name returns the provider identifier, unique per Manager.
	Name() string

	// StaticSources returns the names this provider can still issue.
	StaticSources() []string

	// CreateSource builds a source with the given host-assigned id.
	CreateSource(id uint32, name, content string) (script.Source, error)
}

// Logger defines the logging interface used by the scripting layer.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
