package native

import (
	"fmt"
	"plugin"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Module is a loaded native library.
type Module interface {
	// Lookup returns the exported symbol with the given name.
	Lookup(symbol string) (any, error)
}

// Opener loads the module at path.
type Opener func(path string) (Module, error)

// pluginModule adapts *plugin.Plugin to Module.
type pluginModule struct {
	p *plugin.Plugin
}

func (m pluginModule) Lookup(symbol string) (any, error) {
	sym, err := m.p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, symbol)
	}
	return sym, nil
}

// OpenPlugin opens a Go plugin built with -buildmode=plugin.
// Go plugins cannot be unloaded; the module stays mapped for the process
// lifetime whether or not it is used.
func OpenPlugin(path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plugin %s: %w", path, err)
	}
	return pluginModule{p: p}, nil
}

// infoFunc converts a looked-up metadata symbol to its function form.
// Exported functions come back as the function value; exported variables
// come back as pointers.
func infoFunc(sym any) (script.LibraryInformationFunc, bool) {
	switch fn := sym.(type) {
	case func() script.LibraryInformation:
		return fn, fn != nil
	case *func() script.LibraryInformation:
		if fn == nil || *fn == nil {
			return nil, false
		}
		return *fn, true
	default:
		return nil, false
	}
}

// factoryFunc converts a looked-up factory symbol to a Factory.
func factoryFunc(sym any) (script.Factory, bool) {
	switch fn := sym.(type) {
	case func(script.View, script.Source) (*script.Script, error):
		return fn, fn != nil
	case script.Factory:
		return fn, fn != nil
	case *func(script.View, script.Source) (*script.Script, error):
		if fn == nil || *fn == nil {
			return nil, false
		}
		return *fn, true
	case *script.Factory:
		if fn == nil || *fn == nil {
			return nil, false
		}
		return *fn, true
	default:
		return nil, false
	}
}
