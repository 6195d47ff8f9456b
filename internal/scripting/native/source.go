package native

import (
	"fmt"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Source is a compiled script source backed by a native library.
// It keeps its library's module referenced for as long as it exists.
type Source struct {
	script.SourceBase
	displayName string
	lib         *library
	factory     script.Factory
	logger      Logger
}

func newSource(id uint32, name string, e *entry, logger Logger) *Source {
	return &Source{
		SourceBase:  script.NewSourceBase(id, name, e.script.Flags),
		displayName: e.script.DisplayName,
		lib:         e.lib,
		factory:     e.factory,
		logger:      logger,
	}
}

// DisplayName returns the human-readable script name.
func (s *Source) DisplayName() string { return s.displayName }

// Library returns the metadata of the library the source comes from.
func (s *Source) Library() script.LibraryInformation { return s.lib.info }

// Content returns "": native sources are compiled.
func (s *Source) Content() string { return "" }

// SetContent always fails with script.ErrReadOnlyContent.
func (s *Source) SetContent(string) error { return script.ErrReadOnlyContent }

// CreateScript calls the library factory with the view and this source.
// Factory panics and errors are logged and returned as errors.
func (s *Source) CreateScript(view script.View) (*script.Script, error) {
	sc, err := s.callFactory(view)
	if err != nil {
		s.logger.Error("native script factory failed",
			"source", s.Name(),
			"library", s.lib.info.LibraryName,
			"error", err,
		)
		return nil, err
	}
	return sc, nil
}

func (s *Source) callFactory(view script.View) (sc *script.Script, err error) {
	defer func() {
		if r := recover(); r != nil {
			sc = nil
			err = fmt.Errorf("%w: %s: %v", ErrPluginPanic, s.Name(), r)
		}
	}()
	sc, err = s.factory(view, s)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", s.Name(), err)
	}
	if sc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilScript, s.Name())
	}
	return sc, nil
}
