package script

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by scripts.
// It is satisfied by logging.Logger and *slog.Logger.
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

// Behavior is the script-specific part of a Script. Setup registers the
// script's bindings through the Context.
type Behavior interface {
	Setup(ctx *Context) error
}

// Terminator is implemented by behaviours that release resources on Terminate.
type Terminator interface {
	Teardown(ctx *Context)
}

// State is the lifecycle state of a Script.
type State uint8

// Lifecycle states. Terminated is terminal.
const (
	StateUninitialized State = iota
	StateInitialized
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Script is a behaviour bound to one domain object through its View.
//
// The script owns its binding maps and holds its View; the View in turn
// refers to the owner weakly. After Initialize the maps are read-only and
// may be used from many goroutines: property access is serialised per
// script, method calls are not.
type Script struct {
	behavior Behavior
	ctx      *Context
	logger   Logger

	lifecycle sync.Mutex
	state     State
}

// New creates an uninitialized script. Call Initialize exactly once.
func New(view View, source Source, behavior Behavior) (*Script, error) {
	switch {
	case view == nil:
		return nil, ErrNoView
	case source == nil:
		return nil, ErrNoSource
	case behavior == nil:
		return nil, ErrNoBehavior
	}
	return &Script{
		behavior: behavior,
		ctx:      newContext(view, source),
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the script.
func (s *Script) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// View returns the script's view of its owner.
func (s *Script) View() View { return s.ctx.view }

// Source returns the source that created the script.
func (s *Script) Source() Source { return s.ctx.source }

// Behavior returns the script-specific implementation.
func (s *Script) Behavior() Behavior { return s.behavior }

// State returns the lifecycle state.
func (s *Script) State() State {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.state
}

// Initialize runs the behaviour's Setup and moves the script to Initialized.
// It returns false, and leaves the script uninitialized with empty maps,
// when called out of order or when Setup fails.
func (s *Script) Initialize() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.state != StateUninitialized {
		return false
	}
	if err := s.runSetup(); err != nil {
		s.ctx.clearAll()
		s.logger.Error("script setup failed",
			"source", s.ctx.source.Name(),
			"error", err,
		)
		return false
	}
	s.state = StateInitialized
	return true
}

func (s *Script) runSetup() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrSetupFailed, r)
		}
	}()
	if setupErr := s.behavior.Setup(s.ctx); setupErr != nil {
		return fmt.Errorf("%w: %w", ErrSetupFailed, setupErr)
	}
	return nil
}

// Terminate runs the behaviour's Teardown, drops every binding and moves the
// script to Terminated. It returns false unless the script is Initialized.
func (s *Script) Terminate() bool {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.state != StateInitialized {
		return false
	}
	if t, ok := s.behavior.(Terminator); ok {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("script teardown panic recovered",
						"source", s.ctx.source.Name(),
						"panic", r,
					)
				}
			}()
			t.Teardown(s.ctx)
		}()
	}
	s.ctx.clearAll()
	s.state = StateTerminated
	return true
}

// Properties returns the registered property names, sorted.
func (s *Script) Properties() []string {
	p, _, _ := s.ctx.names()
	return p
}

// Methods returns the registered method names, sorted.
func (s *Script) Methods() []string {
	_, m, _ := s.ctx.names()
	return m
}

// Events returns the registered event names, sorted.
func (s *Script) Events() []string {
	_, _, e := s.ctx.names()
	return e
}

// Property returns the named property binding.
func (s *Script) Property(name string) (*Property, bool) {
	return s.ctx.property(name)
}

// Method returns the named method binding.
func (s *Script) Method(name string) (*Method, bool) {
	return s.ctx.method(name)
}

// Event returns the named event.
func (s *Script) Event(name string) (*Event, bool) {
	return s.ctx.event(name)
}

// GetProperty returns the value of the named property.
func (s *Script) GetProperty(name string) (Value, bool) {
	p, ok := s.ctx.property(name)
	if !ok {
		return Value{}, false
	}
	s.ctx.state.Lock()
	defer s.ctx.state.Unlock()
	return p.Get(), true
}

// SetProperty sets the named property. It returns false for unknown names
// and for values the property rejects.
func (s *Script) SetProperty(name string, v Value) bool {
	p, ok := s.ctx.property(name)
	if !ok {
		return false
	}
	s.ctx.state.Lock()
	defer s.ctx.state.Unlock()
	return p.Set(v)
}

// Invoke calls the named method. It returns false for unknown names.
func (s *Script) Invoke(method string, param Value) bool {
	m, ok := s.ctx.method(method)
	if !ok {
		return false
	}
	return m.Invoke(param)
}

// BindEvent connects the named event to method on target.
// It returns nil for unknown events.
func (s *Script) BindEvent(event string, target WeakView, method string) *EventConnection {
	e, ok := s.ctx.event(event)
	if !ok {
		return nil
	}
	return e.Bind(target, method)
}

// RaiseEvent invokes the named event. It returns the number of targets
// reached, or -1 for unknown events.
func (s *Script) RaiseEvent(event string, param Value) int {
	e, ok := s.ctx.event(event)
	if !ok {
		return -1
	}
	return e.Invoke(param)
}

// GetProperties returns the values of every property whose flags intersect filter.
func (s *Script) GetProperties(filter Flags) map[string]Value {
	props := s.ctx.propertySnapshot(filter)

	s.ctx.state.Lock()
	defer s.ctx.state.Unlock()

	out := make(map[string]Value, len(props))
	for name, p := range props {
		out[name] = p.Get()
	}
	return out
}

// JSONGetProperties encodes every property whose flags intersect filter as a
// JSON object keyed by property name.
func (s *Script) JSONGetProperties(filter Flags) (json.RawMessage, error) {
	data, err := json.Marshal(s.GetProperties(filter))
	if err != nil {
		return nil, fmt.Errorf("encoding properties: %w", err)
	}
	return data, nil
}

// JSONSetProperties applies every key of the input object that names a
// property whose flags intersect filter.
//
// It returns the bitwise OR of the flags of the properties that actually
// changed. Unknown keys, kind mismatches, read-only properties and values
// equal to the current one contribute nothing. Callers use the Store bit to
// decide whether to persist and the InitiateUpdate bit to decide whether to
// broadcast.
func (s *Script) JSONSetProperties(input []byte, filter Flags) (Flags, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil || fields == nil {
		return FlagsNone, ErrInvalidJSON
	}

	props := s.ctx.propertySnapshot(filter)

	s.ctx.state.Lock()
	defer s.ctx.state.Unlock()

	applied := FlagsNone
	for name, raw := range fields {
		p, ok := props[name]
		if !ok {
			continue
		}
		v := ParseValue(raw, p.Kind())
		if v.IsUnknown() || v.Equal(p.Get()) {
			continue
		}
		if p.Set(v) {
			applied |= p.Flags()
		}
	}
	return applied, nil
}

// JSONGetAttributes encodes the static attributes as a JSON object.
func (s *Script) JSONGetAttributes() (json.RawMessage, error) {
	data, err := json.Marshal(s.ctx.attributeSnapshot())
	if err != nil {
		return nil, fmt.Errorf("encoding attributes: %w", err)
	}
	return data, nil
}
