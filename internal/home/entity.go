package home

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Entity is a room, device or service. Entities are owned by their Home;
// scripts reach them only through the entity's View.
type Entity struct {
	home *Home
	kind script.ViewType
	id   uint32
	view *entityView

	mu       sync.RWMutex
	name     string
	roomID   uint32
	sourceID uint32
	script   *script.Script
	saved    json.RawMessage // Store properties last loaded or persisted
}

func newEntity(h *Home, rec Record) *Entity {
	e := &Entity{
		home:     h,
		kind:     rec.Type,
		id:       rec.ID,
		name:     rec.Name,
		roomID:   rec.RoomID,
		sourceID: rec.SourceID,
		saved:    rec.Properties,
	}
	e.view = newEntityView(e)
	return e
}

// ID returns the entity identifier, unique per type.
func (e *Entity) ID() uint32 { return e.id }

// Type returns the entity's domain type.
func (e *Entity) Type() script.ViewType { return e.kind }

// View returns the script-facing view of the entity.
func (e *Entity) View() script.View { return e.view }

// WeakView returns a non-owning handle for event bindings.
func (e *Entity) WeakView() script.WeakView {
	return script.WeakRef(e.view)
}

// Name returns the display name.
func (e *Entity) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

// SetName renames the entity in memory. Publish persists it.
func (e *Entity) SetName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	e.mu.Lock()
	e.name = name
	e.mu.Unlock()
}

// RoomID returns the room of a device, or 0.
func (e *Entity) RoomID() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roomID
}

// SourceID returns the script source the entity runs, or 0.
func (e *Entity) SourceID() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sourceID
}

// Script returns the attached script, or nil.
func (e *Entity) Script() *script.Script {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.script
}

// Invoke calls a method on the attached script.
// Entities without a script report false.
func (e *Entity) Invoke(method string, param script.Value) bool {
	s := e.Script()
	if s == nil {
		return false
	}
	return s.Invoke(method, param)
}

// Publish persists the entity and broadcasts its configuration.
func (e *Entity) Publish() {
	e.home.publish(e)
}

// PublishState broadcasts the entity's visible state.
func (e *Entity) PublishState() {
	e.home.publishState(e)
}

// State returns the Visible properties of the attached script as JSON.
// Entities without a script report an empty object.
func (e *Entity) State() (json.RawMessage, error) {
	s := e.Script()
	if s == nil {
		return json.RawMessage(`{}`), nil
	}
	return s.JSONGetProperties(script.Visible)
}

// record captures the persisted form of the entity.
func (e *Entity) record() (Record, error) {
	e.mu.RLock()
	rec := Record{
		Type:       e.kind,
		ID:         e.id,
		Name:       e.name,
		RoomID:     e.roomID,
		SourceID:   e.sourceID,
		Properties: e.saved,
	}
	s := e.script
	e.mu.RUnlock()

	if s != nil {
		props, err := s.JSONGetProperties(script.Store)
		if err != nil {
			return Record{}, err
		}
		rec.Properties = props
	}
	if len(rec.Properties) == 0 {
		rec.Properties = json.RawMessage(`{}`)
	}
	return rec, nil
}

// Info is the configuration envelope of an entity.
type Info struct {
	ID       uint32      `json:"id"`
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	RoomID   uint32      `json:"room_id,omitempty"`
	SourceID uint32      `json:"script_source_id,omitempty"`
	Script   *ScriptInfo `json:"script,omitempty"`
}

// ScriptInfo describes the script attached to an entity.
type ScriptInfo struct {
	Source     string          `json:"source"`
	State      string          `json:"state"`
	Properties []string        `json:"properties"`
	Methods    []string        `json:"methods"`
	Events     []string        `json:"events"`
	Attributes json.RawMessage `json:"attributes"`
}

// Info returns the configuration envelope of the entity.
func (e *Entity) Info() Info {
	e.mu.RLock()
	info := Info{
		ID:       e.id,
		Type:     e.kind.String(),
		Name:     e.name,
		RoomID:   e.roomID,
		SourceID: e.sourceID,
	}
	s := e.script
	e.mu.RUnlock()

	if s != nil {
		attrs, err := s.JSONGetAttributes()
		if err != nil {
			attrs = json.RawMessage(`{}`)
		}
		info.Script = &ScriptInfo{
			Source:     s.Source().Name(),
			State:      s.State().String(),
			Properties: s.Properties(),
			Methods:    s.Methods(),
			Events:     s.Events(),
			Attributes: attrs,
		}
	}
	return info
}

// setScript swaps the attached script and returns the previous one.
func (e *Entity) setScript(s *script.Script, sourceID uint32) *script.Script {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.script
	e.script = s
	e.sourceID = sourceID
	return prev
}

// detach removes the script for teardown.
func (e *Entity) detach() *script.Script {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.script
	e.script = nil
	return s
}

func (e *Entity) setSaved(props json.RawMessage) {
	e.mu.Lock()
	e.saved = props
	e.mu.Unlock()
}
