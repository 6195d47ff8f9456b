package home

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"weak"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// persistTimeout bounds repository writes triggered from a View, which has
// no caller context.
const persistTimeout = 5 * time.Second

// Logger defines the logging interface used by the Home.
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

// ScriptFactory creates scripts for entity views. *scripting.Manager
// satisfies it.
type ScriptFactory interface {
	CreateScript(sourceID uint32, required script.Support, view script.View) (*script.Script, error)
}

// Deps holds the collaborators of a Home. Only Repository is required.
type Deps struct {
	Name       string
	Scripts    ScriptFactory
	Repository Repository
	Publisher  Publisher
	Recorder   Recorder
	Logger     Logger
}

// Types lists the domain types that hold entities, in load order.
var Types = []script.ViewType{script.ViewRoom, script.ViewDevice, script.ViewService}

// Home owns every room, device and service of a site.
//
// All public methods are thread-safe.
type Home struct {
	scripts   ScriptFactory
	repo      Repository
	publisher Publisher
	recorder  Recorder
	logger    Logger
	view      *homeView

	mu       sync.RWMutex
	name     string
	entities map[script.ViewType]map[uint32]*Entity
}

// New creates an empty Home. Call Load to restore persisted entities.
func New(deps Deps) *Home {
	h := &Home{
		name:      deps.Name,
		scripts:   deps.Scripts,
		repo:      deps.Repository,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		logger:    deps.Logger,
		entities:  make(map[script.ViewType]map[uint32]*Entity, len(Types)),
	}
	if h.repo == nil {
		h.repo = NewMemoryRepository()
	}
	if h.logger == nil {
		h.logger = noopLogger{}
	}
	for _, t := range Types {
		h.entities[t] = make(map[uint32]*Entity)
	}
	h.view = &homeView{ptr: weak.Make(h)}
	return h
}

// Name returns the site name.
func (h *Home) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name
}

// SetName renames the site.
func (h *Home) SetName(name string) {
	h.mu.Lock()
	h.name = name
	h.mu.Unlock()
}

// View returns the script-facing view of the Home.
func (h *Home) View() script.View { return h.view }

// Load restores every persisted entity and starts its script. Entities
// whose script cannot start are kept without one and logged.
func (h *Home) Load(ctx context.Context) error {
	for _, t := range Types {
		records, err := h.repo.List(ctx, t)
		if err != nil {
			return fmt.Errorf("loading %s entities: %w", t, err)
		}
		for _, rec := range records {
			e := newEntity(h, rec)
			h.mu.Lock()
			h.entities[t][rec.ID] = e
			h.mu.Unlock()

			if rec.SourceID == 0 {
				continue
			}
			if err := h.attach(e, rec.SourceID, rec.Properties); err != nil {
				h.logger.Warn("entity script not started",
					"type", t.String(),
					"id", rec.ID,
					"source_id", rec.SourceID,
					"error", err,
				)
			}
		}
		h.logger.Info("entities loaded", "type", t.String(), "count", len(records))
	}
	return nil
}

// Create persists a new entity, attaches its script when sourceID is not
// zero and publishes it. roomID applies to devices only.
func (h *Home) Create(ctx context.Context, t script.ViewType, name string, roomID, sourceID uint32) (*Entity, error) {
	if !validType(t) {
		return nil, ErrInvalidType
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if t != script.ViewDevice {
		roomID = 0
	}
	if roomID != 0 {
		if _, ok := h.Entity(script.ViewRoom, roomID); !ok {
			return nil, fmt.Errorf("%w: %d", ErrRoomNotFound, roomID)
		}
	}

	rec := Record{Type: t, Name: name, RoomID: roomID, Properties: json.RawMessage(`{}`)}
	id, err := h.repo.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", t, err)
	}
	rec.ID = id

	e := newEntity(h, rec)
	if sourceID != 0 {
		if err := h.attach(e, sourceID, nil); err != nil {
			if delErr := h.repo.Delete(ctx, t, id); delErr != nil {
				h.logger.Warn("rolling back entity failed", "type", t.String(), "id", id, "error", delErr)
			}
			return nil, err
		}
	}

	h.mu.Lock()
	h.entities[t][id] = e
	h.mu.Unlock()

	if err := h.save(ctx, e); err != nil {
		return nil, err
	}
	h.broadcastConfig(e)
	return e, nil
}

// Entity returns the entity of type t with the given id.
func (h *Home) Entity(t script.ViewType, id uint32) (*Entity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.entities[t][id]
	return e, ok
}

// Entities returns the entities of type t ordered by id.
func (h *Home) Entities(t script.ViewType) []*Entity {
	h.mu.RLock()
	list := make([]*Entity, 0, len(h.entities[t]))
	for _, e := range h.entities[t] {
		list = append(list, e)
	}
	h.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	return list
}

// Devices returns the devices of a room ordered by id.
func (h *Home) Devices(roomID uint32) []*Entity {
	var devices []*Entity
	for _, e := range h.Entities(script.ViewDevice) {
		if e.RoomID() == roomID {
			devices = append(devices, e)
		}
	}
	return devices
}

// AssignScript replaces the script of an entity. A sourceID of zero
// removes it. The previous script is terminated after the new one starts.
func (h *Home) AssignScript(ctx context.Context, t script.ViewType, id, sourceID uint32) error {
	e, ok := h.Entity(t, id)
	if !ok {
		return ErrEntityNotFound
	}

	if sourceID == 0 {
		if prev := e.setScript(nil, 0); prev != nil {
			prev.Terminate()
		}
	} else if err := h.attach(e, sourceID, nil); err != nil {
		return err
	}

	if err := h.save(ctx, e); err != nil {
		return err
	}
	h.broadcastConfig(e)
	return nil
}

// Save persists the entity's name and Store properties.
func (h *Home) Save(ctx context.Context, t script.ViewType, id uint32) error {
	e, ok := h.Entity(t, id)
	if !ok {
		return ErrEntityNotFound
	}
	return h.save(ctx, e)
}

// Remove deletes an entity and terminates its script. Views held by other
// scripts resolve to the gone state afterwards.
func (h *Home) Remove(ctx context.Context, t script.ViewType, id uint32) error {
	h.mu.Lock()
	e, ok := h.entities[t][id]
	if ok {
		delete(h.entities[t], id)
	}
	h.mu.Unlock()
	if !ok {
		return ErrEntityNotFound
	}

	if s := e.detach(); s != nil {
		s.Terminate()
	}
	if err := h.repo.Delete(ctx, t, id); err != nil {
		return fmt.Errorf("deleting %s %d: %w", t, id, err)
	}
	h.logger.Info("entity removed", "type", t.String(), "id", id)
	return nil
}

// Close terminates every script. Entities stay in memory.
func (h *Home) Close() {
	for _, e := range h.all() {
		if s := e.detach(); s != nil {
			s.Terminate()
		}
	}
}

// attach creates and initialises a script for e, restores saved Store
// properties and swaps it in.
func (h *Home) attach(e *Entity, sourceID uint32, saved json.RawMessage) error {
	if h.scripts == nil {
		return ErrNoScripts
	}
	s, err := h.scripts.CreateScript(sourceID, e.kind.Support(), e.view)
	if err != nil {
		return err
	}
	if !s.Initialize() {
		return fmt.Errorf("%w: source %d", ErrScriptInit, sourceID)
	}
	if len(saved) > 0 {
		if _, err := s.JSONSetProperties(saved, script.Store); err != nil {
			h.logger.Warn("stored properties not restored",
				"type", e.kind.String(),
				"id", e.id,
				"error", err,
			)
		}
	}
	if prev := e.setScript(s, sourceID); prev != nil {
		prev.Terminate()
	}
	return nil
}

func (h *Home) save(ctx context.Context, e *Entity) error {
	rec, err := e.record()
	if err != nil {
		return fmt.Errorf("reading %s %d properties: %w", e.kind, e.id, err)
	}
	if err := h.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("saving %s %d: %w", e.kind, e.id, err)
	}
	e.setSaved(rec.Properties)
	return nil
}

// publish handles View.Publish: persist, then broadcast configuration.
func (h *Home) publish(e *Entity) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := h.save(ctx, e); err != nil {
		h.logger.Error("persisting entity failed", "type", e.kind.String(), "id", e.id, "error", err)
	}
	h.broadcastConfig(e)
}

func (h *Home) broadcastConfig(e *Entity) {
	if h.publisher == nil {
		return
	}
	payload, err := json.Marshal(e.Info())
	if err != nil {
		h.logger.Error("encoding entity config failed", "type", e.kind.String(), "id", e.id, "error", err)
		return
	}
	if err := h.publisher.PublishConfig(e.kind, e.id, payload); err != nil {
		h.logger.Warn("publishing entity config failed", "type", e.kind.String(), "id", e.id, "error", err)
	}
}

// publishState handles View.PublishState.
func (h *Home) publishState(e *Entity) {
	s := e.Script()
	if s == nil {
		return
	}
	if h.publisher != nil {
		state, err := s.JSONGetProperties(script.Visible)
		if err != nil {
			h.logger.Error("encoding entity state failed", "type", e.kind.String(), "id", e.id, "error", err)
			return
		}
		if err := h.publisher.PublishState(e.kind, e.id, state); err != nil {
			h.logger.Warn("publishing entity state failed", "type", e.kind.String(), "id", e.id, "error", err)
		}
	}
	if h.recorder != nil {
		h.recorder.RecordState(e.kind, e.id, e.Name(), s.GetProperties(script.Visible))
	}
}

func (h *Home) all() []*Entity {
	var list []*Entity
	for _, t := range Types {
		list = append(list, h.Entities(t)...)
	}
	return list
}

func validType(t script.ViewType) bool {
	for _, candidate := range Types {
		if t == candidate {
			return true
		}
	}
	return false
}

// ParseType converts a type name, singular or plural ("room", "devices"),
// into an entity domain type.
func ParseType(name string) (script.ViewType, bool) {
	switch strings.ToLower(name) {
	case "room", "rooms":
		return script.ViewRoom, true
	case "device", "devices":
		return script.ViewDevice, true
	case "service", "services":
		return script.ViewService, true
	default:
		return script.ViewHome, false
	}
}
