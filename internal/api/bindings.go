package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-home/internal/home"
	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Binding describes an event connection created through the API.
type Binding struct {
	ID         uuid.UUID `json:"id"`
	SourceType string    `json:"source_type"`
	SourceID   uint32    `json:"source_id"`
	Event      string    `json:"event"`
	TargetType string    `json:"target_type"`
	TargetID   uint32    `json:"target_id"`
	Method     string    `json:"method"`
	Active     bool      `json:"active"`
}

// createBindingRequest is the body of POST /{kind}/{id}/events/{event}/bindings.
type createBindingRequest struct {
	TargetType string `json:"target_type"`
	TargetID   uint32 `json:"target_id"`
	Method     string `json:"method"`
}

// bindingRegistry owns the connections created through the API. Holding
// the connection keeps the binding alive; dropping it unbinds.
type bindingRegistry struct {
	mu    sync.Mutex
	items map[uuid.UUID]*boundConnection
}

type boundConnection struct {
	info Binding
	conn *script.EventConnection
}

func newBindingRegistry() *bindingRegistry {
	return &bindingRegistry{items: make(map[uuid.UUID]*boundConnection)}
}

func (b *bindingRegistry) add(info Binding, conn *script.EventConnection) Binding {
	info.ID = uuid.New()
	b.mu.Lock()
	b.items[info.ID] = &boundConnection{info: info, conn: conn}
	b.mu.Unlock()
	info.Active = conn.Target() != nil
	return info
}

// remove unbinds and forgets the connection.
func (b *bindingRegistry) remove(id uuid.UUID) bool {
	b.mu.Lock()
	bc, ok := b.items[id]
	delete(b.items, id)
	b.mu.Unlock()
	if ok {
		bc.conn.Unbind()
	}
	return ok
}

// list returns every binding ordered by source then event. Active reports
// whether the target is still alive.
func (b *bindingRegistry) list() []Binding {
	b.mu.Lock()
	out := make([]Binding, 0, len(b.items))
	for _, bc := range b.items {
		info := bc.info
		info.Active = bc.conn.Target() != nil
		out = append(out, info)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceType != out[j].SourceType {
			return out[i].SourceType < out[j].SourceType
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		if out[i].Event != out[j].Event {
			return out[i].Event < out[j].Event
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (b *bindingRegistry) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *bindingRegistry) clear() {
	b.mu.Lock()
	items := b.items
	b.items = make(map[uuid.UUID]*boundConnection)
	b.mu.Unlock()

	for _, bc := range items {
		bc.conn.Unbind()
	}
}

// handleCreateBinding binds an event of the entity's script to a method of
// another entity. The target is held weakly; removing it makes the binding
// inactive without unbinding it.
func (s *Server) handleCreateBinding(w http.ResponseWriter, r *http.Request) {
	source, ok := s.entityParam(w, r)
	if !ok {
		return
	}
	sc := source.Script()
	if sc == nil {
		s.writeDomainError(w, r, home.ErrNoScript)
		return
	}

	event := chi.URLParam(r, "event")
	if _, ok := sc.Event(event); !ok {
		writeNotFound(w, "event not found: "+event)
		return
	}

	var req createBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Method = strings.TrimSpace(req.Method)
	if req.Method == "" {
		writeBadRequest(w, "method is required")
		return
	}
	targetType, ok := home.ParseType(req.TargetType)
	if !ok {
		writeBadRequest(w, "invalid target_type")
		return
	}
	target, ok := s.home.Entity(targetType, req.TargetID)
	if !ok {
		writeNotFound(w, "target "+targetType.String()+" not found")
		return
	}

	conn := sc.BindEvent(event, target.WeakView(), req.Method)
	if conn == nil {
		writeBadRequest(w, "binding rejected")
		return
	}

	binding := s.bindings.add(Binding{
		SourceType: source.Type().String(),
		SourceID:   source.ID(),
		Event:      event,
		TargetType: targetType.String(),
		TargetID:   target.ID(),
		Method:     req.Method,
	}, conn)

	s.logger.Info("event binding created",
		"binding", binding.ID.String(),
		"source", binding.SourceType,
		"source_id", binding.SourceID,
		"event", event,
		"target", binding.TargetType,
		"target_id", binding.TargetID,
		"method", binding.Method,
	)
	writeJSON(w, http.StatusCreated, binding)
}

// handleListBindings returns every binding created through the API.
func (s *Server) handleListBindings(w http.ResponseWriter, _ *http.Request) {
	bindings := s.bindings.list()
	writeJSON(w, http.StatusOK, map[string]any{
		"bindings": bindings,
		"count":    len(bindings),
	})
}

// handleDeleteBinding unbinds a connection by its UUID.
func (s *Server) handleDeleteBinding(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "connection"))
	if err != nil {
		writeBadRequest(w, "invalid connection id")
		return
	}
	if !s.bindings.remove(id) {
		writeNotFound(w, "binding not found")
		return
	}
	s.logger.Info("event binding removed", "binding", id.String())
	w.WriteHeader(http.StatusNoContent)
}
