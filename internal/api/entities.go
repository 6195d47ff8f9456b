package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-home/internal/home"
	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// entityResponse is an entity envelope with its visible state.
type entityResponse struct {
	home.Info
	State json.RawMessage `json:"state"`
}

// createEntityRequest is the body of POST /{kind}.
type createEntityRequest struct {
	Name     string `json:"name"`
	RoomID   uint32 `json:"room_id"`
	SourceID uint32 `json:"script_source_id"`
}

// renameEntityRequest is the body of PATCH /{kind}/{id}.
type renameEntityRequest struct {
	Name string `json:"name"`
}

// assignScriptRequest is the body of PUT /{kind}/{id}/script.
type assignScriptRequest struct {
	SourceID uint32 `json:"script_source_id"`
}

// setPropertiesResponse reports what a property write changed.
type setPropertiesResponse struct {
	Applied    string          `json:"applied"`
	Stored     bool            `json:"stored"`
	Published  bool            `json:"published"`
	Properties json.RawMessage `json:"properties"`
}

// invokeResponse is the result of POST /{kind}/{id}/methods/{method}.
type invokeResponse struct {
	Method string `json:"method"`
	Result bool   `json:"result"`
}

// handleListEntities returns every entity of a kind.
// Devices accept a room_id query parameter.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}

	var entities []*home.Entity
	if raw := r.URL.Query().Get("room_id"); raw != "" && kind == script.ViewDevice {
		roomID, err := parseID(raw)
		if err != nil {
			writeBadRequest(w, "invalid room_id")
			return
		}
		entities = s.home.Devices(roomID)
	} else {
		entities = s.home.Entities(kind)
	}

	infos := make([]home.Info, 0, len(entities))
	for _, e := range entities {
		infos = append(infos, e.Info())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": infos,
		"count":    len(infos),
	})
}

// handleCreateEntity creates an entity and optionally attaches a script.
func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}

	var req createEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	e, err := s.home.Create(r.Context(), kind, req.Name, req.RoomID, req.SourceID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("entity created",
		"type", kind.String(),
		"id", e.ID(),
		"source_id", req.SourceID,
	)
	s.writeEntity(w, r, http.StatusCreated, e)
}

// handleGetEntity returns an entity envelope with its visible state.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityParam(w, r)
	if !ok {
		return
	}
	s.writeEntity(w, r, http.StatusOK, e)
}

// handleRenameEntity renames an entity, persists it and broadcasts its
// configuration.
func (s *Server) handleRenameEntity(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityParam(w, r)
	if !ok {
		return
	}

	var req renameEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeBadRequest(w, home.ErrInvalidName.Error())
		return
	}

	e.SetName(req.Name)
	e.Publish()
	s.writeEntity(w, r, http.StatusOK, e)
}

// handleDeleteEntity removes an entity and terminates its script.
func (s *Server) handleDeleteEntity(w http.ResponseWriter, r *http.Request) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid entity id")
		return
	}

	if err := s.home.Remove(r.Context(), kind, id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignScript replaces the script of an entity. A source id of 0
// removes it.
func (s *Server) handleAssignScript(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityParam(w, r)
	if !ok {
		return
	}

	var req assignScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.home.AssignScript(r.Context(), e.Type(), e.ID(), req.SourceID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeEntity(w, r, http.StatusOK, e)
}

// handleGetProperties returns the script properties matching the flags
// query parameter ("visible" by default, "all" for every property).
func (s *Server) handleGetProperties(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scriptParam(w, r)
	if !ok {
		return
	}

	filter := script.Visible
	if raw := r.URL.Query().Get("flags"); raw != "" {
		filter = script.ParseFlags(strings.Split(raw, ",")...)
		if filter == script.FlagsNone {
			writeBadRequest(w, "unknown property flags")
			return
		}
	}

	props, err := sc.JSONGetProperties(filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}

// handleSetProperties applies a JSON object to the visible properties.
// A changed Store property persists the entity; a changed InitiateUpdate
// property broadcasts its state.
func (s *Server) handleSetProperties(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entityParam(w, r)
	if !ok {
		return
	}
	sc := e.Script()
	if sc == nil {
		s.writeDomainError(w, r, home.ErrNoScript)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}

	applied, err := sc.JSONSetProperties(body, script.Visible)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := setPropertiesResponse{Applied: applied.String()}
	if applied.Has(script.Store) {
		if err := s.home.Save(r.Context(), e.Type(), e.ID()); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		resp.Stored = true
	}
	if applied.Has(script.InitiateUpdate) {
		e.PublishState()
		resp.Published = true
	}

	resp.Properties, err = sc.JSONGetProperties(script.Visible)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetAttributes returns the static attributes of the script.
func (s *Server) handleGetAttributes(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scriptParam(w, r)
	if !ok {
		return
	}

	attrs, err := sc.JSONGetAttributes()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attrs)
}

// handleInvokeMethod calls a script method. The body is the JSON parameter;
// an empty body invokes with no parameter.
func (s *Server) handleInvokeMethod(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.scriptParam(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "method")
	m, ok := sc.Method(name)
	if !ok {
		writeNotFound(w, "method not found: "+name)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}

	var param script.Value
	if len(strings.TrimSpace(string(body))) > 0 {
		param = script.ParseValue(body, m.Kind())
		if m.Kind() != script.KindUnknown && param.Kind() != m.Kind() {
			writeBadRequest(w, "parameter must be "+m.Kind().String())
			return
		}
	}

	writeJSON(w, http.StatusOK, invokeResponse{
		Method: name,
		Result: sc.Invoke(name, param),
	})
}

// writeEntity writes an entity envelope with its visible state.
func (s *Server) writeEntity(w http.ResponseWriter, r *http.Request, status int, e *home.Entity) {
	state, err := e.State()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, status, entityResponse{Info: e.Info(), State: state})
}

// kindParam resolves the {kind} URL parameter.
func (s *Server) kindParam(w http.ResponseWriter, r *http.Request) (script.ViewType, bool) {
	raw := chi.URLParam(r, "kind")
	kind, ok := home.ParseType(raw)
	if !ok {
		writeNotFound(w, "unknown entity kind: "+raw)
		return 0, false
	}
	return kind, true
}

// entityParam resolves the {kind}/{id} URL parameters to an entity.
func (s *Server) entityParam(w http.ResponseWriter, r *http.Request) (*home.Entity, bool) {
	kind, ok := s.kindParam(w, r)
	if !ok {
		return nil, false
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid entity id")
		return nil, false
	}
	e, ok := s.home.Entity(kind, id)
	if !ok {
		writeNotFound(w, kind.String()+" not found")
		return nil, false
	}
	return e, true
}

// scriptParam resolves the URL to an entity's attached script.
func (s *Server) scriptParam(w http.ResponseWriter, r *http.Request) (*script.Script, bool) {
	e, ok := s.entityParam(w, r)
	if !ok {
		return nil, false
	}
	sc := e.Script()
	if sc == nil {
		s.writeDomainError(w, r, home.ErrNoScript)
		return nil, false
	}
	return sc, true
}

var errInvalidID = errors.New("invalid id")

// parseID parses a non-zero 32-bit identifier.
func parseID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint32(id), nil
}
