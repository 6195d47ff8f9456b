package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-home/internal/scripting"
	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// createSourceRequest is the body of POST /scripts/sources.
// Content is required for providers that compile nothing ahead of time.
type createSourceRequest struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Content  string `json:"content"`
}

// updateContentRequest is the body of PUT /scripts/sources/{id}/content.
type updateContentRequest struct {
	Content string `json:"content"`
}

// handleListProviders returns the registered provider names in order.
func (s *Server) handleListProviders(w http.ResponseWriter, _ *http.Request) {
	providers := s.scripts.Providers()
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": providers,
		"count":     len(providers),
	})
}

// handleListSources returns every source without its content.
// An optional provider query parameter filters the list.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")

	all := s.scripts.Sources()
	sources := make([]scripting.SourceInfo, 0, len(all))
	for _, info := range all {
		if provider != "" && info.Provider != provider {
			continue
		}
		info.Content = ""
		sources = append(sources, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sources": sources,
		"count":   len(sources),
	})
}

// handleCreateSource persists a new source and assigns it an id.
func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Provider = strings.TrimSpace(req.Provider)
	req.Name = strings.TrimSpace(req.Name)
	if req.Provider == "" || req.Name == "" {
		writeBadRequest(w, "provider and name are required")
		return
	}

	src, err := s.scripts.AddSource(r.Context(), req.Provider, req.Name, req.Content)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("script source added",
		"id", src.ID(),
		"provider", req.Provider,
		"name", src.Name(),
	)
	writeJSON(w, http.StatusCreated, sourceInfo(req.Provider, src))
}

// handleGetSource returns one source including its content.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid source id")
		return
	}

	info, ok := s.findSource(id)
	if !ok {
		writeNotFound(w, "script source not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleUpdateSourceContent replaces the content of a textual source.
// Scripts already running keep the behaviour they were created with.
func (s *Server) handleUpdateSourceContent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid source id")
		return
	}

	var req updateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.scripts.UpdateContent(r.Context(), id, req.Content); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	info, ok := s.findSource(id)
	if !ok {
		writeNotFound(w, "script source not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func sourceInfo(provider string, src script.Source) scripting.SourceInfo {
	return scripting.SourceInfo{
		ID:       src.ID(),
		Provider: provider,
		Name:     src.Name(),
		Flags:    src.Flags().String(),
		Content:  src.Content(),
	}
}

func (s *Server) findSource(id uint32) (scripting.SourceInfo, bool) {
	for _, info := range s.scripts.Sources() {
		if info.ID == id {
			return info, true
		}
	}
	return scripting.SourceInfo{}, false
}
