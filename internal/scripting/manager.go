package scripting

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// SourceInfo describes a live source for listings.
type SourceInfo struct {
	ID       uint32 `json:"id"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Flags    string `json:"flags"`
	Content  string `json:"content,omitempty"`
}

// Manager is the host-side registry of script providers and script sources.
//
// Providers are kept in registration order. Every source created through the
// Manager is recorded in a single id map that spans all providers.
//
// All public methods are thread-safe.
type Manager struct {
	mu        sync.RWMutex
	providers []Provider
	sources   map[uint32]script.Source
	origin    map[uint32]string // source id -> provider name
	repo      SourceRepository
	logger    Logger
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		sources: make(map[uint32]script.Source),
		origin:  make(map[uint32]string),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// AddProvider appends a provider.
// Returns ErrProviderExists if a provider with the same name is registered.
func (m *Manager) AddProvider(p Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.providers {
		if existing.Name() == p.Name() {
			return fmt.Errorf("%w: %s", ErrProviderExists, p.Name())
		}
	}
	m.providers = append(m.providers, p)
	m.logger.Info("script provider registered",
		"provider", p.Name(),
		"static_sources", len(p.StaticSources()),
	)
	return nil
}

// Providers returns the registered provider names in registration order.
func (m *Manager) Providers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return names
}

// Provider returns the named provider.
func (m *Manager) Provider(name string) (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providerLocked(name)
}

func (m *Manager) providerLocked(name string) (Provider, bool) {
	for _, p := range m.providers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// CreateSource asks the named provider for a source and records it under id.
// Returns ErrSourceExists if id is in use and ErrProviderNotFound if no
// provider has that name. Provider errors are wrapped.
func (m *Manager) CreateSource(id uint32, provider, name, content string) (script.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sources[id]; exists {
		return nil, fmt.Errorf("%w: %d", ErrSourceExists, id)
	}
	p, ok := m.providerLocked(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, provider)
	}

	src, err := p.CreateSource(id, name, content)
	if err != nil {
		return nil, fmt.Errorf("creating source %s/%s: %w", provider, name, err)
	}
	m.sources[id] = src
	m.origin[id] = provider

	m.logger.Debug("script source created",
		"id", id,
		"provider", provider,
		"name", name,
	)
	return src, nil
}

// Source returns the source recorded under id.
func (m *Manager) Source(id uint32) (script.Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[id]
	return src, ok
}

// Sources returns every recorded source ordered by id.
func (m *Manager) Sources() []SourceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SourceInfo, 0, len(m.sources))
	for id, src := range m.sources {
		out = append(out, SourceInfo{
			ID:       id,
			Provider: m.origin[id],
			Name:     src.Name(),
			Flags:    src.Flags().String(),
			Content:  src.Content(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateScript builds an uninitialized script from the source recorded under
// sourceID, bound to view. The source must support at least one of the
// required domain types. The caller calls Initialize exactly once.
func (m *Manager) CreateScript(sourceID uint32, required script.Support, view script.View) (*script.Script, error) {
	src, ok := m.Source(sourceID)
	if !ok {
		m.logger.Error("script source not found", "source_id", sourceID)
		return nil, fmt.Errorf("%w: %d", ErrSourceNotFound, sourceID)
	}
	if !src.Flags().Has(required) {
		m.logger.Error("script source does not support domain type",
			"source", src.Name(),
			"supported", src.Flags().String(),
			"required", required.String(),
		)
		return nil, fmt.Errorf("%w: %s supports %s, need %s",
			ErrUnsupportedType, src.Name(), src.Flags(), required)
	}

	s, err := src.CreateScript(view)
	if err != nil {
		m.logger.Error("script creation failed",
			"source", src.Name(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrScriptCreation, src.Name(), err)
	}
	if s == nil {
		m.logger.Error("script creation returned nothing", "source", src.Name())
		return nil, fmt.Errorf("%w: %s", ErrScriptCreation, src.Name())
	}
	s.SetLogger(m.logger)
	return s, nil
}

// Bootstrap restores persisted sources from repo and assigns ids to every
// static source name the providers can still issue.
//
// Persisted sources that no provider can rebuild (a removed plugin, for
// example) are logged and skipped. The repository is kept for AddSource and
// UpdateContent.
func (m *Manager) Bootstrap(ctx context.Context, repo SourceRepository) error {
	records, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading script sources: %w", err)
	}

	m.mu.Lock()
	m.repo = repo
	m.mu.Unlock()

	restored := 0
	for _, rec := range records {
		if _, err := m.CreateSource(rec.ID, rec.Provider, rec.Name, rec.Content); err != nil {
			m.logger.Warn("persisted script source skipped",
				"id", rec.ID,
				"provider", rec.Provider,
				"name", rec.Name,
				"error", err,
			)
			continue
		}
		restored++
	}

	added := 0
	for _, provider := range m.Providers() {
		p, _ := m.Provider(provider)
		for _, name := range p.StaticSources() {
			if _, err := m.AddSource(ctx, provider, name, ""); err != nil {
				m.logger.Warn("static script source skipped",
					"provider", provider,
					"name", name,
					"error", err,
				)
				continue
			}
			added++
		}
	}

	m.logger.Info("script sources bootstrapped",
		"restored", restored,
		"added", added,
	)
	return nil
}

// AddSource persists a new source identity and creates the source under the
// assigned id. Requires Bootstrap to have attached a repository.
func (m *Manager) AddSource(ctx context.Context, provider, name, content string) (script.Source, error) {
	repo, err := m.repository()
	if err != nil {
		return nil, err
	}
	if _, ok := m.Provider(provider); !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, provider)
	}

	id, err := repo.Create(ctx, provider, name, content)
	if err != nil {
		return nil, fmt.Errorf("persisting script source: %w", err)
	}
	src, err := m.CreateSource(id, provider, name, content)
	if err != nil {
		if delErr := repo.Delete(ctx, id); delErr != nil {
			m.logger.Warn("rolling back script source failed", "id", id, "error", delErr)
		}
		return nil, err
	}
	return src, nil
}

// UpdateContent replaces a source's content and persists it.
// Compiled sources reject the change with script.ErrReadOnlyContent.
func (m *Manager) UpdateContent(ctx context.Context, id uint32, content string) error {
	src, ok := m.Source(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrSourceNotFound, id)
	}
	if err := src.SetContent(content); err != nil {
		return fmt.Errorf("updating source %s: %w", src.Name(), err)
	}
	repo, err := m.repository()
	if err != nil {
		return err
	}
	if err := repo.UpdateContent(ctx, id, content); err != nil {
		return fmt.Errorf("persisting source content: %w", err)
	}
	return nil
}

func (m *Manager) repository() (SourceRepository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.repo == nil {
		return nil, ErrNoRepository
	}
	return m.repo, nil
}
