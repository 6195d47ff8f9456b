package scripting

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// fakeSource is a textual source whose scripts expose one integer property.
type fakeSource struct {
	script.SourceBase
	mu      sync.Mutex
	content string
	fail    bool
}

func (s *fakeSource) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}

func (s *fakeSource) SetContent(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content = content
	return nil
}

func (s *fakeSource) CreateScript(view script.View) (*script.Script, error) {
	if s.fail {
		return nil, errors.New("fake: refused")
	}
	return script.New(view, s, &counterBehavior{})
}

type counterBehavior struct{ count int64 }

func (b *counterBehavior) Setup(ctx *script.Context) error {
	ctx.AddProperty("count", script.FieldProperty(&b.count, script.Visible|script.Store))
	return nil
}

// fakeProvider issues each static name once and accepts any dynamic name.
type fakeProvider struct {
	name    string
	flags   script.Support
	mu      sync.Mutex
	pending map[string]bool
}

func newFakeProvider(name string, flags script.Support, static ...string) *fakeProvider {
	p := &fakeProvider{name: name, flags: flags, pending: make(map[string]bool)}
	for _, s := range static {
		p.pending[s] = true
	}
	return p
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) StaticSources() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.pending))
	for n := range p.pending {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (p *fakeProvider) CreateSource(id uint32, name, content string) (script.Source, error) {
	p.mu.Lock()
	delete(p.pending, name)
	p.mu.Unlock()
	if name == "" {
		return nil, errors.New("fake: empty name")
	}
	return &fakeSource{
		SourceBase: script.NewSourceBase(id, name, p.flags),
		content:    content,
		fail:       name == "broken",
	}, nil
}

// stubView is a View with fixed identity.
type stubView struct{ id uint32 }

func (v *stubView) ID() uint32                       { return v.id }
func (v *stubView) Type() script.ViewType            { return script.ViewDevice }
func (v *stubView) Name() string                     { return "stub" }
func (v *stubView) SetName(string)                   {}
func (v *stubView) Invoke(string, script.Value) bool { return false }
func (v *stubView) Publish()                         {}
func (v *stubView) PublishState()                    {}

func TestManagerAddProvider(t *testing.T) {
	m := NewManager()
	if err := m.AddProvider(newFakeProvider("native", script.SupportAll)); err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}
	if err := m.AddProvider(newFakeProvider("lua", script.SupportAll)); err != nil {
		t.Fatalf("AddProvider() error = %v", err)
	}
	if err := m.AddProvider(newFakeProvider("native", script.SupportAll)); !errors.Is(err, ErrProviderExists) {
		t.Errorf("duplicate AddProvider() error = %v, want ErrProviderExists", err)
	}
	if got := m.Providers(); len(got) != 2 || got[0] != "native" || got[1] != "lua" {
		t.Errorf("Providers() = %v, want [native lua]", got)
	}
}

func TestManagerCreateSource(t *testing.T) {
	m := NewManager()
	m.AddProvider(newFakeProvider("fake", script.DeviceSupport)) //nolint:errcheck // Fresh manager

	src, err := m.CreateSource(10, "fake", "counter", "")
	if err != nil {
		t.Fatalf("CreateSource() error = %v", err)
	}
	if src.ID() != 10 || src.Name() != "counter" {
		t.Errorf("source = %d/%s", src.ID(), src.Name())
	}
	if got, ok := m.Source(10); !ok || got != src {
		t.Error("Source(10) did not return the created source")
	}

	if _, err := m.CreateSource(10, "fake", "other", ""); !errors.Is(err, ErrSourceExists) {
		t.Errorf("duplicate id error = %v, want ErrSourceExists", err)
	}
	if _, err := m.CreateSource(11, "missing", "x", ""); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("unknown provider error = %v, want ErrProviderNotFound", err)
	}
	if _, err := m.CreateSource(12, "fake", "", ""); err == nil {
		t.Error("provider error should propagate")
	}
	if _, ok := m.Source(12); ok {
		t.Error("failed source should not be recorded")
	}
}

func TestManagerCreateScript(t *testing.T) {
	m := NewManager()
	m.AddProvider(newFakeProvider("fake", script.DeviceSupport)) //nolint:errcheck // Fresh manager
	for id, name := range map[uint32]string{1: "counter", 2: "broken"} {
		if _, err := m.CreateSource(id, "fake", name, ""); err != nil {
			t.Fatalf("CreateSource(%s) error = %v", name, err)
		}
	}

	tests := []struct {
		name     string
		sourceID uint32
		required script.Support
		wantErr  error
	}{
		{"supported", 1, script.DeviceSupport, nil},
		{"any of required", 1, script.DeviceSupport | script.RoomSupport, nil},
		{"unsupported type", 1, script.RoomSupport, ErrUnsupportedType},
		{"unknown source", 99, script.DeviceSupport, ErrSourceNotFound},
		{"factory failure", 2, script.DeviceSupport, ErrScriptCreation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := m.CreateScript(tt.sourceID, tt.required, &stubView{id: 5})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateScript() error = %v, want %v", err, tt.wantErr)
				}
				if s != nil {
					t.Error("failed CreateScript() should return nil script")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateScript() error = %v", err)
			}
			if s.State() != script.StateUninitialized {
				t.Errorf("State() = %v, want uninitialized", s.State())
			}
			if !s.Initialize() {
				t.Error("Initialize() = false")
			}
		})
	}
}

func TestManagerBootstrap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySourceRepository(
		SourceRecord{ID: 4, Provider: "fake", Name: "alpha"},
		SourceRecord{ID: 7, Provider: "gone", Name: "orphan"},
	)
	m := NewManager()
	m.AddProvider(newFakeProvider("fake", script.SupportAll, "alpha", "beta")) //nolint:errcheck // Fresh manager

	if err := m.Bootstrap(ctx, repo); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	sources := m.Sources()
	if len(sources) != 2 {
		t.Fatalf("Sources() = %+v, want alpha and beta", sources)
	}
	if sources[0].ID != 4 || sources[0].Name != "alpha" {
		t.Errorf("persisted id not restored: %+v", sources[0])
	}
	if sources[1].ID != 8 || sources[1].Name != "beta" {
		t.Errorf("new static source = %+v, want id 8", sources[1])
	}

	records, _ := repo.List(ctx)
	if len(records) != 3 {
		t.Errorf("repository has %d records, want 3", len(records))
	}
}

func TestManagerAddSourceAndUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	m.AddProvider(newFakeProvider("fake", script.SupportAll)) //nolint:errcheck // Fresh manager

	if _, err := m.AddSource(ctx, "fake", "x", ""); !errors.Is(err, ErrNoRepository) {
		t.Errorf("AddSource() before Bootstrap error = %v, want ErrNoRepository", err)
	}

	repo := NewMemorySourceRepository()
	if err := m.Bootstrap(ctx, repo); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	src, err := m.AddSource(ctx, "fake", "dynamic", "v1")
	if err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}
	if err := m.UpdateContent(ctx, src.ID(), "v2"); err != nil {
		t.Fatalf("UpdateContent() error = %v", err)
	}
	if src.Content() != "v2" {
		t.Errorf("Content() = %q, want v2", src.Content())
	}
	records, _ := repo.List(ctx)
	if len(records) != 1 || records[0].Content != "v2" {
		t.Errorf("records = %+v", records)
	}

	if err := m.UpdateContent(ctx, 999, "x"); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("UpdateContent(unknown) error = %v", err)
	}
	if _, err := m.AddSource(ctx, "nope", "x", ""); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("AddSource(unknown provider) error = %v", err)
	}
}
