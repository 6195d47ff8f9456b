package lua

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// ProviderName is the name the Lua provider registers under.
const ProviderName = "lua"

// Provider defaults.
const (
	// FileSuffix identifies Lua source files.
	FileSuffix = ".lua"

	// DefaultTimeout bounds every call into Lua.
	DefaultTimeout = 2 * time.Second
)

// Logger defines the logging interface used by the provider.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Provider.
type Option func(*Provider)

// WithTimeout sets the per-call Lua execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(logger Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Provider serves Lua sources.
//
// Files ending in .lua under the directory are static sources named by
// their file stem; each is issued once. Any other name becomes a dynamic
// source when content is supplied.
//
// All public methods are thread-safe.
type Provider struct {
	dir     string
	timeout time.Duration
	logger  Logger

	mu      sync.Mutex
	pending map[string]string // static name -> file path
	issued  map[string]bool
}

// NewProvider scans dir for Lua files. An empty dir yields a provider with
// only dynamic sources.
func NewProvider(dir string, opts ...Option) *Provider {
	p := &Provider{
		dir:     dir,
		timeout: DefaultTimeout,
		logger:  noopLogger{},
		pending: make(map[string]string),
		issued:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.scan()
	return p
}

// Name returns ProviderName.
func (p *Provider) Name() string { return ProviderName }

// StaticSources returns the file-backed names not yet issued, sorted.
func (p *Provider) StaticSources() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.pending))
	for name := range p.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateSource creates a Lua source.
//
// With empty content the name must be an unissued static source and the
// file is read. With content, the content is used as given and a matching
// static name, if any, is consumed.
func (p *Provider) CreateSource(id uint32, name, content string) (script.Source, error) {
	p.mu.Lock()
	path, static := p.pending[name]
	issued := p.issued[name]
	p.mu.Unlock()

	if content == "" {
		if !static {
			if issued {
				return nil, fmt.Errorf("%w: %s", ErrSourceConsumed, name)
			}
			return nil, fmt.Errorf("%w: %s", ErrNoContent, name)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		content = string(data)
	}

	src, err := newSource(id, name, content, p.timeout, p.logger)
	if err != nil {
		return nil, err
	}

	if static {
		p.mu.Lock()
		delete(p.pending, name)
		p.issued[name] = true
		p.mu.Unlock()
	}
	return src, nil
}

func (p *Provider) scan() {
	if p.dir == "" {
		return
	}
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), FileSuffix) {
			return nil
		}
		name := strings.TrimSuffix(d.Name(), FileSuffix)
		if existing, dup := p.pending[name]; dup {
			p.logger.Warn("duplicate lua source name rejected",
				"name", name,
				"path", path,
				"kept", existing,
			)
			return nil
		}
		p.pending[name] = path
		return nil
	})
	if err != nil {
		p.logger.Warn("lua source scan incomplete", "dir", p.dir, "error", err)
	}
	p.logger.Info("lua sources discovered", "dir", p.dir, "count", len(p.pending))
}
