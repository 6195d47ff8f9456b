package native

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// ProviderName is the name the native provider registers under.
const ProviderName = "native"

// DefaultSuffix is the file suffix of Go plugins.
const DefaultSuffix = ".so"

// State is the lifecycle state of a Provider.
type State uint8

// Provider states. Scanning happens once, inside NewProvider.
const (
	StateUnloaded State = iota
	StateScanning
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateScanning:
		return "scanning"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

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

// WithSuffixes replaces the accepted module file suffixes (".so" by default).
// ".dll" and ".dylib" are typical alternatives.
func WithSuffixes(suffixes ...string) Option {
	return func(p *Provider) {
		if len(suffixes) > 0 {
			p.suffixes = suffixes
		}
	}
}

// WithOpener replaces the module loader (plugin.Open by default).
func WithOpener(opener Opener) Option {
	return func(p *Provider) {
		if opener != nil {
			p.opener = opener
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

// library is a successfully loaded module and its metadata.
type library struct {
	path   string
	module Module
	info   script.LibraryInformation
}

// entry is a registered script waiting to be issued as a source.
type entry struct {
	lib     *library
	script  script.ScriptInformation
	factory script.Factory
}

// Provider discovers native script libraries in a directory tree and issues
// one source per declared script.
//
// Script names are "<library>.<script>". Each name can be issued once;
// later requests for the same name return ErrSourceConsumed.
//
// All public methods are thread-safe.
type Provider struct {
	dir      string
	suffixes []string
	opener   Opener
	logger   Logger

	mu        sync.Mutex
	state     State
	libraries []*library
	pending   map[string]*entry
	issued    map[string]bool
}

// NewProvider scans dir recursively and loads every module whose file name
// ends in one of the accepted suffixes.
//
// Failures never abort the scan: a module that cannot be opened, lacks the
// metadata export, exports it with the wrong type, panics, or reports an
// empty library name is logged and skipped. Such a module may remain
// mapped in the process but is not retained by the provider.
func NewProvider(dir string, opts ...Option) *Provider {
	p := &Provider{
		dir:      dir,
		suffixes: []string{DefaultSuffix},
		opener:   OpenPlugin,
		logger:   noopLogger{},
		pending:  make(map[string]*entry),
		issued:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.mu.Lock()
	p.state = StateScanning
	p.mu.Unlock()

	p.scan()

	p.mu.Lock()
	p.state = StateReady
	p.mu.Unlock()

	p.logger.Info("native script libraries loaded",
		"dir", dir,
		"libraries", len(p.libraries),
		"scripts", len(p.pending),
	)
	return p
}

// Name returns ProviderName.
func (p *Provider) Name() string { return ProviderName }

// State returns the lifecycle state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Libraries returns the metadata of every retained library in load order.
func (p *Provider) Libraries() []script.LibraryInformation {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]script.LibraryInformation, len(p.libraries))
	for i, lib := range p.libraries {
		out[i] = lib.info
	}
	return out
}

// StaticSources returns the script names not yet issued, sorted.
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

// CreateSource issues the named script as a source with the given id and
// removes it from the pending set. Native sources have no content; any
// supplied content is ignored.
func (p *Provider) CreateSource(id uint32, name, content string) (script.Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.pending[name]
	if !ok {
		if p.issued[name] {
			return nil, fmt.Errorf("%w: %s", ErrSourceConsumed, name)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	delete(p.pending, name)
	p.issued[name] = true

	if content != "" {
		p.logger.Debug("content ignored for native source", "name", name)
	}
	return newSource(id, name, e, p.logger), nil
}

// scan walks the directory tree and loads every candidate module.
func (p *Provider) scan() {
	if p.dir == "" {
		return
	}
	if _, err := os.Stat(p.dir); err != nil {
		p.logger.Warn("native plugin directory unavailable", "dir", p.dir, "error", err)
		return
	}

	walkErr := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !p.hasSuffix(d.Name()) {
			return nil
		}
		p.loadLibrary(path)
		return nil
	})
	if walkErr != nil {
		p.logger.Warn("native plugin scan incomplete", "dir", p.dir, "error", walkErr)
	}
}

func (p *Provider) hasSuffix(name string) bool {
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// loadLibrary opens one module, reads its metadata and registers its scripts.
func (p *Provider) loadLibrary(path string) {
	lib, err := p.openLibrary(path)
	if err != nil {
		p.logger.Warn("native library skipped", "path", path, "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.libraries = append(p.libraries, lib)
	registered := 0
	for _, info := range lib.info.Scripts {
		if p.register(lib, info) {
			registered++
		}
	}
	p.logger.Info("native library loaded",
		"path", path,
		"library", lib.info.LibraryName,
		"version", lib.info.Version,
		"scripts", registered,
	)
}

// openLibrary opens the module and validates its metadata.
func (p *Provider) openLibrary(path string) (*library, error) {
	module, err := p.openModule(path)
	if err != nil {
		return nil, err
	}
	sym, err := module.Lookup(script.LibraryInformationSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, script.LibraryInformationSymbol)
	}
	fn, ok := infoFunc(sym)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T", ErrSymbolType, script.LibraryInformationSymbol, sym)
	}
	info, err := callInfo(fn)
	if err != nil {
		return nil, err
	}
	if info.LibraryName == "" {
		return nil, fmt.Errorf("%w: empty library name", ErrInvalidLibrary)
	}
	return &library{path: path, module: module, info: info}, nil
}

func (p *Provider) openModule(path string) (module Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: opening module: %v", ErrPluginPanic, r)
		}
	}()
	return p.opener(path)
}

func callInfo(fn script.LibraryInformationFunc) (info script.LibraryInformation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPluginPanic, script.LibraryInformationSymbol, r)
		}
	}()
	return fn(), nil
}

// register adds one declared script to the pending set. Caller holds p.mu.
func (p *Provider) register(lib *library, info script.ScriptInformation) bool {
	if info.ScriptName == "" {
		p.logger.Warn("script without name skipped", "library", lib.info.LibraryName)
		return false
	}
	name := lib.info.LibraryName + "." + info.ScriptName

	if _, exists := p.pending[name]; exists {
		p.logger.Warn("duplicate script name rejected",
			"name", name,
			"path", lib.path,
		)
		return false
	}

	factory := info.Factory
	if factory == nil {
		symbol := script.FactorySymbol(info.ScriptName)
		sym, err := lib.module.Lookup(symbol)
		if err != nil {
			p.logger.Warn("script factory not found", "name", name, "symbol", symbol)
			return false
		}
		resolved, ok := factoryFunc(sym)
		if !ok {
			p.logger.Warn("script factory has wrong type",
				"name", name,
				"symbol", symbol,
				"type", fmt.Sprintf("%T", sym),
			)
			return false
		}
		factory = resolved
	}

	p.pending[name] = &entry{lib: lib, script: info, factory: factory}
	return true
}
