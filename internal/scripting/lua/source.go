package lua

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// supportsDirective declares the domain types a Lua source binds to:
//
//	-- supports: device, room
//
// Sources without the directive support every domain type.
const supportsDirective = "supports:"

// Source is a textual Lua script source. Its content may be replaced at
// runtime; scripts already created keep running the content they were
// created from.
type Source struct {
	id      uint32
	name    string
	timeout time.Duration
	logger  Logger

	mu      sync.RWMutex
	content string
	flags   script.Support
	proto   *lua.FunctionProto
}

func newSource(id uint32, name, content string, timeout time.Duration, logger Logger) (*Source, error) {
	s := &Source{id: id, name: name, timeout: timeout, logger: logger}
	if err := s.SetContent(content); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the source identifier.
func (s *Source) ID() uint32 { return s.id }

// Name returns the source name.
func (s *Source) Name() string { return s.name }

// Flags returns the domain types declared by the supports directive.
func (s *Source) Flags() script.Support {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// Content returns the Lua source text.
func (s *Source) Content() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// SetContent compiles content and, when it is valid Lua, replaces the
// source text. Invalid content is rejected and the previous text is kept.
func (s *Source) SetContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrNoContent
	}
	proto, err := compile(s.name, content)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.content = content
	s.flags = parseSupports(content)
	s.proto = proto
	s.mu.Unlock()
	return nil
}

// CreateScript builds a script running the current content in a fresh
// sandboxed Lua state. The state is created during Initialize.
func (s *Source) CreateScript(view script.View) (*script.Script, error) {
	s.mu.RLock()
	proto := s.proto
	s.mu.RUnlock()

	return script.New(view, s, newBehavior(s.name, proto, s.timeout, s.logger))
}

func compile(name, content string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(content), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}
	return proto, nil
}

// parseSupports reads the supports directive from leading comment lines.
func parseSupports(content string) script.Support {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		comment, ok := strings.CutPrefix(line, "--")
		if !ok {
			break
		}
		if rest, found := strings.CutPrefix(strings.TrimSpace(comment), supportsDirective); found {
			if flags := script.ParseSupport(strings.Split(rest, ",")...); flags != script.SupportNone {
				return flags
			}
		}
	}
	return script.SupportAll
}
