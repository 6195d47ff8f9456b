package lua

import (
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// call records one Invoke received by a testView.
type call struct {
	method string
	param  script.Value
}

// testView records what a script does to its owner. When target is set,
// Invoke forwards into that script.
type testView struct {
	id uint32

	mu        sync.Mutex
	name      string
	calls     []call
	published int
	states    int
	target    *script.Script
}

func (v *testView) ID() uint32            { return v.id }
func (v *testView) Type() script.ViewType { return script.ViewDevice }

func (v *testView) Name() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.name
}

func (v *testView) SetName(name string) {
	v.mu.Lock()
	v.name = name
	v.mu.Unlock()
}

func (v *testView) Invoke(method string, param script.Value) bool {
	v.mu.Lock()
	v.calls = append(v.calls, call{method: method, param: param})
	target := v.target
	v.mu.Unlock()

	if target == nil {
		return true
	}
	return target.Invoke(method, param)
}

func (v *testView) Publish() {
	v.mu.Lock()
	v.published++
	v.mu.Unlock()
}

func (v *testView) PublishState() {
	v.mu.Lock()
	v.states++
	v.mu.Unlock()
}

func (v *testView) snapshot() (calls []call, published, states int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]call(nil), v.calls...), v.published, v.states
}

// recordingLogger keeps Info messages with their key/value pairs.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{msg}, args...)...))
}

func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// startScript compiles content as a dynamic source and initialises a script
// for view. The script is terminated when the test ends.
func startScript(t *testing.T, content string, view script.View, opts ...Option) *script.Script {
	t.Helper()

	p := NewProvider("", opts...)
	src, err := p.CreateSource(1, "test", content)
	if err != nil {
		t.Fatalf("CreateSource() error = %v", err)
	}
	s, err := src.CreateScript(view)
	if err != nil {
		t.Fatalf("CreateScript() error = %v", err)
	}
	if !s.Initialize() {
		t.Fatal("Initialize() = false, want true")
	}
	t.Cleanup(func() { s.Terminate() })
	return s
}

const lampSource = `-- supports: device, room
function setup(ctx)
  ctx:property("power", "boolean", false, "visible", "store")
  ctx:property("level", "number", 0.5, "visible", "store", "initiate_update")
  ctx:property("label", "string", "lamp", "visible")
  ctx:property("count", "integer", 0, "store")
  ctx:attribute("vendor", '"acme"')
  ctx:event("changed")

  ctx:method("toggle", "unknown", function()
    ctx:set("power", not ctx:get("power"))
    ctx:raise("changed", ctx:get("power"))
    view:publish_state()
    return true
  end)

  ctx:method("dim", "number", function(level)
    if level < 0 or level > 1 then
      return false
    end
    return ctx:set("level", level)
  end)

  ctx:method("rename", "string", function(name)
    view:set_name(name)
    view:publish()
    return true
  end)

  ctx:method("relay", "unknown", function()
    return view:invoke("toggle")
  end)

  ctx:method("whoami", "unknown", function()
    return view:id() == 7 and view:type() == "device" and view:name() == "lamp"
  end)

  ctx:method("sandboxed", "unknown", function()
    return load == nil and dofile == nil and require == nil and os == nil and io == nil
  end)

  ctx:method("fail", "unknown", function()
    error("boom")
  end)
end
`
