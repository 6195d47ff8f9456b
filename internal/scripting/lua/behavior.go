package lua

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// behavior runs one Lua chunk as a script.Behavior.
//
// Every script gets its own Lua state. Calls into Lua are serialised by mu.
// Property values live in Go-side cells guarded by the script's state lock,
// so the host can read them without entering Lua.
//
// Event raises and view invocations made from Lua are queued and delivered
// after the current Lua call returns, once mu is released. A script can
// therefore target its own view without deadlocking.
type behavior struct {
	name    string
	proto   *lua.FunctionProto
	timeout time.Duration
	logger  Logger

	mu     sync.Mutex
	L      *lua.LState
	outbox []func()

	ctx    *script.Context
	cells  map[string]*script.Value
	kinds  map[string]script.Kind
	events map[string]*script.Event
}

func newBehavior(name string, proto *lua.FunctionProto, timeout time.Duration, logger Logger) *behavior {
	return &behavior{
		name:    name,
		proto:   proto,
		timeout: timeout,
		logger:  logger,
		cells:   make(map[string]*script.Value),
		kinds:   make(map[string]script.Kind),
		events:  make(map[string]*script.Event),
	}
}

// Setup runs the chunk and then its global setup(ctx) function.
func (b *behavior) Setup(ctx *script.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.cells = make(map[string]*script.Value)
	b.kinds = make(map[string]script.Kind)
	b.events = make(map[string]*script.Event)
	b.L = newSandbox(b.logger, b.name)
	b.L.SetGlobal("view", b.viewTable())

	err := b.runSetup()
	pending := b.takeOutbox()
	if err != nil {
		// A failed setup leaves nothing to tear down.
		b.L.Close()
		b.L = nil
		pending = nil
	}
	b.mu.Unlock()

	b.deliver(pending)
	return err
}

func (b *behavior) runSetup() error {
	chunk := b.L.NewFunctionFromProto(b.proto)
	if _, err := b.callValue(chunk); err != nil {
		return fmt.Errorf("running %s: %w", b.name, err)
	}
	setup, ok := b.L.GetGlobal("setup").(*lua.LFunction)
	if !ok {
		return ErrNoSetup
	}
	ret, err := b.callValue(setup, b.contextTable())
	if err != nil {
		return fmt.Errorf("setup %s: %w", b.name, err)
	}
	if ret == lua.LFalse {
		return fmt.Errorf("setup %s: returned false", b.name)
	}
	return nil
}

// Teardown calls the optional global teardown() and closes the state.
func (b *behavior) Teardown(*script.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.L == nil {
		return
	}
	if fn, ok := b.L.GetGlobal("teardown").(*lua.LFunction); ok {
		if _, err := b.callValue(fn); err != nil {
			b.logger.Warn("lua teardown failed", "source", b.name, "error", err)
		}
	}
	b.outbox = nil
	b.L.Close()
	b.L = nil
}

// invoke calls fn with param on behalf of a script method.
// A Lua function that returns false or raises an error reports false.
func (b *behavior) invoke(fn *lua.LFunction, param script.Value) bool {
	b.mu.Lock()
	if b.L == nil {
		b.mu.Unlock()
		return false
	}
	ret, err := b.callValue(fn, toLua(b.L, param))
	pending := b.takeOutbox()
	b.mu.Unlock()

	b.deliver(pending)

	if err != nil {
		b.logger.Warn("lua method failed", "source", b.name, "error", err)
		return false
	}
	return ret != lua.LFalse
}

// callValue calls fn and returns its first result. Caller holds mu.
func (b *behavior) callValue(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	top := b.L.GetTop()
	b.L.Push(fn)
	for _, arg := range args {
		b.L.Push(arg)
	}
	if err := b.pcall(len(args)); err != nil {
		b.L.SetTop(top)
		return lua.LNil, err
	}
	ret := b.L.Get(top + 1)
	b.L.SetTop(top)
	return ret, nil
}

// pcall calls the function below nargs arguments on the stack with the
// configured timeout, leaving one result. Caller holds mu.
func (b *behavior) pcall(nargs int) (err error) {
	callCtx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	b.L.SetContext(callCtx)
	defer b.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return b.L.PCall(nargs, 1, nil)
}

func (b *behavior) enqueue(fn func()) {
	b.outbox = append(b.outbox, fn)
}

func (b *behavior) takeOutbox() []func() {
	pending := b.outbox
	b.outbox = nil
	return pending
}

func (b *behavior) deliver(pending []func()) {
	for _, fn := range pending {
		fn()
	}
}

// contextTable builds the ctx object passed to setup. Its functions are
// called with colon syntax, so argument 1 is the table itself.
func (b *behavior) contextTable() *lua.LTable {
	L := b.L
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"property":  b.luaProperty,
		"method":    b.luaMethod,
		"event":     b.luaEvent,
		"attribute": b.luaAttribute,
		"get":       b.luaGet,
		"set":       b.luaSet,
		"raise":     b.luaRaise,
		"log":       b.luaLog,
	})
}

// ctx:property(name, kind, default, flag...)
func (b *behavior) luaProperty(L *lua.LState) int {
	name := L.CheckString(2)
	kind := script.ParseKind(L.CheckString(3))
	if kind == script.KindUnknown {
		L.ArgError(3, "unknown kind")
		return 0
	}
	initial := fromLua(L.Get(4), kind)
	if initial.Kind() != kind {
		initial = zeroValue(kind)
	}
	var names []string
	for i := 5; i <= L.GetTop(); i++ {
		names = append(names, L.CheckString(i))
	}

	cell := &initial
	ok := b.ctx.AddProperty(name, newCellProperty(kind, cell, script.ParseFlags(names...)))
	if ok {
		b.cells[name] = cell
		b.kinds[name] = kind
	}
	L.Push(lua.LBool(ok))
	return 1
}

// ctx:method(name, kind, fn)
func (b *behavior) luaMethod(L *lua.LState) int {
	name := L.CheckString(2)
	kind := script.ParseKind(L.OptString(3, "unknown"))
	fn := L.CheckFunction(4)

	m := newMethod(kind, func(param script.Value) bool {
		return b.invoke(fn, param)
	})
	L.Push(lua.LBool(b.ctx.AddMethod(name, m)))
	return 1
}

// ctx:event(name)
func (b *behavior) luaEvent(L *lua.LState) int {
	name := L.CheckString(2)
	e := b.ctx.AddEvent(name)
	if e != nil {
		b.events[name] = e
	}
	L.Push(lua.LBool(e != nil))
	return 1
}

// ctx:attribute(name, json)
func (b *behavior) luaAttribute(L *lua.LState) int {
	name := L.CheckString(2)
	raw := L.CheckString(3)
	L.Push(lua.LBool(b.ctx.AddAttribute(name, json.RawMessage(raw))))
	return 1
}

// ctx:get(name)
func (b *behavior) luaGet(L *lua.LState) int {
	cell, ok := b.cells[L.CheckString(2)]
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	lock := b.ctx.Locker()
	lock.Lock()
	v := *cell
	lock.Unlock()

	L.Push(toLua(L, v))
	return 1
}

// ctx:set(name, value)
func (b *behavior) luaSet(L *lua.LState) int {
	name := L.CheckString(2)
	cell, ok := b.cells[name]
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	kind := b.kinds[name]
	v := fromLua(L.Get(3), kind)
	if v.Kind() != kind {
		L.Push(lua.LFalse)
		return 1
	}
	lock := b.ctx.Locker()
	lock.Lock()
	*cell = v
	lock.Unlock()

	L.Push(lua.LTrue)
	return 1
}

// ctx:raise(name, value) queues the event for delivery after the call.
func (b *behavior) luaRaise(L *lua.LState) int {
	name := L.CheckString(2)
	param := fromLua(L.Get(3), script.KindUnknown)

	e, ok := b.events[name]
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	b.enqueue(func() { e.Invoke(param) })
	L.Push(lua.LTrue)
	return 1
}

// ctx:log(message)
func (b *behavior) luaLog(L *lua.LState) int {
	b.logger.Info("lua log", "source", b.name, "message", L.CheckString(2))
	return 0
}

// viewTable builds the view global.
func (b *behavior) viewTable() *lua.LTable {
	L := b.L
	view := b.ctx.View()
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"id": func(L *lua.LState) int {
			L.Push(lua.LNumber(view.ID()))
			return 1
		},
		"name": func(L *lua.LState) int {
			L.Push(lua.LString(view.Name()))
			return 1
		},
		"type": func(L *lua.LState) int {
			L.Push(lua.LString(view.Type().String()))
			return 1
		},
		"set_name": func(L *lua.LState) int {
			view.SetName(L.CheckString(2))
			return 0
		},
		"publish": func(L *lua.LState) int {
			b.enqueue(view.Publish)
			return 0
		},
		"publish_state": func(L *lua.LState) int {
			b.enqueue(view.PublishState)
			return 0
		},
		"invoke": func(L *lua.LState) int {
			method := L.CheckString(2)
			param := fromLua(L.Get(3), script.KindUnknown)
			b.enqueue(func() { view.Invoke(method, param) })
			L.Push(lua.LTrue)
			return 1
		},
	})
}
