package script

import "sync"

// invocation records one Invoke call received by a testView.
type invocation struct {
	method string
	param  Value
}

// testView is a View that records invocations.
type testView struct {
	id   uint32
	name string

	mu        sync.Mutex
	calls     []invocation
	published int
	states    int
}

func newTestView(id uint32, name string) *testView {
	return &testView{id: id, name: name}
}

func (v *testView) ID() uint32     { return v.id }
func (v *testView) Type() ViewType { return ViewDevice }
func (v *testView) Name() string   { return v.name }

func (v *testView) SetName(name string) { v.name = name }

func (v *testView) Invoke(method string, param Value) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, invocation{method: method, param: param})
	return true
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

func (v *testView) invocations() []invocation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]invocation(nil), v.calls...)
}

// testSource is a minimal Source for constructing scripts directly.
type testSource struct {
	SourceBase
	behavior func() Behavior
}

func newTestSource(name string, behavior func() Behavior) *testSource {
	return &testSource{
		SourceBase: NewSourceBase(1, name, SupportAll),
		behavior:   behavior,
	}
}

func (s *testSource) Content() string         { return "" }
func (s *testSource) SetContent(string) error { return ErrReadOnlyContent }
func (s *testSource) CreateScript(view View) (*Script, error) {
	return New(view, s, s.behavior())
}

// lampBehavior is a small behaviour exercising every binding kind.
type lampBehavior struct {
	power   bool
	level   float64
	label   string
	address Endpoint
	secret  int64

	toggled    int
	failSetup  bool
	panicSetup bool
	tornDown   bool
}

func (l *lampBehavior) Setup(ctx *Context) error {
	if l.panicSetup {
		ctx.AddProperty("power", FieldProperty(&l.power, Visible))
		panic("setup exploded")
	}
	ctx.AddProperty("power", FieldProperty(&l.power, Visible|Store|InitiateUpdate))
	ctx.AddProperty("level", FieldProperty(&l.level, Visible|Store))
	ctx.AddProperty("label", FieldProperty(&l.label, Visible))
	ctx.AddProperty("address", FieldProperty(&l.address, Store))
	ctx.AddProperty("secret", AccessorProperty(func() int64 { return l.secret }, nil, Visible))
	ctx.AddMethod("toggle", NewAction(func() bool {
		ctx.Locker().Lock()
		l.power = !l.power
		l.toggled++
		ctx.Locker().Unlock()
		ctx.View().PublishState()
		return true
	}))
	ctx.AddEvent("changed")
	ctx.AddAttribute("vendor", []byte(`{"name":"acme"}`))
	if l.failSetup {
		return errTestSetup
	}
	return nil
}

func (l *lampBehavior) Teardown(*Context) {
	l.tornDown = true
}
