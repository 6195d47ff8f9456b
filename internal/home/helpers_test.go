package home

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// counterSource builds counter scripts for any domain type.
type counterSource struct {
	script.SourceBase
}

func (s *counterSource) Content() string         { return "" }
func (s *counterSource) SetContent(string) error { return script.ErrReadOnlyContent }
func (s *counterSource) CreateScript(view script.View) (*script.Script, error) {
	return script.New(view, s, &counterBehavior{})
}

// counterBehavior keeps a stored count and a visible label.
//
//	bump        count++, publish state, raise "bumped"
//	add(int)    count += n
//	rename(str) rename the owner and publish it
type counterBehavior struct {
	count int64
	label string
}

func (b *counterBehavior) Setup(ctx *script.Context) error {
	ctx.AddProperty("count", script.FieldProperty(&b.count, script.Visible|script.Store|script.InitiateUpdate))
	ctx.AddProperty("label", script.FieldProperty(&b.label, script.Visible))
	bumped := ctx.AddEvent("bumped")

	ctx.AddMethod("bump", script.NewAction(func() bool {
		l := ctx.Locker()
		l.Lock()
		b.count++
		n := b.count
		l.Unlock()

		ctx.View().PublishState()
		bumped.Invoke(script.IntValue(n))
		return true
	}))
	ctx.AddMethod("add", script.NewMethod(func(n int64) bool {
		l := ctx.Locker()
		l.Lock()
		defer l.Unlock()
		b.count += n
		return true
	}))
	ctx.AddMethod("rename", script.NewMethod(func(name string) bool {
		ctx.View().SetName(name)
		ctx.View().Publish()
		return true
	}))
	ctx.AddAttribute("model", json.RawMessage(`"counter"`))
	return nil
}

var errBrokenSource = errors.New("broken source")

// fakeFactory serves counter scripts for source 1. Any other id fails.
type fakeFactory struct {
	mu      sync.Mutex
	created int
}

func (f *fakeFactory) CreateScript(sourceID uint32, required script.Support, view script.View) (*script.Script, error) {
	if sourceID != 1 {
		return nil, errBrokenSource
	}
	f.mu.Lock()
	f.created++
	f.mu.Unlock()
	src := &counterSource{SourceBase: script.NewSourceBase(1, "counter", script.SupportAll)}
	return src.CreateScript(view)
}

type published struct {
	kind    script.ViewType
	id      uint32
	payload string
}

// fakePublisher records every publish.
type fakePublisher struct {
	mu     sync.Mutex
	states []published
	config []published
}

func (p *fakePublisher) PublishState(t script.ViewType, id uint32, state json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, published{kind: t, id: id, payload: string(state)})
	return nil
}

func (p *fakePublisher) PublishConfig(t script.ViewType, id uint32, config json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = append(p.config, published{kind: t, id: id, payload: string(config)})
	return nil
}

func (p *fakePublisher) snapshot() (states, config []published) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.states...), append([]published(nil), p.config...)
}

type recorded struct {
	kind  script.ViewType
	id    uint32
	name  string
	state map[string]script.Value
}

// fakeRecorder records every state sample.
type fakeRecorder struct {
	mu      sync.Mutex
	samples []recorded
}

func (r *fakeRecorder) RecordState(t script.ViewType, id uint32, name string, state map[string]script.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, recorded{kind: t, id: id, name: name, state: state})
}

func (r *fakeRecorder) snapshot() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.samples...)
}

type testHome struct {
	*Home
	repo      *MemoryRepository
	factory   *fakeFactory
	publisher *fakePublisher
	recorder  *fakeRecorder
}

func newTestHome(records ...Record) *testHome {
	th := &testHome{
		repo:      NewMemoryRepository(records...),
		factory:   &fakeFactory{},
		publisher: &fakePublisher{},
		recorder:  &fakeRecorder{},
	}
	th.Home = New(Deps{
		Name:       "test home",
		Scripts:    th.factory,
		Repository: th.repo,
		Publisher:  th.publisher,
		Recorder:   th.recorder,
	})
	return th
}
