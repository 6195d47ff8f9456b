package home

import (
	"weak"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// HomeID is the identifier the Home view reports.
const HomeID uint32 = 1

// entityView fronts a room, device or service without owning it.
type entityView struct {
	kind script.ViewType
	ptr  weak.Pointer[Entity]
}

func newEntityView(e *Entity) *entityView {
	return &entityView{kind: e.kind, ptr: weak.Make(e)}
}

func (v *entityView) ID() uint32 {
	if e := v.ptr.Value(); e != nil {
		return e.ID()
	}
	return 0
}

func (v *entityView) Type() script.ViewType { return v.kind }

func (v *entityView) Name() string {
	if e := v.ptr.Value(); e != nil {
		return e.Name()
	}
	return ""
}

func (v *entityView) SetName(name string) {
	if e := v.ptr.Value(); e != nil {
		e.SetName(name)
	}
}

func (v *entityView) Invoke(method string, param script.Value) bool {
	if e := v.ptr.Value(); e != nil {
		return e.Invoke(method, param)
	}
	return false
}

func (v *entityView) Publish() {
	if e := v.ptr.Value(); e != nil {
		e.Publish()
	}
}

func (v *entityView) PublishState() {
	if e := v.ptr.Value(); e != nil {
		e.PublishState()
	}
}

// homeView fronts the Home itself. The Home runs no script, so Invoke
// always reports false; Publish and PublishState fan out to every entity.
type homeView struct {
	ptr weak.Pointer[Home]
}

func (v *homeView) ID() uint32 {
	if v.ptr.Value() != nil {
		return HomeID
	}
	return 0
}

func (v *homeView) Type() script.ViewType { return script.ViewHome }

func (v *homeView) Name() string {
	if h := v.ptr.Value(); h != nil {
		return h.Name()
	}
	return ""
}

func (v *homeView) SetName(name string) {
	if h := v.ptr.Value(); h != nil {
		h.SetName(name)
	}
}

func (v *homeView) Invoke(string, script.Value) bool { return false }

func (v *homeView) Publish() {
	if h := v.ptr.Value(); h != nil {
		for _, e := range h.all() {
			e.Publish()
		}
	}
}

func (v *homeView) PublishState() {
	if h := v.ptr.Value(); h != nil {
		for _, e := range h.all() {
			e.PublishState()
		}
	}
}
