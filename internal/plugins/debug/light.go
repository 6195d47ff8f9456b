package debug

import (
	"encoding/json"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// Library metadata.
const (
	LibraryName = "debug"
	ScriptName  = "DebugLight"
	Version     = "1.0.0"
)

// Information returns the library metadata. The script carries no Factory,
// so the host resolves it from the CreateDebugLight symbol.
func Information() script.LibraryInformation {
	return script.LibraryInformation{
		LibraryName: LibraryName,
		ProductName: "Gray Logic debug scripts",
		Version:     Version,
		License:     "MIT",
		Authors:     []string{"Gray Logic"},
		Scripts: []script.ScriptInformation{
			{
				ScriptName:  ScriptName,
				DisplayName: "Debug light",
				Flags:       script.DeviceSupport,
			},
		},
	}
}

// CreateDebugLight builds a DebugLight script bound to view.
func CreateDebugLight(view script.View, source script.Source) (*script.Script, error) {
	return script.New(view, source, &Light{})
}

// Light is a virtual lamp kept in memory. Changes are announced through
// the view.
type Light struct {
	power   bool
	color   script.Color
	address script.Endpoint
	text    string

	ctx     *script.Context
	changed *script.Event
}

// Setup registers the light's bindings.
func (l *Light) Setup(ctx *script.Context) error {
	l.ctx = ctx
	l.color = script.Color{R: 255, G: 255, B: 255}

	visible := script.Visible | script.Store | script.InitiateUpdate
	ctx.AddProperty("power", script.FieldProperty(&l.power, visible))
	ctx.AddProperty("color", script.FieldProperty(&l.color, visible))
	ctx.AddProperty("address", script.FieldProperty(&l.address, script.Visible|script.Store))
	ctx.AddProperty("text", script.FieldProperty(&l.text, script.Visible))

	ctx.AddMethod("toggle", script.NewAction(l.toggle))
	ctx.AddMethod("set_power", script.NewMethod(l.setPower))
	ctx.AddMethod("set_color", script.NewMethod(l.setColor))
	ctx.AddMethod("set_text", script.NewMethod(l.setText))

	l.changed = ctx.AddEvent("power_changed")

	ctx.AddAttribute("model", json.RawMessage(`"debug-light"`))
	ctx.AddAttribute("dimmable", json.RawMessage(`false`))
	return nil
}

// Teardown stops power_changed notifications.
func (l *Light) Teardown(ctx *script.Context) {
	lock := ctx.Locker()
	lock.Lock()
	l.changed = nil
	lock.Unlock()
}

func (l *Light) toggle() bool {
	lock := l.ctx.Locker()
	lock.Lock()
	l.power = !l.power
	power := l.power
	changed := l.changed
	lock.Unlock()

	l.announce(changed, power)
	return true
}

func (l *Light) setPower(on bool) bool {
	lock := l.ctx.Locker()
	lock.Lock()
	differs := l.power != on
	l.power = on
	changed := l.changed
	lock.Unlock()

	if differs {
		l.announce(changed, on)
	}
	return true
}

func (l *Light) setColor(c script.Color) bool {
	lock := l.ctx.Locker()
	lock.Lock()
	l.color = c
	lock.Unlock()

	l.ctx.View().PublishState()
	return true
}

func (l *Light) setText(text string) bool {
	lock := l.ctx.Locker()
	lock.Lock()
	l.text = text
	lock.Unlock()

	l.ctx.View().PublishState()
	return true
}

// announce must be called without the state lock held.
func (l *Light) announce(changed *script.Event, power bool) {
	if changed != nil {
		changed.Invoke(script.BoolValue(power))
	}
	l.ctx.View().PublishState()
}
