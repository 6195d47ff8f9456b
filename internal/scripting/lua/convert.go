package lua

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// toLua converts a Value to its Lua form. Composite kinds become tables with
// a _class field, mirroring their JSON shape.
func toLua(L *lua.LState, v script.Value) lua.LValue {
	switch v.Kind() {
	case script.KindBoolean:
		return lua.LBool(v.AsBool())
	case script.KindInteger:
		return lua.LNumber(v.AsInt())
	case script.KindNumber:
		return lua.LNumber(v.AsNumber())
	case script.KindString:
		return lua.LString(v.AsString())
	case script.KindEndpoint:
		ep := v.AsEndpoint()
		t := L.NewTable()
		t.RawSetString("_class", lua.LString("endpoint"))
		t.RawSetString("host", lua.LString(ep.Host))
		t.RawSetString("port", lua.LNumber(ep.Port))
		return t
	case script.KindColor:
		c := v.AsColor()
		t := L.NewTable()
		t.RawSetString("_class", lua.LString("color"))
		t.RawSetString("r", lua.LNumber(c.R))
		t.RawSetString("g", lua.LNumber(c.G))
		t.RawSetString("b", lua.LNumber(c.B))
		return t
	default:
		return lua.LNil
	}
}

// fromLua converts a Lua value to a Value. As with JSON, an integral number
// becomes an integer unless hint is KindNumber. Unconvertible input yields
// the unknown Value.
func fromLua(lv lua.LValue, hint script.Kind) script.Value {
	switch x := lv.(type) {
	case lua.LBool:
		return script.BoolValue(bool(x))
	case lua.LNumber:
		n := float64(x)
		if hint != script.KindNumber && n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return script.IntValue(int64(n))
		}
		return script.NumberValue(n)
	case lua.LString:
		return script.StringValue(string(x))
	case *lua.LTable:
		return tableValue(x)
	default:
		return script.Value{}
	}
}

func tableValue(t *lua.LTable) script.Value {
	class, _ := t.RawGetString("_class").(lua.LString)
	switch class {
	case "endpoint":
		host, ok := t.RawGetString("host").(lua.LString)
		if !ok {
			return script.Value{}
		}
		port, ok := boundedNumber(t.RawGetString("port"), math.MaxUint16)
		if !ok {
			return script.Value{}
		}
		return script.EndpointValue(string(host), uint16(port))
	case "color":
		r, okR := boundedNumber(t.RawGetString("r"), math.MaxUint8)
		g, okG := boundedNumber(t.RawGetString("g"), math.MaxUint8)
		b, okB := boundedNumber(t.RawGetString("b"), math.MaxUint8)
		if !okR || !okG || !okB {
			return script.Value{}
		}
		return script.ColorValue(uint8(r), uint8(g), uint8(b))
	default:
		return script.Value{}
	}
}

// boundedNumber accepts an integral Lua number in [0, limit].
func boundedNumber(lv lua.LValue, limit float64) (uint64, bool) {
	n, ok := lv.(lua.LNumber)
	if !ok {
		return 0, false
	}
	f := float64(n)
	if f != math.Trunc(f) || f < 0 || f > limit {
		return 0, false
	}
	return uint64(f), true
}

// zeroValue returns the zero Value of kind.
func zeroValue(kind script.Kind) script.Value {
	switch kind {
	case script.KindBoolean:
		return script.BoolValue(false)
	case script.KindInteger:
		return script.IntValue(0)
	case script.KindNumber:
		return script.NumberValue(0)
	case script.KindString:
		return script.StringValue("")
	case script.KindEndpoint:
		return script.EndpointValue("", 0)
	case script.KindColor:
		return script.ColorValue(0, 0, 0)
	default:
		return script.Value{}
	}
}

// cellProperty binds a property of type T to a Value cell.
func cellProperty[T script.Scalar](cell *script.Value, flags script.Flags) *script.Property {
	return script.AccessorProperty(
		func() T {
			v, _ := script.As[T](*cell)
			return v
		},
		func(v T) { *cell = script.ValueOf(v) },
		flags,
	)
}

// newCellProperty picks the type witness for a runtime kind.
func newCellProperty(kind script.Kind, cell *script.Value, flags script.Flags) *script.Property {
	switch kind {
	case script.KindBoolean:
		return cellProperty[bool](cell, flags)
	case script.KindInteger:
		return cellProperty[int64](cell, flags)
	case script.KindNumber:
		return cellProperty[float64](cell, flags)
	case script.KindString:
		return cellProperty[string](cell, flags)
	case script.KindEndpoint:
		return cellProperty[script.Endpoint](cell, flags)
	case script.KindColor:
		return cellProperty[script.Color](cell, flags)
	default:
		return nil
	}
}

// methodOf binds a method of type T that forwards the parameter as a Value.
func methodOf[T script.Scalar](call func(script.Value) bool) *script.Method {
	return script.NewMethod(func(v T) bool { return call(script.ValueOf(v)) })
}

// newMethod picks the type witness for a runtime parameter kind. Unknown
// kinds produce an action that ignores its parameter.
func newMethod(kind script.Kind, call func(script.Value) bool) *script.Method {
	switch kind {
	case script.KindBoolean:
		return methodOf[bool](call)
	case script.KindInteger:
		return methodOf[int64](call)
	case script.KindNumber:
		return methodOf[float64](call)
	case script.KindString:
		return methodOf[string](call)
	case script.KindEndpoint:
		return methodOf[script.Endpoint](call)
	case script.KindColor:
		return methodOf[script.Color](call)
	default:
		return script.NewAction(func() bool { return call(script.Value{}) })
	}
}
