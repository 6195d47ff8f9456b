package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// unsafeGlobals are base library functions that load code from outside the
// source or reach the module system.
var unsafeGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
}

// newSandbox creates a Lua state with only the base, table, string and math
// libraries. print is routed to the logger.
func newSandbox(logger Logger, sourceName string) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		logger.Info("lua print",
			"source", sourceName,
			"message", strings.Join(parts, "\t"),
		)
		return 0
	}))
	return L
}
