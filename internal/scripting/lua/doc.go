// Package lua is a script provider running Lua sources on gopher-lua.
//
// A Lua source defines a global setup(ctx) that registers bindings:
//
//	-- supports: device
//	function setup(ctx)
//	  ctx:property("power", "boolean", false, "visible", "store")
//	  ctx:event("toggled")
//	  ctx:method("toggle", "unknown", function()
//	    ctx:set("power", not ctx:get("power"))
//	    ctx:raise("toggled", ctx:get("power"))
//	    view:publish_state()
//	    return true
//	  end)
//	end
//
// The global view exposes id, name, type, set_name, publish, publish_state
// and invoke. Each script runs in its own state with only the base, table,
// string and math libraries; every call is bounded by a timeout.
package lua
