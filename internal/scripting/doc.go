// Package scripting hosts script providers and the sources they produce.
//
// The Manager keeps an ordered list of providers (native plugins, Lua) and a
// provider-spanning map from source id to source. Domain objects ask the
// Manager for a script by source id and required domain type; the Manager
// checks the source's support flags and delegates to the source.
//
// Source ids are assigned by a SourceRepository so they survive restarts:
//
//	mgr := scripting.NewManager()
//	mgr.AddProvider(nativeProvider)
//	mgr.Bootstrap(ctx, scripting.NewSQLiteSourceRepository(db.DB))
//	s, err := mgr.CreateScript(sourceID, script.DeviceSupport, view)
package scripting
