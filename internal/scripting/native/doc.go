// Package native loads script libraries compiled as Go plugins.
//
// A library is a file built with -buildmode=plugin that exports
// GetLibraryInformations and, for each declared script without an explicit
// Factory, a Create<ScriptName> function (see package script). The Provider
// scans a directory tree once at construction and registers every script as
// "<library>.<script>".
//
// Module loading goes through an Opener so the scan can be exercised with
// in-memory modules:
//
//	p := native.NewProvider(cfg.Scripting.PluginDir,
//	    native.WithSuffixes(cfg.Scripting.PluginSuffix),
//	    native.WithLogger(log),
//	)
package native
