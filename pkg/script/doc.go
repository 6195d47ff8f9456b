// Package script is the reflection layer between script code and the
// JSON-driven protocol of Gray Logic Home.
//
// A Script is created by a Source for one domain object (room, device or
// service). During Initialize the script's Behavior registers typed
// properties, methods, events and attributes through a Context. Afterwards
// the host reads and writes script state only through the Script's property
// projection (JSONGetProperties/JSONSetProperties) and Invoke.
//
// # Values
//
// Value is a closed tagged type over boolean, integer, number, string,
// endpoint and colour. Typed accessors never fail; they return the zero value
// of the requested kind on mismatch. Endpoint and colour encode to JSON with
// a "_class" discriminator:
//
//	{"_class":"endpoint","host":"10.0.0.4","port":502}
//	{"_class":"color","r":255,"g":128,"b":0}
//
// # Bindings
//
// Properties and methods are built with generic constructors whose type
// parameter is the kind witness:
//
//	ctx.AddProperty("power", script.FieldProperty(&l.power, script.Visible|script.Store))
//	ctx.AddMethod("toggle", script.NewAction(l.toggle))
//
// A value of the wrong kind is never applied: Set and Invoke report false.
//
// # Views and events
//
// A View is a non-owning handle to the domain object. When the owner is gone
// the view resolves to neutral results (ID 0, empty name, no-op publish).
// Event targets are held through WeakView handles and are skipped once
// collected; each binding is owned by its EventConnection.
//
// # Plugins
//
// Native plugins export GetLibraryInformations and one Create<ScriptName>
// factory per script (see library.go). Plugin code runs behind recover
// boundaries: panics become false/nil results.
package script
