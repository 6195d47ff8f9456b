package script

// Plugin ABI.
//
// A native plugin is a Go plugin (go build -buildmode=plugin) built against
// this package. It exports:
//
//	func GetLibraryInformations() script.LibraryInformation
//	func Create<ScriptName>(script.View, script.Source) (*script.Script, error)
//
// The host resolves a script's factory from ScriptInformation.Factory, or
// from the Create<ScriptName> symbol when Factory is nil.
const (
	// LibraryInformationSymbol is the metadata entry point every plugin exports.
	LibraryInformationSymbol = "GetLibraryInformations"

	// FactorySymbolPrefix prefixes the per-script factory symbols.
	FactorySymbolPrefix = "Create"
)

// Factory builds a script bound to view for the given source.
type Factory func(view View, source Source) (*Script, error)

// LibraryInformationFunc is the signature of the metadata entry point.
type LibraryInformationFunc = func() LibraryInformation

// FactoryFunc is the signature of an exported factory symbol.
type FactoryFunc = func(View, Source) (*Script, error)

// ScriptInformation declares one script exported by a library.
type ScriptInformation struct {
	ScriptName  string
	DisplayName string
	Flags       Support
	Factory     Factory
}

// LibraryInformation is the metadata a plugin returns from its entry point.
type LibraryInformation struct {
	LibraryName  string
	ProductName  string
	Version      string
	License      string
	Authors      []string
	Dependencies []string
	Scripts      []ScriptInformation
}

// FactorySymbol returns the exported symbol name of a script's factory.
func FactorySymbol(scriptName string) string {
	return FactorySymbolPrefix + scriptName
}
