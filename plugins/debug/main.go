// Command debug is the DebugLight native plugin.
//
//	go build -buildmode=plugin -o debug.so ./plugins/debug
package main

import (
	"github.com/nerrad567/gray-logic-home/internal/plugins/debug"
	"github.com/nerrad567/gray-logic-home/pkg/script"
)

// GetLibraryInformations is the plugin metadata entry point.
func GetLibraryInformations() script.LibraryInformation {
	return debug.Information()
}

// CreateDebugLight is the DebugLight factory.
func CreateDebugLight(view script.View, source script.Source) (*script.Script, error) {
	return debug.CreateDebugLight(view, source)
}

func main() {}
