// Package debug implements DebugLight, a reference native script used to
// exercise the plugin loader end to end.
//
// The plugin main in plugins/debug exports this package's library
// information and factory:
//
//	go build -buildmode=plugin -o debug.so ./plugins/debug
package debug
