// Package internal provides the core types and implementation of filestorage.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/filestorage" instead, which re-exports the public API.
//
// # Core Types
//
//   - StorageContainer: tree of named stores with late-bound handlers and one-time finalization
//   - Handler: binds a Backend to a base URL, a path prefix and a filter chain
//   - Folder: path-scoped view over a container's handler, usable as a handler itself
//   - Backend, BlockingBackend, NonBlockingBackend: the contract a storage medium implements
//   - Filter, AsyncFilter, FilterFunc: transforms and validators run before a save
//   - FileItem, Reader: the file in transit and its scoped stream
//   - Future: the result of a non-blocking call
//   - Mode: the capability tag selecting the blocking or non-blocking method set
//
// # Call Modes
//
// Every Handler, Backend and Filter declares a Mode once. Blocking calls such
// as SaveFile run on the caller's goroutine; non-blocking calls such as
// SaveFileAsync return a *Future immediately. A call in a mode the handler
// does not support fails with a *ConfigError wrapping ErrModeMismatch before
// the backend is touched.
//
// # Lifecycle
//
// Stores are created on first access with Store and may be referenced before
// any handler exists. SetHandler binds a handler, or disables the store when
// given nil. FinalizeConfig validates every handler of the subtree and then
// freezes it; after that, handlers cannot be reassigned and new stores cannot
// be created.
package internal
