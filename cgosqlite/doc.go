// Package cgosqlite is a low-level interface onto SQLite using cgo.
//
// This package is designed to have as few opinions as possible.
// It wraps the SQLite3 C API with functions that are Go-friendly
// and implements the sqliteh interfaces with them. It links against
// the system libsqlite3.
//
// Users of this package do not need to use any cgo, which means
// code using cgosqlite can focus on semantic transform of the API,
// not C<->Go transforms.
//
// One C rule leaks through: BindBlob64 does not copy its argument.
// Callers must pin the buffer and keep it alive while it is bound.
package cgosqlite
