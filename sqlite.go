// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite implements type-safe prepared statements for SQLite3.
//
// A Statement wraps one native sqlite3_stmt. Parameters are bound
// positionally, rows are read as typed tuples, and the statement is
// reused by resetting it:
//
//	stmt, err := sqlite.Prepare(db, "SELECT id, name FROM users WHERE age > ?")
//	if err != nil {
//		return err
//	}
//	defer stmt.Close()
//	if err := stmt.Bind(int64(30)); err != nil {
//		return err
//	}
//	rows, err := sqlite.Query2[int64, string](stmt)
//	if err != nil {
//		return err
//	}
//	for row, err := range rows.All() {
//		if err != nil {
//			return err
//		}
//		fmt.Println(row.V0, row.V1)
//	}
//
// # Binding Types
//
// Five kinds of value are supported: int64 (an int is widened), Timestamp,
// float64, string and []byte. Anything else is a BindError.
//
// Strings are copied by SQLite when bound. Blobs are not: the statement
// holds the caller's slice, pinned, until it is reset or closed, and SQLite
// reads it in place on every step. Do not modify a bound []byte before
// then.
//
// # Reading Rows
//
// Query1 through Query5 read rows of one to five columns into Row1 through
// Row5. Query reads rows with an arbitrary decode function. Column types
// are not checked against the query; SQLite's own conversions apply.
//
// # Errors
//
// Every failure is an *Error. Its Kind says what failed, and works with
// errors.Is:
//
//	if errors.Is(err, sqlite.BindError) { ... }
//
// The SQLite result code is reachable with errors.As into an sqliteh.ErrCode.
//
// # Opening Databases
//
// This package does not manage connections. Open is a convenience wrapper
// for the cgo binding; any sqliteh.DB works.
package sqlite

import (
	"errors"
	"expvar"

	"github.com/bagkit/sqlite/sqliteh"
)

// Open opens an SQLite database connection.
//
// It is set by cgo builds to the system libsqlite3 binding. Without cgo
// it always fails.
var Open sqliteh.OpenFunc = func(string, sqliteh.OpenFlags, string) (sqliteh.DB, error) {
	return nil, errors.New("sqlite: no engine linked, build with cgo")
}

// UsesAfterClose is a metric that is updated when a Statement is used after
// Close, keyed by method.
var UsesAfterClose expvar.Map

// ErrClosed is returned when a Statement is used after Close.
var ErrClosed = errors.New("sqlite: statement closed")
