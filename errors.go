// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"strconv"
	"strings"

	"github.com/bagkit/sqlite/sqliteh"
)

// ErrorKind classifies an Error by the operation that failed.
//
// ErrorKind is itself an error so it can be used as an errors.Is target:
//
//	if errors.Is(err, sqlite.BindError) { ... }
type ErrorKind int

const (
	EngineError  ErrorKind = iota // any other non-success engine code
	PrepareError                  // query text rejected by the engine
	BindError                     // a parameter could not be bound
	StepError                     // step reported neither a row nor done
	CursorError                   // row sequence used against its contract
)

func (k ErrorKind) String() string {
	switch k {
	case EngineError:
		return "EngineError"
	case PrepareError:
		return "PrepareError"
	case BindError:
		return "BindError"
	case StepError:
		return "StepError"
	case CursorError:
		return "CursorError"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (k ErrorKind) Error() string { return "sqlite: " + k.String() }

// Error is an error produced by SQLite or by misuse of a Statement.
type Error struct {
	Kind  ErrorKind
	Code  sqliteh.Code // SQLite extended error code (SQLITE_OK is an invalid value)
	Loc   string       // method name that generated the error
	Query string       // original SQL query text
	Msg   string       // value of sqlite3_errmsg, or a description of the misuse

	// Param and Value are set for BindError.
	Param int    // 1-based parameter index
	Value string // string form of the value being bound
}

func (err *Error) Error() string {
	b := new(strings.Builder)
	b.WriteString("sqlite")
	if err.Loc != "" {
		b.WriteByte('.')
		b.WriteString(err.Loc)
	}
	b.WriteString(": ")
	b.WriteString(err.Code.String())
	if err.Kind == BindError {
		b.WriteString(": binding parameter ")
		b.WriteString(strconv.Itoa(err.Param))
		b.WriteString(" to value '")
		b.WriteString(err.Value)
		b.WriteByte('\'')
	}
	if err.Msg != "" {
		b.WriteString(": ")
		b.WriteString(err.Msg)
	}
	if err.Query != "" {
		b.WriteString(" (")
		b.WriteString(err.Query)
		b.WriteByte(')')
	}
	return b.String()
}

// Is reports whether target is the ErrorKind of err.
func (err *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == err.Kind
}

// Unwrap returns the engine code as an sqliteh.ErrCode.
func (err *Error) Unwrap() error {
	return sqliteh.CodeAsError(err.Code)
}

// engineErr builds an Error from an engine error returned by db.
// It returns nil if err is nil.
func engineErr(db sqliteh.DB, kind ErrorKind, loc, query string, err error) *Error {
	if err == nil {
		return nil
	}
	code := sqliteh.SQLITE_ERROR
	if ec, ok := err.(sqliteh.ErrCode); ok {
		code = sqliteh.Code(ec)
	}
	e := &Error{
		Kind:  kind,
		Code:  code,
		Loc:   loc,
		Query: query,
	}
	if db != nil {
		// Prefer the extended code when it refines the one returned.
		if ext := db.ExtendedErrCode(); ext.Primary() == code.Primary() {
			e.Code = ext
		}
		e.Msg = db.ErrMsg()
	}
	if _, ok := err.(sqliteh.ErrCode); !ok {
		e.Msg = err.Error()
	}
	return e
}
