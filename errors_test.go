// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bagkit/sqlite/sqliteh"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{
			err:  &Error{Kind: PrepareError, Code: sqliteh.SQLITE_ERROR, Loc: "Prepare", Query: "SELECT * FROM nope", Msg: "no such table: nope"},
			want: "sqlite.Prepare: SQLITE_ERROR: no such table: nope (SELECT * FROM nope)",
		},
		{
			err:  &Error{Kind: BindError, Code: sqliteh.SQLITE_RANGE, Loc: "Bind", Query: "SELECT 1", Msg: "column index out of range", Param: 1, Value: "5"},
			want: "sqlite.Bind: SQLITE_RANGE: binding parameter 1 to value '5': column index out of range (SELECT 1)",
		},
		{
			err:  &Error{Kind: StepError, Code: sqliteh.SQLITE_CONSTRAINT_UNIQUE},
			want: "sqlite: SQLITE_CONSTRAINT_UNIQUE",
		},
		{
			err:  &Error{Kind: EngineError, Code: sqliteh.Code(sqliteh.SQLITE_IOERR | 99<<8), Loc: "Reset"},
			want: "sqlite.Reset: SQLITE_IOERR(25354)",
		},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error()=%q\n          want %q", got, tt.want)
		}
	}
}

func TestErrorIs(t *testing.T) {
	var err error = &Error{Kind: CursorError, Code: sqliteh.SQLITE_MISUSE}
	err = fmt.Errorf("reading: %w", err)

	kinds := []ErrorKind{EngineError, PrepareError, BindError, StepError, CursorError}
	for _, k := range kinds {
		if got, want := errors.Is(err, k), k == CursorError; got != want {
			t.Errorf("errors.Is(err, %v)=%v, want %v", k, got, want)
		}
	}
	if !errors.Is(err, sqliteh.ErrCode(sqliteh.SQLITE_MISUSE)) {
		t.Error("errors.Is(err, SQLITE_MISUSE) is false")
	}
	var code sqliteh.ErrCode
	if !errors.As(err, &code) || code != sqliteh.ErrCode(sqliteh.SQLITE_MISUSE) {
		t.Errorf("errors.As code=%v", code)
	}
}

func TestErrorKindString(t *testing.T) {
	if got, want := BindError.Error(), "sqlite: BindError"; got != want {
		t.Errorf("BindError.Error()=%q, want %q", got, want)
	}
	if got, want := ErrorKind(9).String(), "ErrorKind(9)"; got != want {
		t.Errorf("String()=%q, want %q", got, want)
	}
}

func TestEngineErrNonCode(t *testing.T) {
	e := engineErr(nil, StepError, "Step", "SELECT 1", errors.New("boom"))
	if e.Code != sqliteh.SQLITE_ERROR || e.Msg != "boom" {
		t.Errorf("got %+v", e)
	}
}
