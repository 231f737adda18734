// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bagkit/sqlite/sqliteh"
)

// Timestamp is a point in time stored as nanoseconds since the Unix epoch.
//
// It shares the INTEGER storage class with int64 but is a distinct kind of
// value: binding a Timestamp stores its nanosecond count, and reading a
// Timestamp column interprets the integer the same way.
type Timestamp int64

// TimestampOf returns the Timestamp of t.
func TimestampOf(t time.Time) Timestamp { return Timestamp(t.UnixNano()) }

// Time returns ts as a time.Time in UTC.
func (ts Timestamp) Time() time.Time { return time.Unix(0, int64(ts)).UTC() }

func (ts Timestamp) String() string { return strconv.FormatInt(int64(ts), 10) }

// ColumnValue is the set of Go types a column can be read as.
type ColumnValue interface {
	int64 | Timestamp | float64 | string | []byte
}

// Columns reads the columns of the row a Statement is currently on.
//
// Column indexes are 0-based, unlike parameter indexes.
//
// No type checking is done: reading a column as a kind other than the one
// the query produces gets whatever conversion SQLite applies
// (https://sqlite.org/c3ref/column_blob.html). Matching the row type to the
// query's result columns is the caller's responsibility.
//
// A Columns is only valid until the statement is stepped or reset.
// The zero Columns, which a finalized statement returns, has no columns
// and reads every column as NULL.
type Columns struct {
	stmt sqliteh.Stmt
}

// Count reports the number of columns in the result.
func (c Columns) Count() int {
	if c.stmt == nil {
		return 0
	}
	return c.stmt.ColumnCount()
}

// Name reports the name of column i.
func (c Columns) Name(i int) string {
	if c.stmt == nil {
		return ""
	}
	return c.stmt.ColumnName(i)
}

// Type reports the storage class of column i in the current row.
func (c Columns) Type(i int) sqliteh.ColumnType {
	if c.stmt == nil {
		return sqliteh.SQLITE_NULL
	}
	return c.stmt.ColumnType(i)
}

// Null reports if column i in the current row is NULL.
func (c Columns) Null(i int) bool { return c.Type(i) == sqliteh.SQLITE_NULL }

func (c Columns) Int64(i int) int64 {
	if c.stmt == nil {
		return 0
	}
	return c.stmt.ColumnInt64(i)
}

func (c Columns) Timestamp(i int) Timestamp { return Timestamp(c.Int64(i)) }

func (c Columns) Double(i int) float64 {
	if c.stmt == nil {
		return 0
	}
	return c.stmt.ColumnDouble(i)
}

func (c Columns) Text(i int) string {
	if c.stmt == nil {
		return ""
	}
	return c.stmt.ColumnText(i)
}

// Blob returns a copy of column i. NULL and empty blobs are returned as nil.
func (c Columns) Blob(i int) []byte {
	if c.stmt == nil {
		return nil
	}
	b := c.stmt.ColumnBlob(i)
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}

// Column reads column i of the current row as a T.
func Column[T ColumnValue](c Columns, i int) T {
	var v T
	switch p := any(&v).(type) {
	case *int64:
		*p = c.Int64(i)
	case *Timestamp:
		*p = c.Timestamp(i)
	case *float64:
		*p = c.Double(i)
	case *string:
		*p = c.Text(i)
	case *[]byte:
		*p = c.Blob(i)
	}
	return v
}

// bindValue binds v to parameter i (1-based) of stmt.
// Blobs must already be retained by the caller.
// If v is not one of the supported kinds, found is false.
func bindValue(stmt sqliteh.Stmt, i int, v any) (found bool, err error) {
	switch v := v.(type) {
	case int64:
		return true, stmt.BindInt64(i, v)
	case int:
		return true, stmt.BindInt64(i, int64(v))
	case Timestamp:
		return true, stmt.BindInt64(i, int64(v))
	case float64:
		return true, stmt.BindDouble(i, v)
	case string:
		return true, stmt.BindText64(i, v)
	case []byte:
		if len(v) == 0 {
			return true, stmt.BindZeroBlob64(i, 0)
		}
		return true, stmt.BindBlob64(i, v)
	default:
		return false, nil
	}
}

// valueString formats v for error messages.
func valueString(v any) string {
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case Timestamp:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case []byte:
		return "blob(" + strconv.Itoa(len(v)) + " bytes)"
	default:
		return fmt.Sprintf("%T(%v)", v, v)
	}
}
