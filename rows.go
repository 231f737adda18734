// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"fmt"
	"iter"

	"github.com/bagkit/sqlite/sqliteh"
)

// posEnd is the position of a cursor with no current row.
const posEnd = -1

// cursor is the part of a Rows that does not depend on the row type.
// A Statement has at most one attached cursor.
type cursor struct {
	stmt     *Statement
	pos      int  // rows fetched so far, or posEnd
	attached bool // holds a reference on stmt
	stale    bool // stmt was reset underneath it
}

// fetch steps the statement. step moves the attached cursor.
func (c *cursor) fetch() error {
	_, err := c.stmt.step()
	return err
}

func (c *cursor) end() {
	c.pos = posEnd
	if !c.attached {
		return
	}
	c.attached = false
	c.stmt.cursor = nil
	c.stmt.release()
}

func (c *cursor) invalidate() {
	c.stale = true
	c.end()
}

// Rows is a forward-only, single-pass sequence of rows of type R read
// from a Statement.
//
// A Rows is positioned on its first row as soon as it is created, so Done
// reports immediately whether the result is empty. The row under the
// cursor is read with Row; Advance moves to the next one.
//
// A Rows shares the Statement's single native cursor: stepping or
// resetting the Statement directly is visible through it, and a Reset
// invalidates it. Only one Rows may read from a Statement at a time.
// To read the results again, Reset the Statement and call Query again.
//
// A Rows holds its Statement open until it finishes. Read it to the end,
// range over All, or call Close.
type Rows[R any] struct {
	c      *cursor
	decode func(Columns) R
}

// Query starts reading rows from s, converting each with decode.
//
// Query does not reset s. A Statement that has not been stepped since its
// last reset yields its full result.
func Query[R any](s *Statement, decode func(Columns) R) (*Rows[R], error) {
	return query(s, 0, decode)
}

func query[R any](s *Statement, arity int, decode func(Columns) R) (*Rows[R], error) {
	if err := s.checkOpen("Query"); err != nil {
		return nil, err
	}
	if s.cursor != nil {
		return nil, &Error{
			Kind:  CursorError,
			Code:  sqliteh.SQLITE_MISUSE,
			Loc:   "Query",
			Query: s.query,
			Msg:   "statement already has active rows",
		}
	}
	if n := s.stmt.ColumnCount(); n < arity {
		return nil, &Error{
			Kind:  CursorError,
			Code:  sqliteh.SQLITE_MISUSE,
			Loc:   "Query",
			Query: s.query,
			Msg:   fmt.Sprintf("query has %d result columns, row type needs %d", n, arity),
		}
	}
	c := &cursor{stmt: s, attached: true}
	s.cursor = c
	s.acquire()
	if err := c.fetch(); err != nil {
		return nil, err
	}
	return &Rows[R]{c: c, decode: decode}, nil
}

// Done reports whether the sequence has no current row.
func (r *Rows[R]) Done() bool { return r.c.pos == posEnd }

// Pos reports the number of rows read so far, counting the current one,
// or -1 once the sequence is done.
func (r *Rows[R]) Pos() int { return r.c.pos }

// Row reads the current row. It does not move the cursor.
// Row returns the zero R when the sequence is done.
func (r *Rows[R]) Row() R {
	if r.Done() {
		var zero R
		return zero
	}
	return r.decode(Columns{stmt: r.c.stmt.stmt})
}

// Advance moves to the next row, or to the end of the sequence.
//
// Advancing a sequence that is already done is a CursorError, as is
// advancing one whose Statement has been reset.
func (r *Rows[R]) Advance() error {
	if r.c.stale {
		return r.cursorErr("statement was reset while its rows were being read")
	}
	if r.Done() {
		return r.cursorErr("cannot advance past end")
	}
	return r.c.fetch()
}

func (r *Rows[R]) cursorErr(msg string) error {
	return &Error{
		Kind:  CursorError,
		Code:  sqliteh.SQLITE_MISUSE,
		Loc:   "Rows.Advance",
		Query: r.c.stmt.query,
		Msg:   msg,
	}
}

// Equal reports whether r and other read from the same Statement and are
// at the same position. All done sequences of a Statement are equal.
// No sequence equals nil.
func (r *Rows[R]) Equal(other *Rows[R]) bool {
	if other == nil {
		return false
	}
	return r.c.stmt == other.c.stmt && r.c.pos == other.c.pos
}

// Close abandons the sequence. It does not reset the Statement.
func (r *Rows[R]) Close() { r.c.end() }

// All returns an iterator over the remaining rows.
// An error ends the iteration and is yielded with the zero R.
// Leaving the loop early closes r.
//
//	for row, err := range rows.All() {
//		if err != nil {
//			return err
//		}
//		...
//	}
func (r *Rows[R]) All() iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for !r.Done() {
			if !yield(r.Row(), nil) {
				r.Close()
				return
			}
			if err := r.Advance(); err != nil {
				var zero R
				yield(zero, err)
				return
			}
		}
	}
}

// Row1 through Row5 are rows of one to five typed columns.
// Field Vi holds column i.
type (
	Row1[T0 ColumnValue] struct {
		V0 T0
	}
	Row2[T0, T1 ColumnValue] struct {
		V0 T0
		V1 T1
	}
	Row3[T0, T1, T2 ColumnValue] struct {
		V0 T0
		V1 T1
		V2 T2
	}
	Row4[T0, T1, T2, T3 ColumnValue] struct {
		V0 T0
		V1 T1
		V2 T2
		V3 T3
	}
	Row5[T0, T1, T2, T3, T4 ColumnValue] struct {
		V0 T0
		V1 T1
		V2 T2
		V3 T3
		V4 T4
	}
)

// Query1 reads rows of one column. It fails if the query has no columns.
func Query1[T0 ColumnValue](s *Statement) (*Rows[Row1[T0]], error) {
	return query(s, 1, func(c Columns) Row1[T0] {
		return Row1[T0]{Column[T0](c, 0)}
	})
}

// Query2 reads rows of two columns.
func Query2[T0, T1 ColumnValue](s *Statement) (*Rows[Row2[T0, T1]], error) {
	return query(s, 2, func(c Columns) Row2[T0, T1] {
		return Row2[T0, T1]{Column[T0](c, 0), Column[T1](c, 1)}
	})
}

// Query3 reads rows of three columns.
func Query3[T0, T1, T2 ColumnValue](s *Statement) (*Rows[Row3[T0, T1, T2]], error) {
	return query(s, 3, func(c Columns) Row3[T0, T1, T2] {
		return Row3[T0, T1, T2]{Column[T0](c, 0), Column[T1](c, 1), Column[T2](c, 2)}
	})
}

// Query4 reads rows of four columns.
func Query4[T0, T1, T2, T3 ColumnValue](s *Statement) (*Rows[Row4[T0, T1, T2, T3]], error) {
	return query(s, 4, func(c Columns) Row4[T0, T1, T2, T3] {
		return Row4[T0, T1, T2, T3]{Column[T0](c, 0), Column[T1](c, 1), Column[T2](c, 2), Column[T3](c, 3)}
	})
}

// Query5 reads rows of five columns.
func Query5[T0, T1, T2, T3, T4 ColumnValue](s *Statement) (*Rows[Row5[T0, T1, T2, T3, T4]], error) {
	return query(s, 5, func(c Columns) Row5[T0, T1, T2, T3, T4] {
		return Row5[T0, T1, T2, T3, T4]{Column[T0](c, 0), Column[T1](c, 1), Column[T2](c, 2), Column[T3](c, 3), Column[T4](c, 4)}
	})
}
