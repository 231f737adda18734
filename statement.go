// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/bagkit/sqlite/sqliteh"
)

// Statement is a prepared SQLite statement.
//
// Parameters are bound positionally with Bind, results are read with
// Query or one of its typed variants, and the statement is reused by
// calling Reset. The native statement is finalized once the caller has
// called Close and no Rows is still reading from it.
//
// A Statement is *not* safe for concurrent use.
type Statement struct {
	db     sqliteh.DB
	stmt   sqliteh.Stmt // nil once finalized
	query  string
	tracer sqliteh.Tracer

	param  int // last bound parameter index, 0 after reset
	blobs  blobCache
	refs   int  // the caller's reference plus one per live cursor
	closed bool // Close called
	cursor *cursor

	// The current execution, reported to tracer when it finishes.
	running bool
	start   time.Time
	rows    int
	stepErr error
}

// Prepare prepares a single SQL statement on db.
//
// An error is a PrepareError carrying SQLite's code and message.
func Prepare(db sqliteh.DB, query string) (*Statement, error) {
	return PrepareTraced(db, query, nil)
}

// PrepareTraced is like Prepare, and reports every execution of the
// statement to tracer. A nil tracer disables tracing.
func PrepareTraced(db sqliteh.DB, query string, tracer sqliteh.Tracer) (*Statement, error) {
	query = strings.TrimSpace(query)
	stmt, rem, err := db.Prepare(query, sqliteh.SQLITE_PREPARE_PERSISTENT)
	if err != nil {
		return nil, engineErr(db, PrepareError, "Prepare", query, err)
	}
	if stmt == nil {
		return nil, &Error{
			Kind:  PrepareError,
			Code:  sqliteh.SQLITE_MISUSE,
			Loc:   "Prepare",
			Query: query,
			Msg:   "query contains no SQL statement",
		}
	}
	if strings.TrimSpace(rem) != "" {
		stmt.Finalize()
		return nil, &Error{
			Kind:  PrepareError,
			Code:  sqliteh.SQLITE_MISUSE,
			Loc:   "Prepare",
			Query: query,
			Msg:   fmt.Sprintf("query has trailing text: %q", rem),
		}
	}
	return &Statement{
		db:     db,
		stmt:   stmt,
		query:  query,
		tracer: tracer,
		refs:   1,
	}, nil
}

// Query returns the SQL text the statement was prepared from.
func (s *Statement) Query() string { return s.query }

func (s *Statement) checkOpen(loc string) error {
	if s.closed {
		UsesAfterClose.Add("Statement."+loc, 1)
		return ErrClosed
	}
	return nil
}

// Bind binds args to the next parameters, left to right.
//
// The first parameter bound after Prepare or Reset is parameter 1.
// Supported types are int64, int, Timestamp, float64, string and []byte.
//
// A []byte is not copied: SQLite reads it in place when the statement is
// stepped. It must not be modified until the statement is reset or closed.
//
// Binding stops at the first failure, which is reported as a BindError
// naming the parameter index and value.
func (s *Statement) Bind(args ...any) error {
	if err := s.checkOpen("Bind"); err != nil {
		return err
	}
	for _, arg := range args {
		if err := s.bind(arg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Statement) bind(v any) error {
	s.param++
	if b, ok := v.([]byte); ok {
		// Must be held before SQLite sees the pointer.
		s.blobs.retain(s.param, b)
	}
	found, err := bindValue(s.stmt, s.param, v)
	if !found {
		return &Error{
			Kind:  BindError,
			Code:  sqliteh.SQLITE_MISUSE,
			Loc:   "Bind",
			Query: s.query,
			Msg:   fmt.Sprintf("unsupported value type %T (use int64, Timestamp, float64, string or []byte)", v),
			Param: s.param,
			Value: valueString(v),
		}
	}
	if err != nil {
		e := engineErr(s.db, BindError, "Bind", s.query, err)
		e.Param = s.param
		e.Value = valueString(v)
		return e
	}
	return nil
}

// Step advances the statement to its next result row.
//
// Step reports true if a row is available, false when the statement is
// done. Any other outcome is a StepError. Stepping moves the one cursor
// the statement has, so it is observed by a Rows reading from s: a row
// advances its position and the end of the result finishes it.
func (s *Statement) Step() (row bool, err error) {
	if err := s.checkOpen("Step"); err != nil {
		return false, err
	}
	return s.step()
}

func (s *Statement) step() (bool, error) {
	if !s.running {
		s.running = true
		if s.tracer != nil {
			s.start = time.Now()
		}
	}
	row, err := s.stmt.Step()
	if err != nil {
		e := engineErr(s.db, StepError, "Step", s.query, err)
		s.stepErr = e
		if s.cursor != nil {
			s.cursor.end()
		}
		return false, e
	}
	if !row {
		// SQLite restarts a halted statement on its next step.
		// A Rows must not follow it there.
		if s.cursor != nil {
			s.cursor.end()
		}
		return false, nil
	}
	s.rows++
	if s.cursor != nil {
		s.cursor.pos++
	}
	return true, nil
}

// Columns returns a view of the current row.
// It is only meaningful after Step reported a row.
func (s *Statement) Columns() Columns {
	if s.stmt == nil {
		UsesAfterClose.Add("Statement.Columns", 1)
		return Columns{}
	}
	return Columns{stmt: s.stmt}
}

// Reset returns the statement to its state before execution.
//
// The parameter index restarts at 1 and blobs bound since the last reset
// are released; their parameters are set to NULL. Other bound values are
// kept by SQLite and reused by the next execution unless rebound.
// A Rows reading from s is invalidated.
//
// After a failed step, Reset does not report that failure again.
func (s *Statement) Reset() error {
	if err := s.checkOpen("Reset"); err != nil {
		return err
	}
	return s.reset()
}

func (s *Statement) reset() error {
	var resetErr error
	if err := s.stmt.Reset(); err != nil && s.stepErr == nil {
		resetErr = engineErr(s.db, EngineError, "Reset", s.query, err)
	}
	s.blobs.release(s.stmt)
	s.param = 0
	if s.cursor != nil {
		s.cursor.invalidate()
	}
	s.finishRun()
	return resetErr
}

// ExecuteAndReset runs a statement that returns no rows, such as an
// INSERT, and resets it. Any row the statement produces is ignored.
//
// If the step fails the statement is not reset; call Reset before reusing it.
func (s *Statement) ExecuteAndReset() error {
	if err := s.checkOpen("ExecuteAndReset"); err != nil {
		return err
	}
	if _, err := s.step(); err != nil {
		return err
	}
	return s.reset()
}

// LastInsertRowID reports the rowid of the most recent successful INSERT
// on the statement's database connection.
func (s *Statement) LastInsertRowID() int64 { return s.db.LastInsertRowid() }

// Changes reports the number of rows modified by the most recently
// completed INSERT, UPDATE or DELETE on the database connection.
func (s *Statement) Changes() int64 { return int64(s.db.Changes()) }

// ParamCount reports the number of parameters in the query.
func (s *Statement) ParamCount() int {
	if s.stmt == nil {
		return 0
	}
	return s.stmt.BindParameterCount()
}

// ColumnCount reports the number of columns in the query result.
func (s *Statement) ColumnCount() int {
	if s.stmt == nil {
		return 0
	}
	return s.stmt.ColumnCount()
}

// ColumnNames reports the names of the query result columns.
func (s *Statement) ColumnNames() []string {
	names := make([]string, s.ColumnCount())
	for i := range names {
		names[i] = s.stmt.ColumnName(i)
	}
	return names
}

// Close releases the caller's use of the statement.
//
// The native statement is finalized immediately, or when the Rows
// reading from it finishes. A Rows finishes when it reaches the end of
// the result, is closed, or its All loop is left early, so a Rows that is
// abandoned any other way keeps the statement open.
// Close is safe to call after any error and more than once.
func (s *Statement) Close() {
	if s.closed {
		UsesAfterClose.Add("Statement.Close", 1)
		return
	}
	s.closed = true
	s.release()
}

func (s *Statement) acquire() { s.refs++ }

func (s *Statement) release() {
	s.refs--
	if s.refs > 0 {
		return
	}
	s.finishRun()
	// Finalize repeats the code of a failed last step; the statement
	// is gone either way.
	s.stmt.Finalize()
	s.stmt = nil
	s.blobs.release(nil)
}

// finishRun reports the current execution, if any, to the tracer.
func (s *Statement) finishRun() {
	if !s.running {
		return
	}
	if s.tracer != nil {
		s.tracer.Query(s.query, time.Since(s.start), s.rows, s.stepErr)
	}
	s.running = false
	s.rows = 0
	s.stepErr = nil
}
