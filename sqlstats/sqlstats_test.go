package sqlstats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bagkit/sqlite"
	"github.com/bagkit/sqlite/sqliteh"
)

func openTestDB(t *testing.T) sqliteh.DB {
	t.Helper()
	db, err := sqlite.Open("file:"+t.TempDir()+"/test.db", sqliteh.OpenFlagsDefault, "")
	if err != nil {
		if db != nil {
			db.Close()
		}
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// run prepares query with tracer and executes it once per set of args.
func run(t *testing.T, db sqliteh.DB, tracer sqliteh.Tracer, query string, args ...[]any) {
	t.Helper()
	stmt, err := sqlite.PrepareTraced(db, query, tracer)
	if err != nil {
		t.Fatal(err)
	}
	defer stmt.Close()
	if len(args) == 0 {
		args = [][]any{nil}
	}
	for _, a := range args {
		if err := stmt.Bind(a...); err != nil {
			t.Fatal(err)
		}
		if err := stmt.ExecuteAndReset(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHandle(t *testing.T) {
	tracer := &Tracer{}
	db := openTestDB(t)
	run(t, db, tracer, "CREATE TABLE t (c);")
	run(t, db, tracer, "INSERT INTO t (c) VALUES (?);", []any{1}, []any{"<b>"})

	srv := httptest.NewServer(http.HandlerFunc(tracer.Handle))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if want := "CREATE TABLE t "; !strings.Contains(s, want) {
		t.Fatalf("want %q, got:\n%s", want, s)
	}
	if want := "INSERT INTO t (c)"; !strings.Contains(s, want) {
		t.Fatalf("want %q, got:\n%s", want, s)
	}

	resp, err = srv.Client().Get(srv.URL + "?sort=bogus")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("unknown sort: status %d, want 400", resp.StatusCode)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		q, want string
	}{
		{"", ""},
		{"SELECT 1", "SELECT 1"},
		{"DELETE FROM foo.Bar WHERE UnixNano in (SELECT id from FOO)", "DELETE FROM foo.Bar WHERE UnixNano in (SELECT id from FOO)"},
		{"DELETE FROM foo.Bar WHERE UnixNano in (1)", "DELETE FROM foo.Bar WHERE UnixNano IN (...)"},
		{"DELETE FROM foo.Bar WHERE UnixNano in (1, 2, 3)", "DELETE FROM foo.Bar WHERE UnixNano IN (...)"},
		{"DELETE FROM foo.Bar WHERE UnixNano in (1,2,3)", "DELETE FROM foo.Bar WHERE UnixNano IN (...)"},
		{"DELETE FROM foo.Bar WHERE UnixNano in (1,2,3 )", "DELETE FROM foo.Bar WHERE UnixNano IN (...)"},
		{"DELETE FROM foo.Bar WHERE UnixNano in ( 1 , 2 , 3 )", "DELETE FROM foo.Bar WHERE UnixNano IN (...)"},
		{"SELECT * FROM t WHERE id IN (?, ?)", "SELECT * FROM t WHERE id IN (...)"},
	}
	for _, tt := range tests {
		if got := normalizeQuery(tt.q); got != tt.want {
			t.Errorf("normalizeQuery(%#q) = %#q; want %#q", tt.q, got, tt.want)
		}
	}
}

func TestCollect(t *testing.T) {
	tracer := &Tracer{}
	db := openTestDB(t)
	run(t, db, tracer, "CREATE TABLE t (c);")
	run(t, db, tracer, "INSERT INTO t (c) VALUES (?);", []any{1}, []any{2})
	run(t, db, tracer, "INSERT INTO t (c) VALUES (?);", []any{3})

	stmt, err := sqlite.PrepareTraced(db, "SELECT c FROM t", tracer)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := sqlite.Query1[int64](stmt)
	if err != nil {
		t.Fatal(err)
	}
	for _, err := range rows.All() {
		if err != nil {
			t.Fatal(err)
		}
	}
	stmt.Close()

	gotStats := tracer.Collect()
	slices.SortFunc(gotStats, func(a, b *QueryStats) int {
		return strings.Compare(a.Query, b.Query)
	})

	// Expected counts and rows, in query order.
	want := []struct {
		count, rows int64
	}{
		{1, 0}, // CREATE
		{3, 0}, // INSERT
		{1, 3}, // SELECT
	}
	if len(gotStats) != len(want) {
		t.Fatalf("unexpected number of queries: %d, want: %d", len(gotStats), len(want))
	}
	for idx, query := range gotStats {
		if query.Count != want[idx].count {
			t.Errorf("unexpected query count for %q, got: %d, expected: %d", query.Query, query.Count, want[idx].count)
		}
		if query.Rows != want[idx].rows {
			t.Errorf("unexpected row count for %q, got: %d, expected: %d", query.Query, query.Rows, want[idx].rows)
		}
	}
}

func TestErrors(t *testing.T) {
	tracer := &Tracer{}
	tracer.Query("INSERT INTO t VALUES (1)", time.Millisecond, 0, nil)
	tracer.Query("INSERT INTO t VALUES (1)", time.Millisecond, 0, errors.New("constraint"))
	tracer.Query("INSERT INTO t VALUES (1)", 4*time.Millisecond, 0, nil)

	stats := tracer.Collect()
	if len(stats) != 1 {
		t.Fatalf("got %d queries, want 1", len(stats))
	}
	s := stats[0]
	if s.Count != 3 || s.Errors != 1 {
		t.Errorf("Count=%d Errors=%d, want 3 and 1", s.Count, s.Errors)
	}
	if s.Duration != 6*time.Millisecond || s.Mean != 2*time.Millisecond {
		t.Errorf("Duration=%v Mean=%v, want 6ms and 2ms", s.Duration, s.Mean)
	}

	tracer.Reset()
	if got := tracer.Collect(); len(got) != 0 {
		t.Errorf("Collect after Reset returned %d queries", len(got))
	}
}

func TestTracerResetRace(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tracer := &Tracer{}

	// Continually reset the tracer.
	go func() {
		for ctx.Err() == nil {
			tracer.Reset()
		}
	}()

	// Continually record queries from another goroutine.
	errc := make(chan error)
	go func() {
		defer close(errc)
		var n int
		for ctx.Err() == nil {
			n++
			tracer.Query(fmt.Sprintf("SELECT %d", n%7), time.Microsecond, n%3, nil)
			if n%100 == 0 {
				for _, s := range tracer.Collect() {
					if s.Count < 0 {
						errc <- fmt.Errorf("negative count for %q", s.Query)
						return
					}
				}
			}
		}
	}()

	for err := range errc {
		t.Fatalf("unexpected error: %s", err)
	}
}
