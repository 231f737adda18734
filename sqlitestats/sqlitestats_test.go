package sqlitestats

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bagkit/sqlite"
	"github.com/bagkit/sqlite/sqliteh"
	"github.com/google/go-cmp/cmp"
)

func TestServeHTTP(t *testing.T) {
	stats := &Stats{}
	db, err := sqlite.Open("file:"+t.TempDir()+"/test.db", sqliteh.OpenFlagsDefault, "")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := sqlite.Exec(db, "CREATE TABLE t (c UNIQUE)"); err != nil {
		t.Fatal(err)
	}

	stmt, err := sqlite.PrepareTraced(db, "INSERT INTO t VALUES (?)", stats)
	if err != nil {
		t.Fatal(err)
	}
	defer stmt.Close()
	for _, v := range []string{"test-a", "test-b", "test-a"} {
		if err := stmt.Bind(v); err != nil {
			t.Fatal(err)
		}
		if err := stmt.ExecuteAndReset(); err != nil {
			stmt.Reset()
		}
	}

	srv := httptest.NewServer(stats)
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
	for _, want := range []string{
		"statement executions: 3",
		"slowest (3):",
		"recent failures (1):",
		"INSERT INTO t VALUES (?)",
		"UNIQUE constraint failed",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("want %q, got:\n%s", want, s)
		}
	}
}

func TestSlowest(t *testing.T) {
	stats := &Stats{Keep: 3}
	for _, ms := range []int{5, 1, 9, 3, 7} {
		stats.Query(fmt.Sprintf("q%d", ms), time.Duration(ms)*time.Millisecond, 0, nil)
	}
	var got []string
	for _, e := range stats.slowest {
		got = append(got, e.query)
	}
	if diff := cmp.Diff([]string{"q9", "q7", "q5"}, got); diff != "" {
		t.Errorf("slowest mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentFailures(t *testing.T) {
	stats := &Stats{Keep: 2}
	for i := range 5 {
		stats.Query(fmt.Sprintf("q%d", i), 0, 0, errors.New("boom"))
	}
	var got []string
	for _, e := range stats.recentFailures() {
		got = append(got, e.query)
	}
	if diff := cmp.Diff([]string{"q4", "q3"}, got); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
}

type countTracer int

func (c *countTracer) Query(string, time.Duration, int, error) { *c++ }

func TestTee(t *testing.T) {
	stats := &Stats{}
	var n countTracer
	tr := stats.Tracer(&n)
	tr.Query("SELECT 1", time.Millisecond, 1, nil)
	tr.Query("SELECT 2", time.Millisecond, 1, nil)
	if n != 2 || stats.total != 2 {
		t.Errorf("next saw %d, stats saw %d; want 2 and 2", n, stats.total)
	}
	if stats.Tracer(nil) != sqliteh.Tracer(stats) {
		t.Error("Tracer(nil) is not the Stats itself")
	}
}
