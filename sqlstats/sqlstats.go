// Package sqlstats implements an SQLite Tracer that collects query stats.
package sqlstats

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bagkit/sqlite/sqliteh"
)

// Tracer implements sqliteh.Tracer and collects query stats.
//
// To use, pass the tracer object to sqlite.PrepareTraced, then start a
// debug web server with http.HandlerFunc(sqlTracer.Handle).
type Tracer struct {
	// Once a query has been seen once, only the read lock
	// is required to update stats.
	mu      sync.RWMutex
	queries map[string]*queryStats // normalized query -> stats
}

var _ sqliteh.Tracer = (*Tracer)(nil)

type queryStats struct {
	// When inside the queries map all fields must be accessed as atomics.
	count    atomic.Int64
	errors   atomic.Int64
	rows     atomic.Int64
	duration atomic.Int64 // time.Duration
}

// QueryStats is a snapshot of the stats of one query.
type QueryStats struct {
	Query    string
	Count    int64
	Errors   int64
	Rows     int64
	Duration time.Duration
	Mean     time.Duration
}

var inListRE = regexp.MustCompile(`(?i)\bIN\s*\(\s*[0-9?]+(\s*,\s*[0-9?]+)*\s*\)`)

// normalizeQuery folds queries that differ only in the length of a
// literal IN list into one entry.
func normalizeQuery(query string) string {
	return inListRE.ReplaceAllString(query, "IN (...)")
}

func (t *Tracer) queryStats(query string) *queryStats {
	query = normalizeQuery(query)

	t.mu.RLock()
	stats := t.queries[query]
	t.mu.RUnlock()

	if stats != nil {
		return stats
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.queries == nil {
		t.queries = make(map[string]*queryStats)
	}
	stats = t.queries[query]
	if stats == nil {
		stats = new(queryStats)
		t.queries[query] = stats
	}
	return stats
}

// Collect returns a snapshot of the stats of every query seen.
func (t *Tracer) Collect() (rows []*QueryStats) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for query, s := range t.queries {
		row := &QueryStats{
			Query:    query,
			Count:    s.count.Load(),
			Errors:   s.errors.Load(),
			Rows:     s.rows.Load(),
			Duration: time.Duration(s.duration.Load()),
		}
		if row.Count > 0 {
			row.Mean = row.Duration / time.Duration(row.Count)
		}
		rows = append(rows, row)
	}
	return rows
}

// Reset drops all collected stats.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries = nil
}

// Query implements sqliteh.Tracer.
func (t *Tracer) Query(query string, duration time.Duration, rows int, err error) {
	stats := t.queryStats(query)

	stats.count.Add(1)
	stats.rows.Add(int64(rows))
	stats.duration.Add(int64(duration))
	if err != nil {
		stats.errors.Add(1)
	}
}

func (t *Tracer) Handle(w http.ResponseWriter, r *http.Request) {
	getArgs, _ := url.ParseQuery(r.URL.RawQuery)
	sortParam := strings.TrimSpace(getArgs.Get("sort"))
	rows := t.Collect()

	switch sortParam {
	case "", "count":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	case "query":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Query < rows[j].Query })
	case "duration":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Duration > rows[j].Duration })
	case "errors":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Errors > rows[j].Errors })
	case "rows":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Rows > rows[j].Rows })
	case "mean":
		sort.Slice(rows, func(i, j int) bool { return rows[i].Mean > rows[j].Mean })
	default:
		http.Error(w, fmt.Sprintf("unknown sort: %q", sortParam), 400)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(200)
	fmt.Fprintf(w, `<!DOCTYPE html><html><body>
	<p>Trace of SQLite prepared statement executions.</p>
	<table border="1">
	<tr>
	<th><a href="?sort=query">Query</a></th>
	<th><a href="?sort=count">Count</a></th>
	<th><a href="?sort=rows">Rows</a></th>
	<th><a href="?sort=duration">Duration</a></th>
	<th><a href="?sort=mean">Mean</a></th>
	<th><a href="?sort=errors">Errors</a></th>
	</tr>
	`)
	for _, row := range rows {
		fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%s</td><td>%s</td><td>%d</td></tr>\n",
			html.EscapeString(row.Query),
			row.Count,
			row.Rows,
			row.Duration.Round(time.Millisecond),
			row.Mean.Round(time.Microsecond),
			row.Errors,
		)
	}
	fmt.Fprintf(w, "</table></body></html>")
}
