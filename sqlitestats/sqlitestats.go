// Package sqlitestats implements an sqliteh.Tracer for collecting debug
// statistics about recent statement executions.
package sqlitestats

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/bagkit/sqlite/sqliteh"
)

// DefaultKeep is the number of executions a zero Stats keeps per list.
const DefaultKeep = 32

// Stats tracks and reports the slowest and the most recently failed
// statement executions.
//
// Stats implements sqliteh.Tracer and http.Handler.
type Stats struct {
	// Keep is the length of each list. Zero means DefaultKeep.
	Keep int

	mu      sync.Mutex
	slowest []execStats // sorted, slowest first
	failed  []execStats // ring, oldest overwritten
	next    int         // next write position in failed
	total   int64
}

var _ sqliteh.Tracer = (*Stats)(nil)

type execStats struct {
	query    string
	end      time.Time
	duration time.Duration
	rows     int
	err      string
}

func (s *Stats) keep() int {
	if s.Keep > 0 {
		return s.Keep
	}
	return DefaultKeep
}

// Query implements sqliteh.Tracer.
func (s *Stats) Query(query string, duration time.Duration, rows int, err error) {
	e := execStats{
		query:    query,
		end:      time.Now(),
		duration: duration,
		rows:     rows,
	}
	if err != nil {
		e.err = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	keep := s.keep()

	if len(s.slowest) < keep || duration > s.slowest[len(s.slowest)-1].duration {
		i := sort.Search(len(s.slowest), func(i int) bool { return s.slowest[i].duration < duration })
		s.slowest = append(s.slowest, execStats{})
		copy(s.slowest[i+1:], s.slowest[i:])
		s.slowest[i] = e
		if len(s.slowest) > keep {
			s.slowest = s.slowest[:keep]
		}
	}

	if err != nil {
		if len(s.failed) < keep {
			s.failed = append(s.failed, e)
		} else {
			s.failed[s.next] = e
		}
		s.next = (s.next + 1) % keep
	}
}

// Tracer returns a tracer that reports to s and then to next.
func (s *Stats) Tracer(next sqliteh.Tracer) sqliteh.Tracer {
	if next == nil {
		return s
	}
	return tee{s, next}
}

type tee [2]sqliteh.Tracer

func (t tee) Query(query string, duration time.Duration, rows int, err error) {
	t[0].Query(query, duration, rows, err)
	t[1].Query(query, duration, rows, err)
}

// recentFailures returns the failed executions, newest first.
func (s *Stats) recentFailures() []execStats {
	n := len(s.failed)
	res := make([]execStats, 0, n)
	for i := 1; i <= n; i++ {
		res = append(res, s.failed[(s.next-i+n)%n])
	}
	return res
}

func (s *Stats) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	total := s.total
	slowest := append([]execStats(nil), s.slowest...)
	failed := s.recentFailures()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(200)
	io.WriteString(w, "<html><head><title>sqlite statement executions</title></head><body><pre>\n")
	fmt.Fprintf(w, "sqlite statement executions: %d\n", total)
	now := time.Now()

	fmt.Fprintf(w, "\nslowest (%d):", len(slowest))
	for _, e := range slowest {
		fmt.Fprintf(w, "\n\t%v\t%d rows\t%v ago\t%s", e.duration.Round(time.Microsecond), e.rows, now.Sub(e.end).Round(time.Second), html.EscapeString(e.query))
	}

	fmt.Fprintf(w, "\n\nrecent failures (%d):", len(failed))
	for _, e := range failed {
		fmt.Fprintf(w, "\n\t%v ago\t%s\t%s", now.Sub(e.end).Round(time.Second), html.EscapeString(e.query), html.EscapeString(e.err))
	}
	io.WriteString(w, "\n</pre></body></html>")
}
