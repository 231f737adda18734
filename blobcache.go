// Copyright (c) 2021 Tailscale Inc & AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sqlite

import (
	"runtime"

	"github.com/bagkit/sqlite/sqliteh"
)

// blobCache keeps bound blob buffers alive while SQLite points at them.
//
// Blobs are bound with SQLITE_STATIC, so SQLite reads the caller's memory
// during each step rather than a copy. Every buffer is held and pinned
// from just before its bind until the statement is reset or finalized.
type blobCache struct {
	params []int    // parameter index of each retained blob
	bufs   [][]byte // retained blobs, parallel to params
	pinner runtime.Pinner
}

// retain holds b for parameter param until release.
func (c *blobCache) retain(param int, b []byte) {
	if len(b) > 0 {
		c.pinner.Pin(&b[0])
	}
	c.params = append(c.params, param)
	c.bufs = append(c.bufs, b)
}

// len reports the number of blobs bound since the last release.
func (c *blobCache) len() int { return len(c.bufs) }

// release drops every retained blob.
//
// If stmt is non-nil, the parameters holding blobs are first rebound to
// NULL so SQLite no longer refers to the memory. The statement must not be
// mid-step. Pass a nil stmt once the statement is finalized.
func (c *blobCache) release(stmt sqliteh.Stmt) {
	if stmt != nil {
		for _, param := range c.params {
			// Fails only for an index the bind already
			// rejected, which SQLite never pointed at.
			stmt.BindNull(param)
		}
	}
	c.pinner.Unpin()
	clear(c.bufs)
	c.params = c.params[:0]
	c.bufs = c.bufs[:0]
}
