//go:build cgo

package sqlite

import (
	"github.com/bagkit/sqlite/cgosqlite"
	"github.com/bagkit/sqlite/sqliteh"
)

func init() {
	Open = func(filename string, flags sqliteh.OpenFlags, vfs string) (sqliteh.DB, error) {
		db, err := cgosqlite.Open(filename, flags, vfs)
		if db == nil {
			// Avoid a non-nil interface holding a nil *DB.
			return nil, err
		}
		return db, err
	}
}
