package sqlite

import (
	"fmt"
	"strings"

	"github.com/bagkit/sqlite/sqliteh"
)

// Exec prepares query, binds args, runs it to completion and closes it.
// Rows the query produces are discarded.
func Exec(db sqliteh.DB, query string, args ...any) error {
	stmt, err := Prepare(db, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.Bind(args...); err != nil {
		return err
	}
	for {
		row, err := stmt.Step()
		if err != nil {
			return err
		}
		if !row {
			return nil
		}
	}
}

// ExecScript executes a series of SQL statements separated by semicolons.
// It stops on the first error.
// It is recommended you wrap your script in a BEGIN; ... COMMIT; block.
func ExecScript(db sqliteh.DB, queries string) error {
	for {
		queries = strings.TrimSpace(queries)
		if queries == "" {
			return nil
		}
		stmt, rem, err := db.Prepare(queries, 0)
		if err != nil {
			return engineErr(db, PrepareError, "ExecScript", queries, err)
		}
		queries = rem
		if stmt == nil {
			// Only comments or whitespace.
			continue
		}
		for {
			var row bool
			row, err = stmt.Step()
			if err != nil || !row {
				break
			}
		}
		var e *Error
		if err != nil {
			e = engineErr(db, StepError, "ExecScript", stmt.SQL(), err)
		}
		stmt.Finalize()
		if e != nil {
			return e
		}
	}
}

// DropAll deletes all the data from a database.
//
// The schemaName parameter follows the SQLite PRAGMA schema-name conventions:
// https://sqlite.org/pragma.html#syntax
func DropAll(db sqliteh.DB, schemaName string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("sqlite.DropAll: %w", err)
		}
	}()

	if schemaName == "" {
		schemaName = "main"
	}

	var indexes, tables, triggers, views []string

	stmt, err := Prepare(db, fmt.Sprintf("SELECT name, type FROM %q.sqlite_schema WHERE name NOT LIKE 'sqlite_%%'", schemaName))
	if err != nil {
		return err
	}
	defer stmt.Close()
	rows, err := Query2[string, string](stmt)
	if err != nil {
		return err
	}
	for row, err := range rows.All() {
		if err != nil {
			return err
		}
		name, sqlType := row.V0, row.V1
		switch sqlType {
		case "index":
			indexes = append(indexes, name)
		case "table":
			tables = append(tables, name)
		case "trigger":
			triggers = append(triggers, name)
		case "view":
			views = append(views, name)
		default:
			return fmt.Errorf("unknown sqlite schema type %q for %q", sqlType, name)
		}
	}

	for _, name := range indexes {
		if err := ExecScript(db, fmt.Sprintf("DROP INDEX IF EXISTS %q.%q", schemaName, name)); err != nil {
			return err
		}
	}
	for _, name := range triggers {
		if err := ExecScript(db, fmt.Sprintf("DROP TRIGGER %q.%q", schemaName, name)); err != nil {
			return err
		}
	}
	for _, name := range views {
		if err := ExecScript(db, fmt.Sprintf("DROP VIEW %q.%q", schemaName, name)); err != nil {
			return err
		}
	}
	for _, name := range tables {
		if err := ExecScript(db, fmt.Sprintf("DROP TABLE %q.%q", schemaName, name)); err != nil {
			return err
		}
	}
	return nil
}

// CopyAll copies the contents of one database to another.
//
// Traditionally this is done in sqlite by closing the database and copying
// the file. However it can be useful to do it online: a single exclusive
// transaction can cross multiple databases, and if multiple processes are
// using a file, this lets one replace the database without first
// communicating with the other processes, asking them to close the DB first.
//
// The dstSchemaName and srcSchemaName parameters follow the SQLite PRAGMA
// schema-name conventions: https://sqlite.org/pragma.html#syntax
func CopyAll(db sqliteh.DB, dstSchemaName, srcSchemaName string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("sqlite.CopyAll: %w", err)
		}
	}()
	if dstSchemaName == "" {
		dstSchemaName = "main"
	}
	if srcSchemaName == "" {
		srcSchemaName = "main"
	}
	if dstSchemaName == srcSchemaName {
		return fmt.Errorf("source matches destination: %q", srcSchemaName)
	}

	type entry struct{ name, sqlType, sqlText string }
	var entries []entry

	// Filter on sql to avoid auto indexes.
	// See https://www.sqlite.org/schematab.html for sqlite_schema docs.
	stmt, err := Prepare(db, fmt.Sprintf("SELECT name, type, sql FROM %q.sqlite_schema WHERE sql != ''", srcSchemaName))
	if err != nil {
		return err
	}
	defer stmt.Close()
	rows, err := Query3[string, string, string](stmt)
	if err != nil {
		return err
	}
	for row, err := range rows.All() {
		if err != nil {
			return err
		}
		entries = append(entries, entry{row.V0, row.V1, row.V2})
	}

	for _, e := range entries {
		// Regardless of the case or whitespace used in the original
		// create statement (or whether or not "if not exists" is used),
		// the SQL text in the sqlite_schema table always reads:
		// 	"CREATE (TABLE|VIEW|INDEX|TRIGGER) name".
		// We take advantage of that here to rewrite the create
		// statement for a different schema.
		sqlText := e.sqlText
		switch e.sqlType {
		case "index":
			sqlText = strings.TrimPrefix(sqlText, "CREATE INDEX ")
			sqlText = fmt.Sprintf("CREATE INDEX %q.%s", dstSchemaName, sqlText)
			if err := ExecScript(db, sqlText); err != nil {
				return err
			}
		case "table":
			sqlText = strings.TrimPrefix(sqlText, "CREATE TABLE ")
			sqlText = fmt.Sprintf("CREATE TABLE %q.%s", dstSchemaName, sqlText)
			if err := ExecScript(db, sqlText); err != nil {
				return err
			}
			if err := ExecScript(db, fmt.Sprintf("INSERT INTO %q.%q SELECT * FROM %q.%q;", dstSchemaName, e.name, srcSchemaName, e.name)); err != nil {
				return err
			}
		case "trigger":
			sqlText = strings.TrimPrefix(sqlText, "CREATE TRIGGER ")
			sqlText = fmt.Sprintf("CREATE TRIGGER %q.%s", dstSchemaName, sqlText)
			if err := ExecScript(db, sqlText); err != nil {
				return err
			}
		case "view":
			sqlText = strings.TrimPrefix(sqlText, "CREATE VIEW ")
			sqlText = fmt.Sprintf("CREATE VIEW %q.%s", dstSchemaName, sqlText)
			if err := ExecScript(db, sqlText); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown sqlite schema type %q for %q", e.sqlType, e.name)
		}
	}
	return nil
}
