package db

import (
	"database/sql"
	"time"
)

func (d *DB) logQuery(kind string, query string, args []any) {
	if !d.logQueries {
		return
	}
	logger.Debug().
		Str("kind", kind).
		Str("sql", query).
		Interface("params", args).
		Msg("db query")
}

// selectRows runs a SELECT returning multiple rows, mapping each with scan
func selectRows[T any](d *DB, query string, args []any, scan func(*sql.Rows) (T, error)) ([]T, error) {
	d.logQuery("select", query, args)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// selectOne runs a SELECT returning a single row, or nil if not found
func selectOne[T any](d *DB, query string, args []any, scan func(*sql.Row) (T, error)) (*T, error) {
	d.logQuery("get", query, args)

	result, err := scan(d.conn.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// run executes an INSERT/UPDATE/DELETE query
func (d *DB) run(query string, args ...any) (sql.Result, error) {
	d.logQuery("run", query, args)
	return d.conn.Exec(query, args...)
}

// NowMs returns the current time in Unix milliseconds
func NowMs() int64 {
	return time.Now().UnixMilli()
}
