package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// maxBindParams caps the placeholders in one statement, below both
// PostgreSQL's 65535 and SQLite's 32766.
const maxBindParams = 30000

// DBTX is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebound applies the dialect's placeholder style to every statement.
type rebound struct {
	db DBTX
	d  Dialect
}

func (r rebound) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.d.Rebind(query), args...)
}

func (r rebound) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.d.Rebind(query), args...)
}

func (r rebound) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.d.Rebind(query), args...)
}

// bind wraps db so that "$N" queries run on the store's engine.
func (s *Store) bind(db DBTX) DBTX {
	if !s.dialect.Positional {
		return db
	}
	return rebound{db: db, d: s.dialect}
}

// Table is a persisted entity that can create and drop its own schema.
type Table interface {
	Name() string
	EnsureSchema(ctx context.Context, db DBTX) error
	DropSchema(ctx context.Context, db DBTX) error
}

// registry holds every table, by name and in foreign-key order.
type registry struct {
	byName  map[string]Table
	ordered []Table

	trades  *tradesTable
	prices  *pricesTable
	options *optionsTable
	errors  *errorsTable
	batches *batchesTable
}

func newRegistry(d Dialect) *registry {
	r := &registry{
		trades:  &tradesTable{d: d},
		prices:  &pricesTable{d: d},
		options: &optionsTable{d: d},
		errors:  &errorsTable{d: d},
		batches: &batchesTable{d: d},
	}
	r.ordered = []Table{r.trades, r.prices, r.options, r.errors, r.batches}
	r.byName = make(map[string]Table, len(r.ordered))
	for _, t := range r.ordered {
		r.byName[t.Name()] = t
	}
	return r
}

// Get returns the table registered under name.
func (r *registry) Get(name string) (Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

func execAll(ctx context.Context, db DBTX, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func dropTable(ctx context.Context, db DBTX, name string) error {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}

// bulkInsert writes rows with multi-row INSERT statements, chunked to stay under
// maxBindParams, and returns how many rows were actually inserted. conflict is
// appended to every statement, e.g. "ON CONFLICT (record_hash, date) DO NOTHING".
func bulkInsert(ctx context.Context, db DBTX, table string, columns []string, conflict string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	perChunk := maxBindParams / len(columns)
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))
	inserted := 0

	for start := 0; start < len(rows); start += perChunk {
		chunk := rows[start:min(start+perChunk, len(rows))]

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row) != len(columns) {
				return inserted, fmt.Errorf("%s row %d has %d values, want %d", table, start+i, len(row), len(columns))
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for j, v := range row {
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, v)
				fmt.Fprintf(&sb, "$%d", len(args))
			}
			sb.WriteByte(')')
		}
		sb.WriteByte(' ')
		sb.WriteString(conflict)

		res, err := db.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	return inserted, nil
}

// hasRows reports whether table holds any row for hash.
func hasRows(ctx context.Context, db DBTX, table, hash string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE record_hash = $1)", table),
		hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return exists, nil
}
