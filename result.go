// result.go

package sqlmongo

import (
	"context"
	"database/sql/driver"
	"io"

	"github.com/sqlmongo-go/sqlmongo/engine/planner"
)

// ============================================
// RESULT STRUCT
// ============================================

// Result is the single row-producing handle every Query/Parse call returns,
// per spec.md §6: count(), close(), row iteration, and last_row_id. It owns
// exactly one planner.Cursor. A Result is not safe for concurrent use.
type Result struct {
	cur *planner.Cursor
}

// ============================================
// PLAIN SURFACE (spec.md §6)
// ============================================

// Count reports the number of rows this Result would yield, without
// consuming it.
func (r *Result) Count(ctx context.Context) (int64, error) {
	return r.cur.Count(ctx)
}

// NextRow advances the cursor and returns the next row as field->value, or
// ok=false once exhausted.
func (r *Result) NextRow(ctx context.Context) (map[string]interface{}, bool, error) {
	return r.cur.Next(ctx)
}

// LastRowID is populated by INSERT: the auto-increment value for a table
// that has one, otherwise the inserted document's _id. It is nil for every
// other statement.
func (r *Result) LastRowID() interface{} {
	return r.cur.LastInsertID()
}

// RowsAffected is meaningful for INSERT/UPDATE/DELETE.
func (r *Result) RowsAffected() int64 {
	return r.cur.RowsAffected()
}

// ============================================
// database/sql/driver.Rows COMPATIBILITY
// ============================================
//
// Additive per spec.md's "compatible with a traditional relational client
// protocol": Columns/Next/Close satisfy database/sql/driver.Rows so a
// Result can back a driver.Driver without an adapter layer. This assumes an
// explicit column list; a "SELECT *" Result has no fixed Columns() ahead of
// time, so driver.Rows callers should project explicit columns and plain
// callers should use NextRow instead.

// Columns reports the ordered column names rows are keyed by.
func (r *Result) Columns() []string {
	return r.cur.Columns()
}

// Next scans the next row into dest, in Columns() order. It returns io.EOF
// once exhausted, per the driver.Rows contract.
func (r *Result) Next(dest []driver.Value) error {
	row, ok, err := r.cur.Next(context.Background())
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	for i, col := range r.cur.Columns() {
		dest[i] = row[col]
	}
	return nil
}

// Close releases the underlying driver cursor, if any. Idempotent.
func (r *Result) Close() error {
	return r.cur.Close(context.Background())
}
