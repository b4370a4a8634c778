package planner

import (
	"context"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/predicate"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// nestedSubquery implements predicate.NestedResolver by planning and running
// the inner SELECT as an ordinary (non-nested) select and collecting its
// single projected column's values, grounded on djongo's SelectQuery used as
// the rhs of an IN per common_ops.py's _InNotInOp._fill_in.
type nestedSubquery struct {
	driver *Driver
	stmt   *ast.Token
	params []interface{}
	sql    string
}

func (n *nestedSubquery) Values(ctx context.Context) ([]interface{}, error) {
	cur, err := n.driver.planSelect(ctx, n.stmt, n.params, false, n.sql)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if (cur.kind != kindFind && cur.kind != kindAggregate) || len(cur.columns) != 1 {
		return nil, errorkinds.UnsupportedSQL.New("nested SELECT must project exactly one column")
	}
	col := cur.columns[0]

	log.WithField("column", col).Debug("materializing nested subquery")

	var vals []interface{}
	for {
		row, ok, err := cur.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		vals = append(vals, row[col])
	}
	return vals, nil
}

// nestedFactory returns a predicate.NestedFactory closure bound to this
// Driver and the outer statement's bound parameters (a nested SELECT shares
// the same parameter list; its placeholders carry their ordinal position in
// the whole statement, as numbered by engine/binder).
func (d *Driver) nestedFactory(ctx context.Context, params []interface{}, sql string) predicate.NestedFactory {
	return func(paren *ast.Token) (predicate.NestedResolver, error) {
		inner := paren.Inner()
		if len(inner) == 0 {
			return nil, errorkinds.MalformedSQL.New("empty nested SELECT")
		}
		stmt := ast.Composite(ast.KindStatement, inner...)
		return &nestedSubquery{driver: d, stmt: stmt, params: params, sql: sql}, nil
	}
}
