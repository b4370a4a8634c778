package planner

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/clause"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// planDelete implements spec.md §4.5's Delete driver: "DELETE FROM table
// WHERE?", grounded on djongo's DeleteQuery/result.py _delete.
func (d *Driver) planDelete(ctx context.Context, stmt *ast.Token, params []interface{}, sql string) (*Cursor, error) {
	children := stmt.Children
	if len(children) < 3 || !children[1].MatchKeyword("FROM") {
		return nil, errorkinds.MalformedSQL.New("DELETE must be followed by FROM")
	}

	table, err := resolver.New(children[2], nil).Table()
	if err != nil {
		return nil, err
	}

	qc := qctx.New(params)
	qc.LeftTable = table

	var where *clause.Where
	if len(children) > 3 && children[3].Is(ast.KindWhere) {
		where, err = clause.ParseWhere(children[3], qc, nil)
		if err != nil {
			return nil, err
		}
		if err := where.Resolve(ctx, params); err != nil {
			return nil, err
		}
	}

	filter := bson.M{}
	if where != nil {
		f, err := where.Filter()
		if err != nil {
			return nil, err
		}
		filter = f
	}

	coll := d.DB.Collection(table)
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return nil, errorkinds.DriverError.New(sql, err.Error())
	}

	return &Cursor{kind: kindMutation, rowsAffected: res.DeletedCount, sql: sql}, nil
}
