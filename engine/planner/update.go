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

// planUpdate implements spec.md §4.5's Update driver: "UPDATE table SET
// assignments WHERE?", grounded on djongo's UpdateQuery/result.py _update.
// A JOIN never appears on an UPDATE's own FROM, so this is always a plain
// Collection.UpdateMany call; no aggregation-pipeline variant exists.
func (d *Driver) planUpdate(ctx context.Context, stmt *ast.Token, params []interface{}, sql string) (*Cursor, error) {
	children := stmt.Children
	if len(children) < 4 {
		return nil, errorkinds.MalformedSQL.New("malformed UPDATE statement")
	}

	table, err := resolver.New(children[1], nil).Table()
	if err != nil {
		return nil, err
	}
	if !children[2].MatchKeyword("SET") {
		return nil, errorkinds.MalformedSQL.New("UPDATE table must be followed by SET")
	}

	qc := qctx.New(params)
	qc.LeftTable = table

	whereIdx := -1
	for i := 3; i < len(children); i++ {
		if children[i].Is(ast.KindWhere) {
			whereIdx = i
			break
		}
	}
	end := len(children)
	if whereIdx >= 0 {
		end = whereIdx
	}

	set, err := clause.ParseSet(children[3:end], qc)
	if err != nil {
		return nil, err
	}

	var where *clause.Where
	if whereIdx >= 0 {
		where, err = clause.ParseWhere(children[whereIdx], qc, nil)
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
	res, err := coll.UpdateMany(ctx, filter, set.UpdateDoc())
	if err != nil {
		return nil, errorkinds.DriverError.New(sql, err.Error())
	}

	return &Cursor{kind: kindMutation, rowsAffected: res.ModifiedCount, sql: sql}, nil
}
