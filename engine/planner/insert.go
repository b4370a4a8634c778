package planner

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// planInsert implements spec.md §4.5's Insert driver: "INSERT INTO table
// (cols...) VALUES (vals...)", resolving the auto-increment column (if
// table has one registered via CREATE TABLE) before the document is
// written, grounded on djongo's InsertQuery.parse/result.py _create.
func (d *Driver) planInsert(ctx context.Context, stmt *ast.Token, params []interface{}, sql string) (*Cursor, error) {
	children := stmt.Children
	if len(children) < 6 || !children[1].MatchKeyword("INTO") {
		return nil, errorkinds.MalformedSQL.New("INSERT must be followed by INTO")
	}

	table, err := resolver.New(children[2], nil).Table()
	if err != nil {
		return nil, err
	}

	if !children[3].Is(ast.KindParenthesis) {
		return nil, errorkinds.MalformedSQL.New("INSERT must name a column list")
	}
	cols, err := columnNameList(children[3].Inner())
	if err != nil {
		return nil, err
	}

	if !children[4].MatchKeyword("VALUES") {
		return nil, errorkinds.MalformedSQL.New("INSERT column list must be followed by VALUES")
	}
	if !children[5].Is(ast.KindParenthesis) {
		return nil, errorkinds.MalformedSQL.New("VALUES must be followed by a value list")
	}
	items, err := resolver.ValueList(children[5])
	if err != nil {
		return nil, err
	}
	if len(items) != len(cols) {
		return nil, errorkinds.MalformedSQL.New("INSERT column count does not match value count")
	}

	doc := bson.M{}
	for i, item := range items {
		if item.IsNull {
			doc[cols[i]] = nil
			continue
		}
		if item.Index < 0 || item.Index >= len(params) {
			return nil, errorkinds.ParameterBindingError.New("missing bound parameter for INSERT value")
		}
		doc[cols[i]] = params[item.Index]
	}

	var lastInsertID interface{}
	autoFields, ok, err := d.nextAutoIncrement(ctx, sql, table)
	if err != nil {
		return nil, err
	}
	if ok {
		for _, f := range autoFields {
			doc[f.Field] = f.Seq
			lastInsertID = f.Seq
		}
	}

	coll := d.DB.Collection(table)
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, errorkinds.DriverError.New(sql, err.Error())
	}
	if lastInsertID == nil {
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			lastInsertID = oid.Hex()
		} else {
			lastInsertID = fmt.Sprint(res.InsertedID)
		}
	}

	return &Cursor{kind: kindMutation, rowsAffected: 1, lastInsertID: lastInsertID, sql: sql}, nil
}

// columnNameList reads a "(a, b, c)" column name list, a simpler cousin of
// resolver.ValueList for bare unqualified names rather than placeholders.
func columnNameList(inner []*ast.Token) ([]string, error) {
	var out []string
	for _, group := range splitTopLevelCommas(flattenLeaves(inner)) {
		if len(group) == 0 || group[0].Kind != ast.KindName {
			return nil, errorkinds.MalformedSQL.New("INSERT column list must be bare column names")
		}
		out = append(out, group[0].Value)
	}
	if len(out) == 0 {
		return nil, errorkinds.MalformedSQL.New("INSERT column list is empty")
	}
	return out, nil
}
