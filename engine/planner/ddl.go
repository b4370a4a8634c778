package planner

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// planCreate implements spec.md §4.6's DDL shims: CREATE DATABASE is a
// no-op (MongoDB creates a database lazily on first write), CREATE TABLE
// scans its column-definition list for AUTOINCREMENT (registering it in
// __schema__) and UNIQUE/PRIMARY KEY (building a unique index), grounded on
// djongo's CreateTable handling in queries.py. Unlike DROP, a failure to
// build an index here is logged and ignored: MongoDB is schemaless, so a
// constraint that doesn't get enforced is a soft degradation, not a fatal
// one — this is the one deliberate deviation from SQL semantics spec.md §9
// calls out.
func (d *Driver) planCreate(ctx context.Context, stmt *ast.Token, params []interface{}, sql string) (*Cursor, error) {
	children := stmt.Children
	if len(children) < 3 {
		return nil, errorkinds.MalformedSQL.New("malformed CREATE statement")
	}

	switch {
	case children[1].MatchKeyword("DATABASE"):
		return &Cursor{kind: kindMutation, sql: sql}, nil
	case children[1].MatchKeyword("TABLE"):
		return d.createTable(ctx, children, sql)
	default:
		log.WithField("sql", sql).Debug("unsupported CREATE statement ignored")
		return &Cursor{kind: kindMutation, sql: sql}, nil
	}
}

func (d *Driver) createTable(ctx context.Context, children []*ast.Token, sql string) (*Cursor, error) {
	table, err := resolver.New(children[2], nil).Table()
	if err != nil {
		return nil, err
	}
	if len(children) < 4 || !children[3].Is(ast.KindParenthesis) {
		return nil, errorkinds.MalformedSQL.New("CREATE TABLE must name a column list")
	}

	coll := d.DB.Collection(table)
	leaves := flattenLeaves(children[3].Inner())

	for _, group := range splitTopLevelCommas(leaves) {
		if len(group) == 0 || group[0].Kind != ast.KindName {
			continue
		}
		field := group[0].Value

		if hasKeyword(group, "AUTOINCREMENT") {
			if err := d.registerAutoIncrement(ctx, sql, table, field); err != nil {
				return nil, err
			}
		}
		if hasKeyword(group, "UNIQUE") || (hasKeyword(group, "PRIMARY") && hasKeyword(group, "KEY")) {
			createUniqueIndex(ctx, coll, bson.D{{Key: field, Value: 1}})
		}
	}

	return &Cursor{kind: kindMutation, sql: sql}, nil
}

// planAlter implements ALTER TABLE ADD CONSTRAINT ... UNIQUE (cols), the
// only ALTER shape spec.md §4.6 requires: everything else (ADD COLUMN,
// DROP COLUMN, type changes) has no MongoDB analogue and is out of scope.
func (d *Driver) planAlter(ctx context.Context, stmt *ast.Token, params []interface{}, sql string) (*Cursor, error) {
	children := stmt.Children
	if len(children) < 3 || !children[1].MatchKeyword("TABLE") {
		return nil, errorkinds.MalformedSQL.New("ALTER must be followed by TABLE")
	}
	table, err := resolver.New(children[2], nil).Table()
	if err != nil {
		return nil, err
	}

	var cols *ast.Token
	unique := false
	for i := 3; i < len(children); i++ {
		if children[i].MatchKeyword("UNIQUE") {
			unique = true
			continue
		}
		if unique && children[i].Is(ast.KindParenthesis) {
			cols = children[i]
			break
		}
	}
	if cols == nil {
		log.WithField("sql", sql).Debug("unsupported ALTER TABLE statement ignored")
		return &Cursor{kind: kindMutation, sql: sql}, nil
	}

	var keys bson.D
	for _, group := range splitTopLevelCommas(flattenLeaves(cols.Inner())) {
		if len(group) == 0 || group[0].Kind != ast.KindName {
			continue
		}
		keys = append(keys, bson.E{Key: group[0].Value, Value: 1})
	}
	if len(keys) == 0 {
		return nil, errorkinds.MalformedSQL.New("ADD CONSTRAINT UNIQUE names no columns")
	}

	createUniqueIndex(ctx, d.DB.Collection(table), keys)
	return &Cursor{kind: kindMutation, sql: sql}, nil
}

// planDrop implements DROP DATABASE <name>, the only DROP shape spec.md
// §4.6 requires. It drops the named database, not whichever one the Driver
// happens to be bound to — matching the original's
// cli_con.drop_database(db_name). Unlike the CREATE TABLE index shims, this
// fails loudly: dropping the wrong database is destructive and must surface
// to the caller.
func (d *Driver) planDrop(ctx context.Context, stmt *ast.Token, params []interface{}, sql string) (*Cursor, error) {
	children := stmt.Children
	if len(children) < 3 || !children[1].MatchKeyword("DATABASE") {
		return nil, errorkinds.UnsupportedSQL.New("unsupported DROP statement")
	}
	name, err := resolver.New(children[2], nil).Table()
	if err != nil {
		return nil, err
	}
	if err := d.Client.Database(name).Drop(ctx); err != nil {
		return nil, errorkinds.DriverError.New(sql, err.Error())
	}
	return &Cursor{kind: kindMutation, sql: sql}, nil
}

func createUniqueIndex(ctx context.Context, coll *mongo.Collection, keys bson.D) {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.WithField("collection", coll.Name()).WithError(err).Debug("unique index creation skipped")
	}
}
