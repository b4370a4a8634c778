// Package planner implements the statement drivers described in spec.md
// §4.5 (SELECT/INSERT/UPDATE/DELETE) and the DDL shims in §4.6, grounded on
// djongo's queries.py/result.py driver classes and on the teacher's
// engine/translator dispatch-by-operation shape. Each driver walks the
// parsed Statement token directly (no further grouping), builds its
// clause/predicate fragments, and executes them against a *mongo.Database.
package planner

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/binder"
	"github.com/sqlmongo-go/sqlmongo/engine/cache"
	"github.com/sqlmongo-go/sqlmongo/engine/parser"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

var log = logrus.WithField("pkg", "planner")

// Driver plans and executes statements against a single MongoDB database.
// Cache is optional: a nil *cache.PlanCache disables plan caching entirely.
// Client is retained alongside DB so a statement that names a different
// database (DROP DATABASE <name>) can reach it without being confined to
// whichever database the Driver itself was bound to.
type Driver struct {
	DB     *mongo.Database
	Client *mongo.Client
	Cache  *cache.PlanCache
}

func New(db *mongo.Database) *Driver {
	return &Driver{DB: db, Client: db.Client()}
}

// WithCache attaches a plan cache to an existing Driver.
func (d *Driver) WithCache(c *cache.PlanCache) *Driver {
	d.Cache = c
	return d
}

// Plan rewrites sql's "%s" placeholders into "%(k)s" form, parses it (or
// reuses a cached parse of the same rewritten text and parameter shape),
// and dispatches to the matching statement driver. A SELECT's Cursor is not
// yet opened against the database: its query only runs on the caller's
// first Next/Count call. INSERT, UPDATE, DELETE and the DDL statements, and
// any nested IN (SELECT ...) subquery, run during Plan itself.
func (d *Driver) Plan(ctx context.Context, sql string, params []interface{}) (*Cursor, error) {
	rewritten := binder.Rewrite(sql)
	paramTypes := cache.ParamTypes(params)

	stmt, hit := d.Cache.Get(ctx, rewritten, paramTypes)
	if !hit {
		parsed, err := parser.Parse(rewritten)
		if err != nil {
			return nil, err
		}
		stmt = parsed
		d.Cache.Put(ctx, rewritten, paramTypes, stmt)
	}
	if len(stmt.Children) == 0 {
		return nil, errorkinds.MalformedSQL.New("empty statement")
	}

	dml := stmt.Children[0]
	log.WithField("dml", dml.Value).Debug("planning statement")

	switch {
	case dml.MatchKeyword("SELECT"):
		return d.planSelect(ctx, stmt, params, true, sql)
	case dml.MatchKeyword("INSERT"):
		return d.planInsert(ctx, stmt, params, sql)
	case dml.MatchKeyword("UPDATE"):
		return d.planUpdate(ctx, stmt, params, sql)
	case dml.MatchKeyword("DELETE"):
		return d.planDelete(ctx, stmt, params, sql)
	case dml.MatchKeyword("CREATE"):
		return d.planCreate(ctx, stmt, params, sql)
	case dml.MatchKeyword("ALTER"):
		return d.planAlter(ctx, stmt, params, sql)
	case dml.MatchKeyword("DROP"):
		return d.planDrop(ctx, stmt, params, sql)
	default:
		return nil, errorkinds.UnsupportedSQL.New("unrecognized statement")
	}
}

// findKeyword returns the index of the first token in children (searching
// from start) matching word, or -1 if absent.
func findKeyword(children []*ast.Token, start int, word string) int {
	for i := start; i < len(children); i++ {
		if children[i].MatchKeyword(word) {
			return i
		}
	}
	return -1
}
