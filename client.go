// client.go

// Package sqlmongo is the SQL-to-MongoDB transpiler façade: Parse() plans
// and executes one SQL statement against a MongoDB database and returns a
// Result for pulling rows. Grounded on the teacher's Client/Wrap
// constructor pattern in client.go, narrowed from omniql's three-target
// (SQL/MongoDB/Redis) dispatch to a single MongoDB target, since this
// module only ever translates SQL into MongoDB operations.
package sqlmongo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sqlmongo-go/sqlmongo/engine/cache"
	"github.com/sqlmongo-go/sqlmongo/engine/planner"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// ============================================
// RE-EXPORTED ERROR KINDS
// ============================================

// These let a caller classify a Parse/Query failure with errors.Is without
// reaching into internal/errorkinds directly.
var (
	ErrMalformedSQL     = errorkinds.MalformedSQL
	ErrUnsupportedSQL   = errorkinds.UnsupportedSQL
	ErrParameterBinding = errorkinds.ParameterBindingError
	ErrDriver           = errorkinds.DriverError
)

// ============================================
// CLIENT STRUCT
// ============================================

// Client owns a planner.Driver (and optionally a Redis-backed plan cache)
// bound to one MongoDB database.
type Client struct {
	driver *planner.Driver
}

// ============================================
// CONSTRUCTORS
// ============================================

// WrapMongo wraps a MongoDB database connection.
func WrapMongo(db *mongo.Database) *Client {
	return &Client{driver: planner.New(db)}
}

// WithCache attaches a Redis-backed plan cache to c, entries expiring after
// ttl, and returns c for chaining.
func (c *Client) WithCache(rdb *redis.Client, ttl time.Duration) *Client {
	c.driver.Cache = cache.New(rdb, ttl)
	return c
}

// ============================================
// QUERY METHOD
// ============================================

// Query plans and executes sql against c's database, binding each "%s"
// placeholder (in source order) to the matching entry of params.
func (c *Client) Query(ctx context.Context, sql string, params ...interface{}) (*Result, error) {
	cur, err := c.driver.Plan(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	return &Result{cur: cur}, nil
}

// ============================================
// PACKAGE-LEVEL ENTRY POINT
// ============================================

// Parse is the direct analogue of the Python original's
// parse(client, database, sql, params) -> Result entry point: it looks up
// database on client, plans sql, executes it, and returns a Result. Use
// Client.Query instead when issuing more than one statement against the
// same database, so the plan cache (if any) and driver setup are shared.
func Parse(ctx context.Context, client *mongo.Client, database string, sql string, params ...interface{}) (*Result, error) {
	c := WrapMongo(client.Database(database))
	return c.Query(ctx, sql, params...)
}
