package planner

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// kind tags what a Cursor does when it is first driven, grounded on the
// handful of shapes djongo's Result.__iter__/result.py dispatch over: a
// lazily-opened find/aggregate cursor, a row count computed without ever
// materializing documents, a constant value repeated once per matched row,
// or a one-shot mutation result that was already computed at plan time.
type kind int

const (
	kindFind kind = iota
	kindAggregate
	kindCountFind
	kindCountAggregate
	kindConstFind
	kindConstAggregate
	kindDistinctFind
	kindMutation
)

// Cursor is the single row-producing result type every statement driver
// returns. It mirrors spec.md §5's single-threaded pull model: nothing talks
// to MongoDB until Next or Count is called the first time, and Close is
// always safe to call more than once.
type Cursor struct {
	kind kind
	coll *mongo.Collection

	// sql is the statement this Cursor was planned from, carried along
	// purely so a driver-call failure can be re-raised with it attached.
	sql string

	// find mode
	filter     bson.M
	projection bson.M
	sort       bson.D
	limit      int64
	hasLimit   bool

	// aggregate mode
	pipeline mongo.Pipeline

	// const/count row shaping
	columns    []string
	constValue interface{}
	constAlias string
	countAlias string

	// distinct mode: column.Distinct(ctx, field, filter) per spec.md §4.4's
	// ".distinct(column)" wrap, since a plain Find projection does not
	// deduplicate
	distinctField  string
	distinctAlias  string
	distinctValues []interface{}
	distinctIdx    int

	cur    *mongo.Cursor
	opened bool
	closed bool

	// a count/const cursor yields its single synthetic row exactly once
	yielded bool
	count   int64

	// mutation results, already computed when the Cursor was built
	rowsAffected int64
	lastInsertID interface{}
}

func (c *Cursor) open(ctx context.Context) error {
	if c.opened {
		return nil
	}
	c.opened = true

	switch c.kind {
	case kindFind:
		opts := options.Find()
		if c.projection != nil {
			opts.SetProjection(c.projection)
		}
		if c.sort != nil {
			opts.SetSort(c.sort)
		}
		if c.hasLimit {
			opts.SetLimit(c.limit)
		}
		cur, err := c.coll.Find(ctx, orEmpty(c.filter), opts)
		if err != nil {
			return errorkinds.DriverError.New(c.sql, err.Error())
		}
		c.cur = cur
		return nil

	case kindAggregate:
		cur, err := c.coll.Aggregate(ctx, c.pipeline)
		if err != nil {
			return errorkinds.DriverError.New(c.sql, err.Error())
		}
		c.cur = cur
		return nil

	case kindCountFind:
		n, err := c.coll.CountDocuments(ctx, orEmpty(c.filter))
		if err != nil {
			return errorkinds.DriverError.New(c.sql, err.Error())
		}
		c.count = n
		return nil

	case kindCountAggregate:
		pipeline := append(mongo.Pipeline{}, c.pipeline...)
		pipeline = append(pipeline, bson.D{{Key: "$count", Value: "n"}})
		cur, err := c.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return errorkinds.DriverError.New(c.sql, err.Error())
		}
		defer cur.Close(ctx)
		var row struct {
			N int64 `bson:"n"`
		}
		if cur.Next(ctx) {
			if err := cur.Decode(&row); err != nil {
				return errorkinds.DriverError.New(c.sql, err.Error())
			}
		}
		c.count = row.N
		return nil

	case kindConstFind:
		n, err := c.coll.CountDocuments(ctx, orEmpty(c.filter))
		if err != nil {
			return errorkinds.DriverError.New(c.sql, err.Error())
		}
		c.count = n
		return nil

	case kindDistinctFind:
		values, err := c.coll.Distinct(ctx, c.distinctField, orEmpty(c.filter))
		if err != nil {
			return errorkinds.DriverError.New(c.sql, err.Error())
		}
		c.distinctValues = values
		return nil

	case kindConstAggregate:
		pipeline := append(mongo.Pipeline{}, c.pipeline...)
		pipeline = append(pipeline, bson.D{{Key: "$count", Value: "n"}})
		cur, err := c.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return errorkinds.DriverError.New(c.sql, err.Error())
		}
		defer cur.Close(ctx)
		var row struct {
			N int64 `bson:"n"`
		}
		if cur.Next(ctx) {
			if err := cur.Decode(&row); err != nil {
				return errorkinds.DriverError.New(c.sql, err.Error())
			}
		}
		c.count = row.N
		return nil
	}
	return nil
}

func orEmpty(f bson.M) bson.M {
	if f == nil {
		return bson.M{}
	}
	return f
}

// Columns reports the ordered column names this Cursor's rows are keyed by,
// for a database/sql/driver.Rows-style caller.
func (c *Cursor) Columns() []string {
	switch c.kind {
	case kindCountFind, kindCountAggregate:
		return []string{c.countAlias}
	case kindConstFind, kindConstAggregate:
		return []string{c.constAlias}
	case kindDistinctFind:
		return []string{c.distinctAlias}
	}
	return c.columns
}

// Next advances the cursor and returns the next row as field->value, or
// ok=false once exhausted. A wildcard ColumnSelect returns the whole
// document; an explicit column list plucks only those fields by name, which
// is how find-mode's extra "_id" key (MongoDB always returns it unless
// explicitly excluded) is dropped without any row-arity bookkeeping.
func (c *Cursor) Next(ctx context.Context) (map[string]interface{}, bool, error) {
	if c.closed {
		return nil, false, nil
	}
	if err := c.open(ctx); err != nil {
		return nil, false, err
	}

	switch c.kind {
	case kindCountFind, kindCountAggregate:
		if c.yielded {
			return nil, false, nil
		}
		c.yielded = true
		return map[string]interface{}{c.countAlias: c.count}, true, nil

	case kindConstFind, kindConstAggregate:
		if c.count <= 0 {
			return nil, false, nil
		}
		c.count--
		return map[string]interface{}{c.constAlias: c.constValue}, true, nil

	case kindDistinctFind:
		if c.distinctIdx >= len(c.distinctValues) {
			return nil, false, nil
		}
		v := c.distinctValues[c.distinctIdx]
		c.distinctIdx++
		return map[string]interface{}{c.distinctAlias: v}, true, nil

	case kindMutation:
		return nil, false, nil

	default: // kindFind, kindAggregate
		if c.cur == nil {
			return nil, false, nil
		}
		if !c.cur.Next(ctx) {
			return nil, false, c.cur.Err()
		}
		var doc bson.M
		if err := c.cur.Decode(&doc); err != nil {
			return nil, false, errorkinds.DriverError.New(c.sql, err.Error())
		}
		if len(c.columns) == 0 {
			return doc, true, nil
		}
		row := make(map[string]interface{}, len(c.columns))
		for _, col := range c.columns {
			v, present := doc[col]
			if !present {
				log.WithField("column", col).Debug("field missing from document, yielding null")
			}
			row[col] = v
		}
		return row, true, nil
	}
}

// Count reports the number of rows this Cursor would yield, without
// consuming it: find/aggregate modes materialize nothing extra by reusing
// CountDocuments/a $count stage; count/const modes already know the answer.
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	if err := c.open(ctx); err != nil {
		return 0, err
	}
	switch c.kind {
	case kindCountFind, kindCountAggregate, kindConstFind, kindConstAggregate:
		return c.count, nil
	case kindDistinctFind:
		return int64(len(c.distinctValues)), nil
	case kindFind:
		return c.coll.CountDocuments(ctx, orEmpty(c.filter))
	case kindAggregate:
		pipeline := append(mongo.Pipeline{}, c.pipeline...)
		pipeline = append(pipeline, bson.D{{Key: "$count", Value: "n"}})
		cur, err := c.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return 0, errorkinds.DriverError.New(c.sql, err.Error())
		}
		defer cur.Close(ctx)
		var row struct {
			N int64 `bson:"n"`
		}
		if cur.Next(ctx) {
			cur.Decode(&row)
		}
		return row.N, nil
	default:
		return 0, nil
	}
}

// Close releases the underlying driver cursor, if one was opened. Idempotent
// per spec.md §5.
func (c *Cursor) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.cur != nil {
		return c.cur.Close(ctx)
	}
	return nil
}

// RowsAffected is meaningful for INSERT/UPDATE/DELETE cursors.
func (c *Cursor) RowsAffected() int64 { return c.rowsAffected }

// LastInsertID is meaningful for INSERT cursors: the auto-increment value
// for a table that has one, otherwise the inserted document's _id (an
// ObjectID as its hex string). It is nil for every other statement.
func (c *Cursor) LastInsertID() interface{} { return c.lastInsertID }
