package planner

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// schemaCollection is the auxiliary collection CREATE TABLE's AUTOINCREMENT
// bookkeeping and INSERT's sequence allocation both read and write, grounded
// on djongo's __schema__ collection (queries.py/result.py). The document
// shape, {name, auto: {seq, field_names}}, matches spec.md's required
// "{name: t, auto: {seq: 0, field_names: [field, ...]}}" literally: a table
// with more than one AUTOINCREMENT column shares a single counter across all
// of its registered fields, recorded as a list rather than a lone scalar.
const schemaCollection = "__schema__"

type autoIncrement struct {
	Seq        int64    `bson:"seq"`
	FieldNames []string `bson:"field_names"`
}

type tableSchema struct {
	Name string        `bson:"name"`
	Auto autoIncrement `bson:"auto"`
}

// autoIncrementField is one column INSERT must populate from table's shared
// sequence counter.
type autoIncrementField struct {
	Field string
	Seq   int64
}

// registerAutoIncrement upserts the __schema__ entry a CREATE TABLE with an
// AUTOINCREMENT column installs, adding field to auto.field_names without
// disturbing any sibling field a prior call already registered for the same
// table.
func (d *Driver) registerAutoIncrement(ctx context.Context, sql, table, field string) error {
	coll := d.DB.Collection(schemaCollection)
	_, err := coll.UpdateOne(ctx,
		bson.M{"name": table},
		bson.M{
			"$addToSet":    bson.M{"auto.field_names": field},
			"$setOnInsert": bson.M{"auto.seq": int64(0)},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errorkinds.DriverError.New(sql, err.Error())
	}
	return nil
}

// nextAutoIncrement atomically increments table's shared sequence value and
// returns the (field, value) assignment for every AUTOINCREMENT column
// registered on it. ok is false if table has no registered autoincrement
// column, in which case INSERT proceeds without adding one.
func (d *Driver) nextAutoIncrement(ctx context.Context, sql, table string) (fields []autoIncrementField, ok bool, err error) {
	coll := d.DB.Collection(schemaCollection)
	res := coll.FindOneAndUpdate(ctx,
		bson.M{"name": table, "auto.field_names.0": bson.M{"$exists": true}},
		bson.M{"$inc": bson.M{"auto.seq": int64(1)}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if res.Err() == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if res.Err() != nil {
		return nil, false, errorkinds.DriverError.New(sql, res.Err().Error())
	}
	var doc tableSchema
	if err := res.Decode(&doc); err != nil {
		return nil, false, errorkinds.DriverError.New(sql, err.Error())
	}
	out := make([]autoIncrementField, len(doc.Auto.FieldNames))
	for i, f := range doc.Auto.FieldNames {
		out[i] = autoIncrementField{Field: f, Seq: doc.Auto.Seq}
	}
	return out, true, nil
}
