package clause

import (
	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
	"go.mongodb.org/mongo-driver/bson"
)

// OrderField is one ORDER BY column with its direction: +1 for ASC, -1 for
// DESC, per spec.md §4.4's Order converter.
type OrderField struct {
	Table     string
	Column    string
	Direction int
}

// Order is the fully parsed ORDER BY clause.
type Order struct {
	Fields []OrderField
}

// ParseOrder reads the comma-separated column list following "ORDER BY".
func ParseOrder(tokens []*ast.Token, ctx *qctx.Context) (*Order, error) {
	items := columnItems(tokens)
	if len(items) == 0 {
		return nil, errorkinds.MalformedSQL.New("ORDER BY has no columns")
	}
	o := &Order{}
	for _, item := range items {
		if !item.Is(ast.KindIdentifier) {
			return nil, errorkinds.MalformedSQL.New("ORDER BY item must be a column")
		}
		r := resolver.New(item, ctx)
		table, err := r.Table()
		if err != nil {
			return nil, err
		}
		col, err := r.Column()
		if err != nil {
			return nil, err
		}
		dir, err := r.Order()
		if err != nil {
			return nil, err
		}
		o.Fields = append(o.Fields, OrderField{Table: table, Column: col, Direction: dir})
	}
	return o, nil
}

// Sort emits the find-mode sort document, an ordered bson.D so multi-key
// sorts keep their declared precedence (a plain map would not).
func (o *Order) Sort(ctx *qctx.Context) bson.D {
	d := make(bson.D, 0, len(o.Fields))
	for _, f := range o.Fields {
		d = append(d, bson.E{Key: ctx.Qualify(f.Table, f.Column), Value: f.Direction})
	}
	return d
}

// SortStage emits the aggregation-pipeline-mode $sort fragment.
func (o *Order) SortStage(ctx *qctx.Context) bson.M {
	return bson.M{"$sort": o.Sort(ctx)}
}

// Limit is the LIMIT clause's row cap.
type Limit struct {
	N int64
}

// ParseLimit reads the integer literal following "LIMIT".
func ParseLimit(tok *ast.Token) (*Limit, error) {
	if tok == nil || tok.Kind != ast.KindNumber {
		return nil, errorkinds.MalformedSQL.New("LIMIT must be an integer literal")
	}
	n, err := parseInt(tok.Value)
	if err != nil {
		return nil, errorkinds.MalformedSQL.New("bad LIMIT value: " + tok.Value)
	}
	return &Limit{N: n}, nil
}

// LimitStage emits the aggregation-pipeline-mode $limit fragment.
func (l *Limit) LimitStage() bson.M {
	return bson.M{"$limit": l.N}
}

func parseInt(s string) (int64, error) {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errorkinds.MalformedSQL.New("not an integer: " + s)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}
