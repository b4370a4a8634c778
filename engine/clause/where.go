package clause

import (
	"context"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/predicate"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
	"go.mongodb.org/mongo-driver/bson"
)

// Where wraps the WHERE clause's expression tree. Construction is the
// WhereRoot described in spec.md §4.4: the clause body (the Where token's
// children with the leading WHERE keyword dropped) is built as one synthetic
// top-level Paren, exactly like any nested parenthesis, which is why no
// separate "unwrap a bare outer parenthesis" step is needed here — the
// underlying predicate.Build closing rule already handles that shape.
type Where struct {
	tree *predicate.Tree
	root predicate.NodeID
}

// ParseWhere builds (but does not resolve or evaluate) the predicate tree
// for a Where token. nested resolves a nested "IN (SELECT ...)" subquery and
// may be nil if the statement cannot contain one.
func ParseWhere(tok *ast.Token, ctx *qctx.Context, nested predicate.NestedFactory) (*Where, error) {
	if !tok.Is(ast.KindWhere) || len(tok.Children) == 0 {
		return nil, errorkinds.MalformedSQL.New("expected WHERE clause")
	}
	b := predicate.NewBuilder(ctx, nested)
	root, err := b.Build(tok.Children[1:])
	if err != nil {
		return nil, err
	}
	return &Where{tree: b.Tree(), root: root}, nil
}

// Resolve substitutes bound parameters and nested-subquery results, then
// runs the single evaluation pass that flattens AND/OR chains and propagates
// NOT. It must run once, before Filter/MatchStage.
func (w *Where) Resolve(ctx context.Context, params []interface{}) error {
	if err := predicate.Resolve(ctx, w.tree, w.root, params); err != nil {
		return err
	}
	return predicate.Evaluate(w.tree, w.root)
}

// Filter emits the find-mode fragment: a bare filter document passed
// straight to Collection.Find/FindOne/UpdateMany/DeleteMany.
func (w *Where) Filter() (bson.M, error) {
	return predicate.Emit(w.tree, w.root)
}

// MatchStage emits the aggregation-pipeline-mode fragment.
func (w *Where) MatchStage() (bson.M, error) {
	filter, err := w.Filter()
	if err != nil {
		return nil, err
	}
	return bson.M{"$match": filter}, nil
}
