// Package predicate builds and emits the WHERE expression tree described in
// spec.md §4.3: a flat arena of nodes linked by precedence rather than a
// class hierarchy, grounded on the _Op/_UnaryOp/_InNotInOp/_AndOrOp family in
// original_source/djongo/mongo2sql/common_ops.py. Construction is a single
// left-to-right pass over the clause's flat token slice; Evaluate then pops
// the precedence-ordered operator list and absorbs its left/right neighbors,
// exactly the two-pass shape the original's ParenthesisOp.__init__/evaluate
// split uses.
package predicate

import (
	"context"
	"fmt"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
	"github.com/sqlmongo-go/sqlmongo/mapping"
	"go.mongodb.org/mongo-driver/bson"
)

// Kind tags a Node with its operator family.
type Kind int

const (
	KindCmp Kind = iota
	KindIn
	KindNotIn
	KindNot
	KindAnd
	KindOr
	KindParen
)

// precedence mirrors spec.md §4.3's insertion order: Or=1, And=2, Not=3,
// NotIn=4, In=5. Cmp and Paren nodes are absorbed as operands and only
// enter the list as its sole entry when a group has no operator (Build's
// closing rule), so they carry 0.
func precedence(k Kind) int {
	switch k {
	case KindOr:
		return 1
	case KindAnd:
		return 2
	case KindNot:
		return 3
	case KindNotIn:
		return 4
	case KindIn:
		return 5
	default:
		return 0
	}
}

// NestedResolver abstracts a nested "IN (SELECT ...)" subquery: engine/planner
// implements it (it owns the planner/driver types predicate must not import)
// and hands an instance in through a Builder's NestedFactory callback.
type NestedResolver interface {
	Values(ctx context.Context) ([]interface{}, error)
}

// NestedFactory builds a NestedResolver for one nested-SELECT Parenthesis
// token. It is supplied by whatever layer owns query planning, keeping
// predicate's only dependency on planning logic behind an interface.
type NestedFactory func(nested *ast.Token) (NestedResolver, error)

// NodeID indexes into a Tree's node arena. The zero value is never a valid
// id: Tree.alloc starts allocating at 1 so a bare NodeID field defaults to
// "absent" without needing a separate validity flag.
type NodeID int

const noNode NodeID = 0

// Node is one arena-allocated predicate-tree element. Only the fields for
// its own Kind are meaningful; the rest are zero.
type Node struct {
	Kind    Kind
	Negated bool
	LHS     NodeID
	RHS     NodeID

	// KindCmp
	Field    string
	Operator string
	Value    interface{}
	ValueSet bool // true once Value has been resolved from a param/const

	// KindIn / KindNotIn
	InField      string
	Items        []resolver.ValueListItem
	Nested       NestedResolver
	NestedValues []interface{}

	// KindAnd / KindOr: operands accumulated left to right as evaluate
	// absorbs this node's LHS/RHS neighbors.
	Operands []NodeID

	// KindParen
	Inner     NodeID
	evaluated bool
}

// Tree is the arena backing one parenthesized clause and every sub-paren
// nested inside it; all of it is built and evaluated through a single
// Builder so nested Parens share the same node slice.
type Tree struct {
	nodes []Node
}

func newTree() *Tree {
	// index 0 is reserved as noNode, so the first real node is index 1.
	return &Tree{nodes: make([]Node, 1)}
}

func (t *Tree) alloc(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) get(id NodeID) *Node {
	return &t.nodes[id]
}

// Builder constructs a Tree from token slices, threading the query's alias
// table and parameter values through Cmp/In/NotIn construction.
type Builder struct {
	tree   *Tree
	ctx    *qctx.Context
	nested NestedFactory
}

// NewBuilder starts a fresh Tree. nested may be nil if the clause being
// built is known not to contain a nested SELECT; Build returns
// errorkinds.UnsupportedSQL if it encounters one anyway.
func NewBuilder(ctx *qctx.Context, nested NestedFactory) *Builder {
	return &Builder{tree: newTree(), ctx: ctx, nested: nested}
}

// Tree returns the arena the builder has been allocating into.
func (b *Builder) Tree() *Tree { return b.tree }

// Build runs the single left-to-right construction pass described in
// spec.md §4.3 over content (a clause body with its own enclosing
// parentheses already stripped) and returns the root Paren node.
//
// The closing rule differs from the original in one place: when the
// precedence-ordered operator list ends up empty, the original only
// promotes a bare Cmp. That leaves a WHERE body that is nothing but nested
// nested parentheses with no boolean operator at any level (e.g.
// "WHERE ((((a = %s))))") with an empty operator list and no way to
// evaluate — sqlparse happens to dodge this by unwrapping the outermost
// Parenthesis before construction starts, but the same shape reappears one
// level down from any AND/OR that has a lone parenthesized operand on one
// side. Build promotes whatever the last-built operand was (Cmp or Paren),
// which both fixes that case and subsumes the outer unwrap, so callers never
// need to special-case "the clause is just one Parenthesis".
func (b *Builder) Build(content []*ast.Token) (NodeID, error) {
	paren := b.tree.alloc(Node{Kind: KindParen})

	var ops []NodeID
	var last NodeID

	insert := func(id NodeID) {
		k := precedence(b.tree.get(id).Kind)
		i := 0
		// equal precedence keeps token order, except that a later NOT goes
		// first, so "NOT NOT x" applies the inner NOT before the outer one
		for i < len(ops) {
			p := precedence(b.tree.get(ops[i]).Kind)
			if p < k || (p == k && k == precedence(KindNot)) {
				break
			}
			i++
		}
		ops = append(ops, noNode)
		copy(ops[i+1:], ops[i:])
		ops[i] = id
	}

	link := func(id NodeID) {
		if last != noNode {
			n := b.tree.get(last)
			n.RHS = id
			b.tree.get(id).LHS = last
		}
		last = id
	}

	i := 0
	for i < len(content) {
		tok := content[i]

		switch {
		case tok.MatchKeyword("AND"):
			id := b.tree.alloc(Node{Kind: KindAnd})
			link(id)
			insert(id)
			i++

		case tok.MatchKeyword("OR"):
			id := b.tree.alloc(Node{Kind: KindOr})
			link(id)
			insert(id)
			i++

		case tok.MatchKeyword("NOT") && i+1 < len(content) && content[i+1].MatchKeyword("IN"):
			field, idxErr := b.precedingField(content, i)
			if idxErr != nil {
				return noNode, idxErr
			}
			id, err := b.buildInLike(KindNotIn, field, content, i+2)
			if err != nil {
				return noNode, err
			}
			link(id)
			insert(id)
			i += 3 // NOT, IN, the following "(...)"

		case tok.MatchKeyword("NOT"):
			id := b.tree.alloc(Node{Kind: KindNot})
			link(id)
			insert(id)
			i++

		case tok.MatchKeyword("IN"):
			field, idxErr := b.precedingField(content, i)
			if idxErr != nil {
				return noNode, idxErr
			}
			id, err := b.buildInLike(KindIn, field, content, i+1)
			if err != nil {
				return noNode, err
			}
			link(id)
			insert(id)
			i += 2 // IN, the following "(...)"

		case tok.Is(ast.KindComparison):
			id, err := b.buildCmp(tok)
			if err != nil {
				return noNode, err
			}
			link(id)
			i++

		case tok.Is(ast.KindParenthesis):
			id, err := b.Build(tok.Inner())
			if err != nil {
				return noNode, err
			}
			link(id)
			i++

		case tok.Is(ast.KindIdentifier):
			// the operand consumed by a following IN/NOT IN; skip, it's
			// picked up by precedingField when that keyword is reached.
			i++

		default:
			return noNode, errorkinds.UnsupportedSQL.New(fmt.Sprintf("unexpected token in WHERE clause: %v", tok.Kind))
		}
	}

	if len(ops) == 0 {
		if last == noNode {
			return noNode, errorkinds.MalformedSQL.New("empty WHERE clause")
		}
		ops = append(ops, last)
	}

	b.tree.get(paren).Operands = ops
	return paren, nil
}

// precedingField resolves the identifier immediately before an IN/NOT IN
// keyword at content[i] into its qualified column name.
func (b *Builder) precedingField(content []*ast.Token, i int) (string, error) {
	if i == 0 || !content[i-1].Is(ast.KindIdentifier) {
		return "", errorkinds.MalformedSQL.New("IN must follow an identifier")
	}
	return b.qualifiedField(content[i-1])
}

// qualifiedField names the field an operand identifier filters on: the bare
// column when it is unqualified or qualified by the query's left table,
// "table.column" when it is qualified by any other (joined) table.
func (b *Builder) qualifiedField(ident *ast.Token) (string, error) {
	r := resolver.New(ident, b.ctx)
	col, err := r.Column()
	if err != nil || len(ident.Children) < 3 || ident.Children[1].Value != "." {
		return col, err
	}
	table, err := r.Table()
	if err != nil {
		return "", err
	}
	return b.ctx.Qualify(table, col), nil
}

// buildInLike builds an In or NotIn node from the "(...)" group that follows
// an IN/NOT IN keyword at content[parenIdx].
func (b *Builder) buildInLike(kind Kind, field string, content []*ast.Token, parenIdx int) (NodeID, error) {
	if parenIdx >= len(content) || !content[parenIdx].Is(ast.KindParenthesis) {
		return noNode, errorkinds.MalformedSQL.New("IN must be followed by a parenthesized list")
	}
	paren := content[parenIdx]

	if resolver.IsNestedSelect(paren) {
		if b.nested == nil {
			return noNode, errorkinds.UnsupportedSQL.New("nested SELECT not supported in this context")
		}
		nr, err := b.nested(paren)
		if err != nil {
			return noNode, err
		}
		return b.tree.alloc(Node{Kind: kind, InField: field, Nested: nr}), nil
	}

	items, err := resolver.ValueList(paren)
	if err != nil {
		return noNode, err
	}
	return b.tree.alloc(Node{Kind: kind, InField: field, Items: items}), nil
}

func (b *Builder) buildCmp(tok *ast.Token) (NodeID, error) {
	r := resolver.New(tok, b.ctx)
	if r.RightIsIdentifier() {
		return noNode, errorkinds.UnsupportedSQL.New("join predicate in WHERE clause")
	}
	col, err := b.qualifiedField(tok.Children[0])
	if err != nil {
		return noNode, err
	}
	idx, err := r.RHSIndex()
	if err != nil {
		return noNode, err
	}
	op := ""
	if ops := tok.Children; len(ops) == 3 {
		op = ops[1].Value
	}
	return b.tree.alloc(Node{Kind: KindCmp, Field: col, Operator: op, Value: paramPlaceholder{idx}}), nil
}

// paramPlaceholder defers parameter substitution until Resolve runs, so
// Build never needs the bound argument slice itself.
type paramPlaceholder struct{ index int }

// Resolve substitutes every unresolved parameter placeholder and nested
// subquery result in the tree rooted at root with its bound value, using
// params (ctx.Params) and running any nested resolvers against ctx. It must
// run once, after Build, before Emit.
func Resolve(ctx context.Context, tree *Tree, root NodeID, params []interface{}) error {
	return resolveNode(ctx, tree, root, params)
}

func resolveNode(ctx context.Context, tree *Tree, id NodeID, params []interface{}) error {
	if id == noNode {
		return nil
	}
	n := tree.get(id)
	switch n.Kind {
	case KindCmp:
		if ph, ok := n.Value.(paramPlaceholder); ok {
			if ph.index < 0 || ph.index >= len(params) {
				return errorkinds.ParameterBindingError.New(fmt.Sprintf("missing bound parameter %d", ph.index))
			}
			n.Value = params[ph.index]
			n.ValueSet = true
		}
		return nil
	case KindIn, KindNotIn:
		if n.Nested != nil {
			vals, err := n.Nested.Values(ctx)
			if err != nil {
				return err
			}
			n.NestedValues = vals
			return nil
		}
		vals := make([]interface{}, 0, len(n.Items))
		for _, it := range n.Items {
			if it.IsNull {
				vals = append(vals, nil)
				continue
			}
			if it.Index < 0 || it.Index >= len(params) {
				return errorkinds.ParameterBindingError.New(fmt.Sprintf("missing bound parameter %d", it.Index))
			}
			vals = append(vals, params[it.Index])
		}
		n.NestedValues = vals
		return nil
	case KindAnd, KindOr, KindNot:
		if err := resolveNode(ctx, tree, n.LHS, params); err != nil {
			return err
		}
		return resolveNode(ctx, tree, n.RHS, params)
	case KindParen:
		for _, op := range n.Operands {
			if err := resolveNode(ctx, tree, op, params); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// Evaluate runs the second pass described in spec.md §4.3 and grounded on
// ParenthesisOp.evaluate/_AndOrOp.evaluate/NotOp.evaluate in
// original_source/djongo/mongo2sql/common_ops.py: pop the precedence-ordered
// operand list front to back, resolving each popped node in place, and
// record the Paren's single resulting operand as Inner. Idempotent: a Paren
// absorbed as someone else's operand may have Evaluate called on it twice.
func Evaluate(tree *Tree, id NodeID) error {
	n := tree.get(id)
	if n.Kind != KindParen {
		return fmt.Errorf("predicate: Evaluate called on non-Paren node")
	}
	if n.evaluated {
		return nil
	}
	n.evaluated = true

	ops := n.Operands
	n.Operands = nil
	last := noNode
	for _, op := range ops {
		resolved, err := evalStep(tree, op)
		if err != nil {
			return err
		}
		last = resolved
	}
	n.Inner = last
	return nil
}

// evalStep resolves one node popped off a Paren's operand list, returning
// the id that represents its result: itself for Cmp/In/NotIn/And/Or/Paren,
// or its (now negated) operand for Not — NOT is spliced out of the chain by
// evalNot, so it never needs a representation of its own at emission time.
func evalStep(tree *Tree, id NodeID) (NodeID, error) {
	n := tree.get(id)
	switch n.Kind {
	case KindNot:
		return evalNot(tree, id)
	case KindAnd, KindOr:
		if err := evalAndOr(tree, id); err != nil {
			return noNode, err
		}
		return id, nil
	case KindParen:
		if err := Evaluate(tree, id); err != nil {
			return noNode, err
		}
		return id, nil
	default: // Cmp, In, NotIn
		return id, nil
	}
}

// evalAndOr absorbs an And/Or node's lhs/rhs chain neighbors into its
// Operands, grounded exactly on _AndOrOp.evaluate: a same-kind And/Or
// neighbor is flattened (its own Operands spliced in, so "a AND b AND c"
// becomes one $and of three, not a nested pair); any other neighbor
// (Cmp/In/NotIn, or a Paren — evaluated first, then kept opaque) is appended
// as a single operand. The neighbor's own outer chain link is then
// re-pointed at this node, so that when the chain contains a second
// same-precedence op it sees the just-built Operands instead of the raw
// token-order neighbor.
func evalAndOr(tree *Tree, id NodeID) error {
	n := tree.get(id)
	if n.LHS == noNode || n.RHS == noNode {
		return errorkinds.MalformedSQL.New("AND/OR operator is missing an operand")
	}
	lhs := tree.get(n.LHS)
	switch {
	case lhs.Kind == n.Kind:
		n.Operands = append(n.Operands, lhs.Operands...)
	case lhs.Kind == KindParen:
		if err := Evaluate(tree, n.LHS); err != nil {
			return err
		}
		n.Operands = append(n.Operands, n.LHS)
	default:
		n.Operands = append(n.Operands, n.LHS)
	}

	rhs := tree.get(n.RHS)
	switch {
	case rhs.Kind == n.Kind:
		n.Operands = append(n.Operands, rhs.Operands...)
	case rhs.Kind == KindParen:
		if err := Evaluate(tree, n.RHS); err != nil {
			return err
		}
		n.Operands = append(n.Operands, n.RHS)
	default:
		n.Operands = append(n.Operands, n.RHS)
	}

	if lhs.LHS != noNode {
		tree.get(lhs.LHS).RHS = id
	}
	if rhs.RHS != noNode {
		tree.get(rhs.RHS).LHS = id
	}
	return nil
}

// evalNot applies a NOT to its chain successor, grounded on NotOp.evaluate.
// Negating an In/NotIn node is rejected (spec.md §4.3's NegatedInUnsupported)
// since "NOT IN" is its own node and a bare "IN" was never meant to be
// negated at the semantic level. The target's Negated flag is toggled
// rather than set, so a double NOT cancels; actual De Morgan push-down into
// a negated And/Or's operands happens lazily in Emit, not here.
func evalNot(tree *Tree, id NodeID) (NodeID, error) {
	n := tree.get(id)
	if n.RHS == noNode {
		return noNode, errorkinds.MalformedSQL.New("NOT has no operand")
	}
	target := tree.get(n.RHS)
	if target.Kind == KindIn || target.Kind == KindNotIn {
		return noNode, errorkinds.UnsupportedSQL.New("negated IN is not supported")
	}
	target.Negated = !target.Negated
	if target.Kind == KindParen {
		if err := Evaluate(tree, n.RHS); err != nil {
			return noNode, err
		}
	}
	if n.LHS != noNode {
		tree.get(n.LHS).RHS = n.RHS
	}
	return n.RHS, nil
}

// Emit walks the fully evaluated tree rooted at root and produces the
// bson.M filter document MongoDB expects, per spec.md §4.3's Cmp/In/NotIn/
// And/Or/Paren emission rules. Negation is threaded down as an accumulating
// XOR rather than baked into the tree during Evaluate: each node's effective
// negation is the caller's negation XORed with its own Negated flag, which
// is what gives De Morgan its full push-down — a negated And/Or swaps
// $and/$or AND passes the same effective negation to every operand, so a
// bare Cmp three levels down still ends up $not-wrapped.
func Emit(tree *Tree, root NodeID) (bson.M, error) {
	return emit(tree, root, false)
}

func emit(tree *Tree, id NodeID, neg bool) (bson.M, error) {
	n := tree.get(id)
	eff := neg != n.Negated

	switch n.Kind {
	case KindCmp:
		return emitCmp(n, eff), nil

	case KindIn, KindNotIn:
		op := "$in"
		if n.Kind == KindNotIn {
			op = "$nin"
		}
		if eff {
			op = swapInOp(op)
		}
		return bson.M{n.InField: bson.M{op: n.NestedValues}}, nil

	case KindAnd, KindOr:
		key := "$and"
		if n.Kind == KindOr {
			key = "$or"
		}
		if eff {
			key = swapBoolOp(key)
		}
		parts := make([]bson.M, 0, len(n.Operands))
		for _, op := range n.Operands {
			m, err := emit(tree, op, eff)
			if err != nil {
				return nil, err
			}
			parts = append(parts, m)
		}
		return bson.M{key: parts}, nil

	case KindParen:
		return emit(tree, n.Inner, eff)

	default:
		return nil, fmt.Errorf("predicate: cannot emit node kind %v", n.Kind)
	}
}

func swapInOp(op string) string {
	if op == "$in" {
		return "$nin"
	}
	return "$in"
}

func swapBoolOp(key string) string {
	if key == "$and" {
		return "$or"
	}
	return "$and"
}

func emitCmp(n *Node, eff bool) bson.M {
	mongoOp, ok := mapping.CmpOperator[n.Operator]
	if !ok {
		mongoOp = "$eq"
	}
	if eff {
		return bson.M{n.Field: bson.M{"$not": bson.M{mongoOp: n.Value}}}
	}
	return bson.M{n.Field: bson.M{mongoOp: n.Value}}
}
