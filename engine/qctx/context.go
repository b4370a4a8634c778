// Package qctx carries the per-query state that every later stage needs to
// read: the query's own SQL token tree is immutable, but the alias table it
// feeds and the bound parameter list are populated incrementally while
// clauses parse (FROM before WHERE/JOIN/ORDER, per spec invariant) and then
// only read afterward.
package qctx

// Context is created once per statement and threaded through resolver,
// predicate and clause construction. It owns no tokens; it is pure
// bookkeeping.
type Context struct {
	// LeftTable is the table named in FROM (SELECT/DELETE) or the target of
	// UPDATE. Set once, read by every Cmp/In/NotIn field-qualification
	// decision ("column" vs "table.column").
	LeftTable string

	// Aliases maps a table alias used in the SQL to the real table name it
	// stands in for.
	Aliases map[string]string

	// Params is the full, ordered parameter list bound for this statement.
	Params []interface{}
}

func New(params []interface{}) *Context {
	return &Context{Aliases: make(map[string]string), Params: params}
}

// ResolveTable returns the real table name for a possibly-aliased
// qualifier: if name is a known alias, its target table is returned;
// otherwise name is returned unchanged (it was never aliased).
func (c *Context) ResolveTable(name string) string {
	if real, ok := c.Aliases[name]; ok {
		return real
	}
	return name
}

// Qualify decides whether a field belongs to the query's left table (and so
// should be emitted bare) or to a joined table (and so needs "table.column").
func (c *Context) Qualify(table, column string) string {
	if table == c.LeftTable {
		return column
	}
	return table + "." + column
}

// Param returns the k-th bound parameter, bounds-checked.
func (c *Context) Param(k int) (interface{}, bool) {
	if k < 0 || k >= len(c.Params) {
		return nil, false
	}
	return c.Params[k], true
}
