// Package binder rewrites positional "%s" placeholders into numbered
// "%(k)s" placeholders keyed by the placeholder's ordinal position, so any
// later stage can recover the parameter index from the placeholder token's
// text alone.
package binder

import (
	"strconv"
	"strings"
)

// Rewrite replaces the k-th "%s" in sql with "%(k)s" (0-based), leaving
// every other character untouched. The parameter list is not touched here:
// callers index it by k.
func Rewrite(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)

	index := 0
	for i := 0; i < len(sql); {
		if sql[i] == '%' && i+1 < len(sql) && sql[i+1] == 's' {
			b.WriteByte('%')
			b.WriteByte('(')
			b.WriteString(strconv.Itoa(index))
			b.WriteString(")s")
			index++
			i += 2
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}
