// Package mapping holds the small constant tables shared by engine/predicate
// and engine/clause: the SQL comparison operator to MongoDB query-operator
// table, trimmed down from the teacher's multi-dialect OperatorMap to the
// single MongoDB target this module emits.
package mapping

// CmpOperator maps a SQL comparison operator to its MongoDB query-operator
// equivalent, used when building {field: {$op: value}}, matching the
// original's OPERATOR_MAP (mongo2sql/__init__.py): every comparison,
// including bare "=", always resolves to an explicit $op. "!=" has no
// entry: engine/lexer never tokenizes "!", so it can't reach here — the
// accepted WHERE operator set is "= > < >= <=".
var CmpOperator = map[string]string{
	"=":  "$eq",
	">":  "$gt",
	"<":  "$lt",
	">=": "$gte",
	"<=": "$lte",
}
