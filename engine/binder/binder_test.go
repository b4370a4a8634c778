package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"no placeholders", "SELECT * FROM t", "SELECT * FROM t"},
		{"single", "SELECT * FROM t WHERE id = %s", "SELECT * FROM t WHERE id = %(0)s"},
		{"multiple in order", "WHERE a = %s AND b = %s", "WHERE a = %(0)s AND b = %(1)s"},
		{"three placeholders", "%s-%s-%s", "%(0)s-%(1)s-%(2)s"},
		{"lone percent untouched", "100% done, id = %s", "100% done, id = %(0)s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rewrite(tt.sql))
		})
	}
}
