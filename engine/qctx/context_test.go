package qctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInitializesAliases(t *testing.T) {
	c := New([]interface{}{1, "a"})
	assert.NotNil(t, c.Aliases)
	assert.Equal(t, []interface{}{1, "a"}, c.Params)
}

func TestResolveTableAliasedAndUnaliased(t *testing.T) {
	c := New(nil)
	c.Aliases["u"] = "users"

	assert.Equal(t, "users", c.ResolveTable("u"))
	assert.Equal(t, "orders", c.ResolveTable("orders"))
}

func TestQualify(t *testing.T) {
	c := New(nil)
	c.LeftTable = "users"

	assert.Equal(t, "name", c.Qualify("users", "name"))
	assert.Equal(t, "orders.name", c.Qualify("orders", "name"))
}

func TestParam(t *testing.T) {
	c := New([]interface{}{"first", "second"})

	v, ok := c.Param(0)
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	v, ok = c.Param(1)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	_, ok = c.Param(2)
	assert.False(t, ok)

	_, ok = c.Param(-1)
	assert.False(t, ok)
}
