// Package cache implements an optional Redis-backed cache of parsed
// statement trees, so a caller that issues the same SQL text repeatedly
// (only its bound parameter values changing, e.g. the same SELECT run in a
// loop) doesn't pay to re-lex and re-group it every time. Repurposed from
// the teacher's engine/builders/redis package: same dependency
// (go-redis/v9), a planning cache instead of a hash-filter evaluator, since
// this module targets one database and has no Redis query surface of its
// own to build filters for.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
)

var log = logrus.WithField("pkg", "cache")

const keyPrefix = "sqlmongo:plan:"

// PlanCache wraps a *redis.Client. A nil *PlanCache (or one built over a nil
// client) is always a clean miss, so callers don't need to special-case "no
// cache configured".
type PlanCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a PlanCache storing entries for ttl.
func New(rdb *redis.Client, ttl time.Duration) *PlanCache {
	return &PlanCache{rdb: rdb, ttl: ttl}
}

// key hashes the rewritten SQL text together with the bound parameters'
// type names: two calls with the same text but differently-shaped
// parameters (e.g. a NULL vs. a bound value at the same placeholder) must
// not share a cached tree, even though today's Builder only records
// placeholder indices, not types, because a future resolver change that
// does branch on type would otherwise silently read a stale plan.
func key(sql string, paramTypes []string) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, t := range paramTypes {
		h.Write([]byte{0})
		h.Write([]byte(t))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached Statement token tree for (sql, paramTypes).
func (c *PlanCache) Get(ctx context.Context, sql string, paramTypes []string) (*ast.Token, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key(sql, paramTypes)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Debug("plan cache get failed")
		}
		return nil, false
	}
	var stmt ast.Token
	if err := json.Unmarshal(raw, &stmt); err != nil {
		log.WithError(err).Debug("plan cache decode failed")
		return nil, false
	}
	return &stmt, true
}

// Put stores stmt for (sql, paramTypes). Failures are logged and ignored:
// the cache is an optimization, never load-bearing for correctness.
func (c *PlanCache) Put(ctx context.Context, sql string, paramTypes []string, stmt *ast.Token) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(stmt)
	if err != nil {
		log.WithError(err).Debug("plan cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, key(sql, paramTypes), raw, c.ttl).Err(); err != nil {
		log.WithError(err).Debug("plan cache set failed")
	}
}

// ParamTypes derives the type-signature used for the cache key from a bound
// parameter list, grounded on the teacher's reflect-based value inspection
// in engine/translator's parameter binding.
func ParamTypes(params []interface{}) []string {
	out := make([]string, len(params))
	for i, p := range params {
		if p == nil {
			out[i] = "null"
			continue
		}
		out[i] = typeName(p)
	}
	return out
}

func typeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "float"
	case bool:
		return "bool"
	default:
		return "other"
	}
}
