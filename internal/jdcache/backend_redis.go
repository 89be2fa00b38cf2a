package jdcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cvtailor-backend/internal/shared/util"
)

// bumpScript checks freshness and increments in one server-side step.
// Times are unix milliseconds so Lua numbers stay exact.
var bumpScript = redis.NewScript(`
local cached = redis.call('HGET', KEYS[1], 'cached_at')
if not cached then
  return false
end
if tonumber(cached) < tonumber(ARGV[2]) then
  return false
end
local n = redis.call('HINCRBY', KEYS[1], 'use_count', 1)
redis.call('HSET', KEYS[1], 'last_used_at', ARGV[1])
return {redis.call('HGET', KEYS[1], 'analysis'), cached, n}
`)

// RedisBackend shares entries across API instances. Each entry is a hash
// that Redis expires shortly after the TTL.
type RedisBackend struct {
	Client redis.UniversalClient
	Prefix string
}

// NewRedisBackend constructs a RedisBackend.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{Client: client, Prefix: prefix}
}

func (b *RedisBackend) key(k Key) string {
	return b.Prefix + "jdcache:" + util.HashUserKey(k.UserID+"\x00"+k.Company+"\x00"+k.JDURL)
}

func (b *RedisBackend) Bump(ctx context.Context, key Key, now, notBefore time.Time) (Entry, bool, error) {
	res, err := bumpScript.Run(ctx, b.Client, []string{b.key(key)},
		now.UnixMilli(),
		notBefore.UnixMilli(),
	).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	if len(res) != 3 {
		return Entry{}, false, fmt.Errorf("jdcache: unexpected bump reply of %d items", len(res))
	}
	analysis, _ := res[0].(string)
	cachedStr, _ := res[1].(string)
	cachedMs, err := strconv.ParseInt(cachedStr, 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("jdcache: bad cached_at %q", cachedStr)
	}
	count, _ := res[2].(int64)
	return Entry{
		Key:        key,
		Analysis:   []byte(analysis),
		CachedAt:   time.UnixMilli(cachedMs).UTC(),
		LastUsedAt: time.UnixMilli(now.UnixMilli()).UTC(),
		UseCount:   int(count),
	}, true, nil
}

func (b *RedisBackend) Put(ctx context.Context, e Entry, ttl time.Duration) error {
	k := b.key(e.Key)
	_, err := b.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"company", e.Company,
			"jd_url", e.JDURL,
			"analysis", string(e.Analysis),
			"cached_at", e.CachedAt.UnixMilli(),
			"last_used_at", e.LastUsedAt.UnixMilli(),
			"use_count", 0,
		)
		pipe.PExpire(ctx, k, ttl+time.Hour)
		return nil
	})
	return err
}

func (b *RedisBackend) Delete(ctx context.Context, key Key) error {
	return b.Client.Del(ctx, b.key(key)).Err()
}

func (b *RedisBackend) Peek(ctx context.Context, key Key) (Entry, bool, error) {
	fields, err := b.Client.HGetAll(ctx, b.key(key)).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	cachedMs, _ := strconv.ParseInt(fields["cached_at"], 10, 64)
	lastMs, _ := strconv.ParseInt(fields["last_used_at"], 10, 64)
	count, _ := strconv.Atoi(fields["use_count"])
	return Entry{
		Key:        key,
		Analysis:   []byte(fields["analysis"]),
		CachedAt:   time.UnixMilli(cachedMs).UTC(),
		LastUsedAt: time.UnixMilli(lastMs).UTC(),
		UseCount:   count,
	}, true, nil
}

var _ Backend = (*RedisBackend)(nil)
