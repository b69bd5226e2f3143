package cache

import (
	"context"
	"errors"
	"time"
)

// Store 负责带 TTL 的键值读写，实现需保证单次 Get/Set 的原子性。
type Store interface {
	// Get 返回 key 对应的值。不存在或已过期时返回 ErrNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入 value 并在 ttl 后过期；同一 key 的并发写入以最后一次为准。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

// ErrInvalidTTL 表示写入时给出了非正数 TTL。
var ErrInvalidTTL = errors.New("cache ttl must be positive")
