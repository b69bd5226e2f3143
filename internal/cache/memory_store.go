package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// NewMemoryStore 构建进程内缓存，cleanupInterval 控制过期条目的回收频率。
func NewMemoryStore(cleanupInterval time.Duration) Store {
	return &memoryStore{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

type memoryStore struct {
	items *gocache.Cache
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, ok := s.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	value, ok := raw.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}
