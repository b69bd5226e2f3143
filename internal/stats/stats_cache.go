// Package stats keeps per-package statistics in a TTL cache and derives the
// download counts shown by widgets.
package stats

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/pypi-stats/internal/cache"
	"github.com/any-hub/pypi-stats/internal/config"
	"github.com/any-hub/pypi-stats/internal/logging"
	"github.com/any-hub/pypi-stats/internal/pypi"
)

// Fetcher 执行一次回源请求，pypi.Client 满足该接口。
type Fetcher interface {
	Fetch(ctx context.Context, packageName string) ([]byte, int, error)
}

// Options 在启动阶段确定，StatsCache 构造后不再修改。
type Options struct {
	Store   cache.Store
	Fetcher Fetcher
	TTL     time.Duration
	Logger  *logrus.Logger
}

// StatsCache 实现“缓存命中 → 回源 → 写缓存”的流程，强制刷新时 TTL 翻倍。
type StatsCache struct {
	store   cache.Store
	fetcher Fetcher
	ttl     time.Duration
	logger  *logrus.Logger
}

var (
	nullBody        = []byte("null")
	emptyObjectBody = []byte("{}")
	packageTypeName = reflect.TypeOf(config.PackageConfig{}).Name()
)

// New 校验依赖后构建 StatsCache。
func New(opts Options) (*StatsCache, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &StatsCache{
		store:   opts.Store,
		fetcher: opts.Fetcher,
		ttl:     opts.TTL,
		logger:  opts.Logger,
	}, nil
}

// Key 返回包对应的缓存键，只由包名决定。
func (c *StatsCache) Key(pkg config.PackageConfig) string {
	return cache.Key(packageTypeName, pkg.PackageName)
}

// TTLFor 返回写缓存使用的 TTL，强制刷新时为基础时长的两倍。
func (c *StatsCache) TTLFor(forceRefresh bool) time.Duration {
	if forceRefresh {
		return c.ttl * 2
	}
	return c.ttl
}

// Get 返回包的统计数据，nil 表示没有数据。回源失败只记录日志，不返回错误。
func (c *StatsCache) Get(ctx context.Context, pkg config.PackageConfig, forceRefresh bool) *pypi.Payload {
	key := c.Key(pkg)
	fields := logging.RefreshFields(pkg.PackageName, key, forceRefresh)

	if !forceRefresh {
		if payload, ok := c.lookup(ctx, key, fields); ok {
			return payload
		}
	}

	if forceRefresh {
		c.logger.WithFields(fields).Info("forced_refresh")
	} else {
		c.logger.WithFields(fields).Info("natural_refresh")
	}

	body, payload := c.fetch(ctx, pkg, fields)
	if err := c.store.Set(ctx, key, body, c.TTLFor(forceRefresh)); err != nil {
		c.logger.WithError(err).WithFields(fields).Warn("cache_set_failed")
	}
	return payload
}

// lookup 只把非空条目视为命中；null、{} 与损坏的正文都会触发回源。
func (c *StatsCache) lookup(ctx context.Context, key string, fields logrus.Fields) (*pypi.Payload, bool) {
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrNotFound):
		return nil, false
	default:
		c.logger.WithError(err).WithFields(fields).Warn("cache_get_failed")
		return nil, false
	}

	if isEmptyBody(raw) {
		return nil, false
	}
	payload, err := pypi.ParsePayload(raw)
	if err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}

// fetch 返回待写入缓存的正文与解析结果；任何失败都得到 null 与 nil。
func (c *StatsCache) fetch(ctx context.Context, pkg config.PackageConfig, fields logrus.Fields) ([]byte, *pypi.Payload) {
	body, status, err := c.fetcher.Fetch(ctx, pkg.PackageName)
	if err != nil {
		c.logger.WithError(err).WithFields(fields).Warn("upstream_fetch_failed")
		return nullBody, nil
	}
	if status != http.StatusOK {
		c.logger.WithFields(fields).WithField("upstream_status", status).Warn("upstream_non_200")
		return nullBody, nil
	}

	payload, err := pypi.ParsePayload(body)
	if err != nil {
		c.logger.WithError(err).WithFields(fields).Warn("upstream_payload_invalid")
		return nullBody, nil
	}
	if payload == nil {
		return nullBody, nil
	}
	return bytes.TrimSpace(body), payload
}

func isEmptyBody(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, nullBody) || bytes.Equal(trimmed, emptyObjectBody)
}
