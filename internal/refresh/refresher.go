// Package refresh runs the periodic job that force-refreshes every configured
// package so widgets rarely hit a cold cache.
package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/any-hub/pypi-stats/internal/config"
	"github.com/any-hub/pypi-stats/internal/stats"
)

// Options 描述刷新任务的依赖，Clock 为空时使用真实时钟。
type Options struct {
	Source         stats.PayloadSource
	Packages       []config.PackageConfig
	Interval       time.Duration
	Concurrency    int
	RefreshOnStart bool
	Logger         *logrus.Logger
	Clock          clockwork.Clock
}

// Job 按固定间隔对所有包执行强制刷新。
type Job struct {
	source         stats.PayloadSource
	packages       []config.PackageConfig
	interval       time.Duration
	concurrency    int
	refreshOnStart bool
	logger         *logrus.Logger
	clock          clockwork.Clock
}

// New 校验参数并构建 Job。
func New(opts Options) (*Job, error) {
	if opts.Source == nil {
		return nil, errors.New("payload source is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("refresh interval must be positive")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Job{
		source:         opts.Source,
		packages:       append([]config.PackageConfig(nil), opts.Packages...),
		interval:       opts.Interval,
		concurrency:    concurrency,
		refreshOnStart: opts.RefreshOnStart,
		logger:         opts.Logger,
		clock:          clock,
	}, nil
}

// RefreshAll 对每个包执行一次强制刷新，返回完成刷新的包数量。
// 各包之间互不影响，同一包的重复刷新以最后一次写入为准。
func (j *Job) RefreshAll(ctx context.Context) (int, error) {
	var refreshed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(j.concurrency)
	for _, pkg := range j.packages {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			payload := j.source.Get(groupCtx, pkg, true)
			refreshed.Add(1)
			j.logger.WithFields(logrus.Fields{
				"action":    "refresh_package",
				"package":   pkg.PackageName,
				"available": payload != nil,
			}).Infof("PyPIStatsRepository %s loaded", pkg.PackageName)
			return nil
		})
	}
	err := group.Wait()
	return int(refreshed.Load()), err
}

// Run 阻塞执行定时刷新，直到 ctx 取消。
func (j *Job) Run(ctx context.Context) error {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.WithFields(logrus.Fields{
		"action":   "refresh_schedule",
		"interval": j.interval.String(),
		"packages": len(j.packages),
	}).Info("refresh job started")

	if j.refreshOnStart {
		j.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			j.tick(ctx)
		}
	}
}

func (j *Job) tick(ctx context.Context) {
	started := j.clock.Now()
	count, err := j.RefreshAll(ctx)
	fields := logrus.Fields{
		"action":      "refresh_tick",
		"refreshed":   count,
		"duration_ms": j.clock.Since(started).Milliseconds(),
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		j.logger.WithError(err).WithFields(fields).Warn("refresh tick interrupted")
		return
	}
	j.logger.WithFields(fields).Info("refresh tick completed")
}
