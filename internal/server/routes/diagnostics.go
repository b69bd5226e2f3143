package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/pypi-stats/internal/config"
	"github.com/any-hub/pypi-stats/internal/server"
	"github.com/any-hub/pypi-stats/internal/stats"
	"github.com/any-hub/pypi-stats/internal/version"
)

// StatsSource 是路由层依赖的统计缓存能力，*stats.StatsCache 满足该接口。
type StatsSource interface {
	stats.PayloadSource
	Key(pkg config.PackageConfig) string
	TTLFor(forceRefresh bool) time.Duration
}

// Refresher 执行一次全量强制刷新，*refresh.Job 满足该接口。
type Refresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// DiagnosticsOptions 汇总 /-/ 诊断接口需要的依赖。
type DiagnosticsOptions struct {
	Registry     *server.Registry
	Source       StatsSource
	Refresher    Refresher
	CacheBackend config.CacheBackend
	Logger       *logrus.Logger
}

// RegisterDiagnosticsRoutes 暴露 /-/healthz、/-/packages 与 /-/refresh。
func RegisterDiagnosticsRoutes(app *fiber.App, opts DiagnosticsOptions) {
	if app == nil || opts.Registry == nil || opts.Source == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": version.Full()})
	})

	app.Get("/-/packages", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cache": cacheSettingsPayload{
				Backend:          string(opts.CacheBackend),
				TTLSeconds:       int64(opts.Source.TTLFor(false) / time.Second),
				ForcedTTLSeconds: int64(opts.Source.TTLFor(true) / time.Second),
			},
			"packages": encodePackages(opts.Registry, opts.Source),
		})
	})

	if opts.Refresher == nil {
		return
	}
	app.Post("/-/refresh", func(c fiber.Ctx) error {
		count, err := opts.Refresher.RefreshAll(c.Context())
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.WithError(err).WithFields(logrus.Fields{
					"action":     "manual_refresh",
					"request_id": server.RequestID(c),
				}).Warn("manual refresh interrupted")
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":     "refresh_interrupted",
				"refreshed": count,
			})
		}
		return c.JSON(fiber.Map{"refreshed": count})
	})
}

type cacheSettingsPayload struct {
	Backend          string `json:"backend"`
	TTLSeconds       int64  `json:"ttl_seconds"`
	ForcedTTLSeconds int64  `json:"forced_ttl_seconds"`
}

type packageBindingPayload struct {
	PackageName string   `json:"package_name"`
	Label       string   `json:"label"`
	CacheKey    string   `json:"cache_key"`
	Widgets     []string `json:"widgets"`
}

func encodePackages(registry *server.Registry, source StatsSource) []packageBindingPayload {
	widgetsByPackage := lo.GroupBy(
		lo.Filter(registry.Widgets(), func(w stats.Widget, _ int) bool { return w.HasPackage() }),
		func(w stats.Widget) string { return w.Package.PackageName },
	)
	return lo.Map(registry.Packages(), func(pkg config.PackageConfig, _ int) packageBindingPayload {
		names := lo.Map(widgetsByPackage[pkg.PackageName], func(w stats.Widget, _ int) string { return w.Name })
		return packageBindingPayload{
			PackageName: pkg.PackageName,
			Label:       pkg.Label,
			CacheKey:    source.Key(pkg),
			Widgets:     append([]string{}, names...),
		}
	})
}
