package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/pypi-stats/internal/cache"
	"github.com/any-hub/pypi-stats/internal/config"
	"github.com/any-hub/pypi-stats/internal/logging"
	"github.com/any-hub/pypi-stats/internal/pypi"
	"github.com/any-hub/pypi-stats/internal/refresh"
	"github.com/any-hub/pypi-stats/internal/server"
	"github.com/any-hub/pypi-stats/internal/server/routes"
	"github.com/any-hub/pypi-stats/internal/stats"
	"github.com/any-hub/pypi-stats/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	refreshOnce bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, opts)
	stop()
	os.Exit(code)
}

// services 是启动阶段一次性构建的依赖集合。
type services struct {
	cfg        *config.Config
	logger     *logrus.Logger
	registry   *server.Registry
	statsCache *stats.StatsCache
	refresher  *refresh.Job
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(ctx context.Context, opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["packages"] = config.PackageNames(cfg.Packages)
		fields["widgets"] = len(cfg.Widgets)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 缓存存储 → StatsCache → 刷新任务 → Fiber server，
	// 所有请求与定时任务共享同一个 StatsCache。
	svc, err := buildServices(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务失败: %v\n", err)
		return 1
	}

	if opts.refreshOnce {
		count, err := svc.refresher.RefreshAll(ctx)
		fields := logging.BaseFields("refresh_once", opts.configPath)
		fields["refreshed"] = count
		if err != nil {
			logger.WithError(err).WithFields(fields).Error("刷新中断")
			return 1
		}
		logger.WithFields(fields).Info("刷新完成")
		return 0
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["packages"] = config.PackageNames(cfg.Packages)
	fields["widgets"] = len(cfg.Widgets)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_backend"] = cfg.Global.CacheBackend
	fields["cache_duration"] = cfg.CacheTTL().String()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := serve(ctx, svc); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("pypi-stats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag  string
		checkOnly   bool
		refreshOnce bool
		showVer     bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 PYPI_STATS_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&refreshOnce, "refresh-once", false, "强制刷新所有包后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("PYPI_STATS_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		refreshOnce: refreshOnce,
		showVersion: showVer,
	}, nil
}

func buildServices(cfg *config.Config, logger *logrus.Logger) (*services, error) {
	registry, err := server.NewRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("构建注册表失败: %w", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}

	client := pypi.NewClient(server.NewUpstreamClient(cfg), cfg.Global.PyPIBaseURL)
	statsCache, err := stats.New(stats.Options{
		Store:   store,
		Fetcher: client,
		TTL:     cfg.CacheTTL(),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	refresher, err := refresh.New(refresh.Options{
		Source:         statsCache,
		Packages:       registry.Packages(),
		Interval:       cfg.RefreshInterval(),
		Concurrency:    cfg.Global.RefreshConcurrency,
		RefreshOnStart: cfg.Global.RefreshOnStartup,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		statsCache: statsCache,
		refresher:  refresher,
	}, nil
}

func newStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Global.CacheBackend {
	case config.CacheBackendDisk:
		return cache.NewStore(cfg.Global.StoragePath)
	default:
		return cache.NewMemoryStore(2 * cfg.CacheTTL()), nil
	}
}

func newHTTPApp(svc *services) (*fiber.App, error) {
	app, err := server.NewApp(server.AppOptions{
		Logger:   svc.logger,
		Registry: svc.registry,
	})
	if err != nil {
		return nil, err
	}
	routes.RegisterStatsRoutes(app, svc.registry, svc.statsCache)
	routes.RegisterDiagnosticsRoutes(app, routes.DiagnosticsOptions{
		Registry:     svc.registry,
		Source:       svc.statsCache,
		Refresher:    svc.refresher,
		CacheBackend: svc.cfg.Global.CacheBackend,
		Logger:       svc.logger,
	})
	return app, nil
}

// serve 启动刷新任务与 HTTP 服务，ctx 取消后依次关闭。
func serve(ctx context.Context, svc *services) error {
	app, err := newHTTPApp(svc)
	if err != nil {
		return err
	}

	jobCtx, cancelJob := context.WithCancel(ctx)
	jobDone := make(chan struct{})
	go func() {
		defer close(jobDone)
		_ = svc.refresher.Run(jobCtx)
	}()

	listenErr := make(chan error, 1)
	port := svc.cfg.Global.ListenPort
	go func() {
		svc.logger.WithFields(logrus.Fields{
			"action": "listen",
			"port":   port,
		}).Info("Fiber 服务启动")
		listenErr <- app.Listen(fmt.Sprintf(":%d", port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		svc.logger.WithField("action", "shutdown").Info("收到退出信号")
		err = app.ShutdownWithTimeout(10 * time.Second)
		if listenResult := <-listenErr; listenResult != nil && err == nil {
			err = listenResult
		}
	}

	cancelJob()
	<-jobDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
