package config

import (
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/any-hub/pypi-stats/internal/pypi"
)

const (
	defaultCacheDuration = 3600
	defaultPyPIBaseURL   = "https://pypi.python.org/pypi"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(secondsDecodeHook(), durationDecodeHook())
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Packages {
		applyPackageDefaults(&cfg.Packages[i])
	}
	for i := range cfg.Widgets {
		applyWidgetDefaults(&cfg.Widgets[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheBackend", string(CacheBackendMemory))
	v.SetDefault("StoragePath", "./storage")
	v.SetDefault("CacheDuration", defaultCacheDuration)
	v.SetDefault("PyPIBaseURL", defaultPyPIBaseURL)
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("RefreshOnStartup", false)
	v.SetDefault("RefreshConcurrency", 4)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.CacheBackend == "" {
		g.CacheBackend = CacheBackendMemory
	}
	g.CacheBackend = CacheBackend(strings.ToLower(strings.TrimSpace(string(g.CacheBackend))))
	if strings.TrimSpace(g.PyPIBaseURL) == "" {
		g.PyPIBaseURL = defaultPyPIBaseURL
	}
	g.PyPIBaseURL = strings.TrimRight(strings.TrimSpace(g.PyPIBaseURL), "/")
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	if g.RefreshConcurrency <= 0 {
		g.RefreshConcurrency = 1
	}
}

func applyPackageDefaults(p *PackageConfig) {
	p.PackageName = strings.TrimSpace(p.PackageName)
	p.Label = strings.TrimSpace(p.Label)
}

func applyWidgetDefaults(w *WidgetConfig) {
	w.Package = strings.TrimSpace(w.Package)
	if strings.TrimSpace(w.Period) == "" {
		w.Period = string(pypi.DefaultPeriod)
	}
	w.Period = strings.ToLower(strings.TrimSpace(w.Period))
}

// secondsDecodeHook 仅接受整数秒，拒绝 1.5、"abc" 之类的写法。
func secondsDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Seconds(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			raw := strings.TrimSpace(v)
			if raw == "" {
				return Seconds(0), nil
			}
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: 不是整数秒", raw)
			}
			return Seconds(parsed), nil
		case int:
			return Seconds(v), nil
		case int64:
			return Seconds(v), nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%v: 不是整数秒", v)
			}
			return Seconds(int64(v)), nil
		case Seconds:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Seconds 类型: %T", v)
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
