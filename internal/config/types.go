package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// Seconds 表示只接受整数写法的秒数配置，例如 CacheDuration = 3600。
type Seconds int64

// DurationValue 将整数秒转换为 time.Duration。
func (s Seconds) DurationValue() time.Duration {
	return time.Duration(s) * time.Second
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// CacheBackend 选择统计数据的缓存后端。
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendDisk   CacheBackend = "disk"
)

// GlobalConfig 描述全局运行时行为，所有 Package/Widget 共享同一份参数。
type GlobalConfig struct {
	ListenPort         int          `mapstructure:"ListenPort"`
	LogLevel           string       `mapstructure:"LogLevel"`
	LogFilePath        string       `mapstructure:"LogFilePath"`
	LogMaxSize         int          `mapstructure:"LogMaxSize"`
	LogMaxBackups      int          `mapstructure:"LogMaxBackups"`
	LogCompress        bool         `mapstructure:"LogCompress"`
	CacheBackend       CacheBackend `mapstructure:"CacheBackend"`
	StoragePath        string       `mapstructure:"StoragePath"`
	CacheDuration      Seconds      `mapstructure:"CacheDuration"`
	PyPIBaseURL        string       `mapstructure:"PyPIBaseURL"`
	UpstreamTimeout    Duration     `mapstructure:"UpstreamTimeout"`
	RefreshOnStartup   bool         `mapstructure:"RefreshOnStartup"`
	RefreshConcurrency int          `mapstructure:"RefreshConcurrency"`
}

// PackageConfig 标识一个 PyPI 包，PackageName 在整个配置中唯一。
type PackageConfig struct {
	Label       string `mapstructure:"Label"`
	PackageName string `mapstructure:"PackageName"`
}

// String 返回人类可读的标签。
func (p PackageConfig) String() string {
	return p.Label
}

// WidgetConfig 描述一个下载量展示组件，Package 为空表示未选择包。
type WidgetConfig struct {
	Name      string `mapstructure:"Name"`
	Package   string `mapstructure:"Package"`
	Period    string `mapstructure:"Period"`
	BaseCount int64  `mapstructure:"BaseCount"`
	UpperText string `mapstructure:"UpperText"`
	LowerText string `mapstructure:"LowerText"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig    `mapstructure:",squash"`
	Packages []PackageConfig `mapstructure:"Package"`
	Widgets  []WidgetConfig  `mapstructure:"Widget"`
}

// FindPackage 按包名查找配置，找不到时返回 false。
func (c *Config) FindPackage(name string) (PackageConfig, bool) {
	if c == nil {
		return PackageConfig{}, false
	}
	for _, pkg := range c.Packages {
		if pkg.PackageName == name {
			return pkg, true
		}
	}
	return PackageConfig{}, false
}

// PackageNames 返回所有包名摘要，供启动日志使用。
func PackageNames(pkgs []PackageConfig) []string {
	if len(pkgs) == 0 {
		return nil
	}
	result := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		result[i] = pkg.PackageName
	}
	return result
}
