package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/any-hub/pypi-stats/internal/pypi"
)

// positiveIntegerReason 与表单校验保持一致的提示语。
const positiveIntegerReason = "请提供正整数"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.CacheDuration <= 0 {
		return newFieldError("Global.CacheDuration", positiveIntegerReason)
	}
	switch g.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendDisk:
		if g.StoragePath == "" {
			return newFieldError("Global.StoragePath", "disk 后端需要缓存目录")
		}
	default:
		return newFieldError("Global.CacheBackend", "仅支持 memory/disk")
	}
	if err := validateUpstream(g.PyPIBaseURL); err != nil {
		return fmt.Errorf("Global.PyPIBaseURL: %w", err)
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.RefreshConcurrency <= 0 {
		return newFieldError("Global.RefreshConcurrency", "必须大于 0")
	}

	seenPackages := map[string]struct{}{}
	for i := range c.Packages {
		pkg := &c.Packages[i]
		if pkg.PackageName == "" {
			return newFieldError("Package[].PackageName", "不能为空")
		}
		if _, exists := seenPackages[pkg.PackageName]; exists {
			return newFieldError(packageField(pkg.PackageName, "PackageName"), "重复")
		}
		seenPackages[pkg.PackageName] = struct{}{}

		if pkg.Label == "" {
			return newFieldError(packageField(pkg.PackageName, "Label"), "不能为空")
		}
		if strings.ContainsAny(pkg.PackageName, "/ ") {
			return newFieldError(packageField(pkg.PackageName, "PackageName"), "不允许包含空格或斜杠")
		}
	}

	seenWidgets := map[string]struct{}{}
	for i := range c.Widgets {
		widget := &c.Widgets[i]
		if widget.Name == "" {
			return newFieldError("Widget[].Name", "不能为空")
		}
		if _, exists := seenWidgets[widget.Name]; exists {
			return newFieldError(widgetField(widget.Name, "Name"), "重复")
		}
		seenWidgets[widget.Name] = struct{}{}

		if _, ok := pypi.ParsePeriod(widget.Period); !ok {
			return newFieldError(widgetField(widget.Name, "Period"), "仅支持 "+pypi.PeriodList())
		}
		if widget.Package != "" {
			if _, ok := seenPackages[widget.Package]; !ok {
				return newFieldError(widgetField(widget.Name, "Package"), fmt.Sprintf("未声明的包: %s", widget.Package))
			}
		}
	}

	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}

// CacheTTL 返回自然刷新使用的基础缓存时长。
func (c *Config) CacheTTL() time.Duration {
	return c.Global.CacheDuration.DurationValue()
}

// RefreshInterval 返回定时刷新任务的间隔，与缓存时长一致。
func (c *Config) RefreshInterval() time.Duration {
	return c.Global.CacheDuration.DurationValue()
}
