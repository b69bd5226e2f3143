package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/any-hub/pypi-stats/internal/config"
	"github.com/any-hub/pypi-stats/internal/pypi"
)

// PayloadSource 提供包的统计数据，StatsCache 满足该接口。
type PayloadSource interface {
	Get(ctx context.Context, pkg config.PackageConfig, forceRefresh bool) *pypi.Payload
}

// Widget 是一个已绑定包的下载量展示组件。Package 为 nil 表示未选择包。
type Widget struct {
	Name      string
	Package   *config.PackageConfig
	Period    pypi.Period
	BaseCount int64
	UpperText string
	LowerText string
}

// NewWidget 由配置构建组件，未知周期回退到 DefaultPeriod。
func NewWidget(cfg config.WidgetConfig, pkg *config.PackageConfig) Widget {
	period, ok := pypi.ParsePeriod(cfg.Period)
	if !ok {
		period = pypi.DefaultPeriod
	}
	return Widget{
		Name:      cfg.Name,
		Package:   pkg,
		Period:    period,
		BaseCount: cfg.BaseCount,
		UpperText: cfg.UpperText,
		LowerText: cfg.LowerText,
	}
}

// HasPackage 表示组件是否绑定了可用的包。
func (w Widget) HasPackage() bool {
	return w.Package != nil && w.Package.PackageName != ""
}

// Downloads 返回统计值加上 BaseCount；未绑定包时直接返回 0。
func (w Widget) Downloads(ctx context.Context, source PayloadSource) int64 {
	if !w.HasPackage() {
		return 0
	}
	return Count(source.Get(ctx, *w.Package, false), w.Period, w.BaseCount)
}

// Digits 以单个字符的形式返回 Downloads，例如 15 → ["1", "5"]。
func (w Widget) Digits(ctx context.Context, source PayloadSource) []string {
	return Digits(w.Downloads(ctx, source))
}

// String 返回组件描述，用于列表页与日志。
func (w Widget) String() string {
	name := "[unknown package]"
	if w.Package != nil {
		name = w.Package.PackageName
	}
	return fmt.Sprintf("Download count for period: %s for package: %s",
		strings.ToLower(w.Period.Label()), name)
}

// Statistic 从 payload 中取出周期统计；all_time 为所有发行文件下载量之和。
// 第二个返回值为 false 表示该周期没有数据。
func Statistic(payload *pypi.Payload, period pypi.Period) (int64, bool) {
	if payload == nil {
		if period == pypi.PeriodAllTime {
			return 0, true
		}
		return 0, false
	}
	if period == pypi.PeriodAllTime {
		return payload.ReleaseDownloads(), true
	}
	return payload.PeriodDownloads(period)
}

// Count 返回 Statistic + baseCount。没有数据的周期与 0 下载量按同样方式计入。
func Count(payload *pypi.Payload, period pypi.Period, baseCount int64) int64 {
	value, _ := Statistic(payload, period)
	return value + baseCount
}

// Digits 返回十进制表示的逐字符切片，负数保留前导 "-"。
func Digits(n int64) []string {
	return lo.ChunkString(strconv.FormatInt(n, 10), 1)
}
