package pypi

import "strings"

// Period 表示下载量统计窗口。
type Period string

const (
	PeriodAllTime   Period = "all_time"
	PeriodLastMonth Period = "last_month"
	PeriodLastWeek  Period = "last_week"
	PeriodLastDay   Period = "last_day"

	// DefaultPeriod 是组件未指定周期时的取值。
	DefaultPeriod = PeriodLastMonth
)

var periodLabels = []struct {
	period Period
	label  string
}{
	{PeriodAllTime, "All Time"},
	{PeriodLastMonth, "Last month"},
	{PeriodLastWeek, "Last week"},
	{PeriodLastDay, "Yesterday"},
}

// ParsePeriod 解析配置/查询参数中的周期，大小写不敏感。
func ParsePeriod(raw string) (Period, bool) {
	candidate := Period(strings.ToLower(strings.TrimSpace(raw)))
	for _, item := range periodLabels {
		if item.period == candidate {
			return candidate, true
		}
	}
	return "", false
}

// Label 返回周期的展示名称，例如 last_day → Yesterday。
func (p Period) Label() string {
	for _, item := range periodLabels {
		if item.period == p {
			return item.label
		}
	}
	return string(p)
}

// Periods 按展示顺序返回所有周期。
func Periods() []Period {
	result := make([]Period, len(periodLabels))
	for i, item := range periodLabels {
		result[i] = item.period
	}
	return result
}

// PeriodList 返回 all_time|last_month|... 形式的摘要，供校验提示使用。
func PeriodList() string {
	parts := make([]string, len(periodLabels))
	for i, item := range periodLabels {
		parts[i] = string(item.period)
	}
	return strings.Join(parts, "|")
}
