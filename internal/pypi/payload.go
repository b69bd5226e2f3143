package pypi

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidPayload 表示上游正文不是合法的 JSON 对象。
var ErrInvalidPayload = errors.New("pypi payload is not a JSON object")

// Payload 只保留统计所需的字段，缺失或类型不符的值一律视为缺省。
type Payload struct {
	Info     Info
	Releases map[string][]ReleaseFile
}

// Info 对应 JSON 中的 info 段。
type Info struct {
	Downloads Downloads
}

// Downloads 对应 info.downloads，nil 表示该周期没有数据。
type Downloads struct {
	AllTime   *int64
	LastMonth *int64
	LastWeek  *int64
	LastDay   *int64
}

// ReleaseFile 是某个版本下的单个发行文件（sdist/wheel 等）。
type ReleaseFile struct {
	Downloads *int64
}

// ParsePayload 将上游正文解析为 Payload。空正文与 null 返回 nil, nil。
func ParsePayload(raw []byte) (*Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, ErrInvalidPayload
	}
	root := gjson.ParseBytes(trimmed)
	if !root.IsObject() {
		return nil, ErrInvalidPayload
	}

	downloads := root.Get("info.downloads")
	payload := &Payload{
		Info: Info{
			Downloads: Downloads{
				AllTime:   counter(downloads.Get(string(PeriodAllTime))),
				LastMonth: counter(downloads.Get(string(PeriodLastMonth))),
				LastWeek:  counter(downloads.Get(string(PeriodLastWeek))),
				LastDay:   counter(downloads.Get(string(PeriodLastDay))),
			},
		},
		Releases: map[string][]ReleaseFile{},
	}

	releases := root.Get("releases")
	if releases.IsObject() {
		releases.ForEach(func(version, files gjson.Result) bool {
			if !files.IsArray() {
				payload.Releases[version.String()] = nil
				return true
			}
			entries := make([]ReleaseFile, 0, len(files.Array()))
			files.ForEach(func(_, file gjson.Result) bool {
				var entry ReleaseFile
				if file.IsObject() {
					entry.Downloads = counter(file.Get("downloads"))
				}
				entries = append(entries, entry)
				return true
			})
			payload.Releases[version.String()] = entries
			return true
		})
	}

	return payload, nil
}

func counter(value gjson.Result) *int64 {
	if value.Type != gjson.Number {
		return nil
	}
	n := value.Int()
	return &n
}

// PeriodDownloads 读取 info.downloads 中对应周期的计数，false 表示没有数据。
// PeriodAllTime 同样读取 info.downloads.all_time，累计下载请使用 ReleaseDownloads。
func (p *Payload) PeriodDownloads(period Period) (int64, bool) {
	if p == nil {
		return 0, false
	}
	var value *int64
	switch period {
	case PeriodAllTime:
		value = p.Info.Downloads.AllTime
	case PeriodLastMonth:
		value = p.Info.Downloads.LastMonth
	case PeriodLastWeek:
		value = p.Info.Downloads.LastWeek
	case PeriodLastDay:
		value = p.Info.Downloads.LastDay
	}
	if value == nil {
		return 0, false
	}
	return *value, true
}

// ReleaseDownloads 累加所有版本、所有发行文件的 downloads，缺失的计为 0。
func (p *Payload) ReleaseDownloads() int64 {
	if p == nil {
		return 0
	}
	var total int64
	for _, files := range p.Releases {
		for _, file := range files {
			if file.Downloads != nil {
				total += *file.Downloads
			}
		}
	}
	return total
}
