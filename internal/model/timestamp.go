package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout 持久化时使用的规范文本格式（UTC，毫秒精度）
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp 以 ISO-8601 文本持久化的时间点。
// 解码时同时接受 RFC3339 文本和旧版的毫秒时间戳数字。
type Timestamp struct {
	time.Time
}

// NewTimestamp 截断到毫秒，保证写入再读出后与原值相等
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Millisecond)}
}

func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// FormatTimestamp 返回规范文本形式
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp 解析规范文本形式，也接受任意 RFC3339 变体
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(FormatTimestamp(t.Time))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseTimestamp(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	// 旧数据：毫秒时间戳
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", string(data), err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}
