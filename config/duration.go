package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Duration 支持在 JSON 和环境变量中使用可读字符串的 time.Duration
//
// 支持的格式:
//   - 字符串: "30s", "500ms", "1m"
//   - 数字: 秒数（可带小数），如 1.5
//
// 使用示例:
//
//	type DialConfig struct {
//	    DedupeWindow Duration `json:"dedupe_window"`
//	}
//
//	// JSON: {"dedupe_window": "2s"} 或 {"dedupe_window": 2}
type Duration time.Duration

// ParseDuration 解析字符串形式的时长，纯数字按秒处理
func ParseDuration(s string) (Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return Duration(d), nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseDuration(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}

	return fmt.Errorf("duration must be a string (e.g., \"2s\") or number of seconds")
}

// MarshalJSON 输出为可读字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std 返回底层的 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String 返回字符串表示
func (d Duration) String() string {
	return time.Duration(d).String()
}
