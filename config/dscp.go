package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DSCP 差分服务代码点（0..63）
//
// JSON 中可写为名称（"ef"、"af41"、"cs1"）或数字。
type DSCP uint8

// 常用代码点
const (
	DSCPDefault DSCP = 0
	DSCPEF      DSCP = 46
)

// maxDSCP 6 位代码点上限
const maxDSCP = 63

var dscpNames = map[string]DSCP{
	"default": 0, "be": 0,
	"cs0": 0, "cs1": 8, "cs2": 16, "cs3": 24, "cs4": 32, "cs5": 40, "cs6": 48, "cs7": 56,
	"af11": 10, "af12": 12, "af13": 14,
	"af21": 18, "af22": 20, "af23": 22,
	"af31": 26, "af32": 28, "af33": 30,
	"af41": 34, "af42": 36, "af43": 38,
	"ef": 46, "va": 44,
}

// ParseDSCP 解析 DSCP 名称或数字（支持 0x 前缀）
func ParseDSCP(s string) (DSCP, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DSCPDefault, nil
	}
	if v, ok := dscpNames[s]; ok {
		return v, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil || n > maxDSCP {
		return 0, fmt.Errorf("invalid DSCP %q (want name like ef/af41/cs1 or 0..63)", s)
	}
	return DSCP(n), nil
}

// TOS 返回写入 IP 头 TOS 字段的值（DSCP 左移 2 位，ECN 位为 0）
func (d DSCP) TOS() int {
	return int(d) << 2
}

// IsSet 是否设置了非默认标记
func (d DSCP) IsSet() bool {
	return d != DSCPDefault
}

// String 返回名称（有名称时）或数字
func (d DSCP) String() string {
	best := ""
	for name, v := range dscpNames {
		if v != d || name == "be" || name == "cs0" {
			continue
		}
		if best == "" || name < best {
			best = name
		}
	}
	if best != "" {
		return best
	}
	return strconv.Itoa(int(d))
}

// UnmarshalJSON 支持名称字符串或数字
func (d *DSCP) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := ParseDSCP(s)
		if err != nil {
			return err
		}
		*d = v
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("dscp must be a name or a number")
	}
	if n < 0 || n > maxDSCP {
		return fmt.Errorf("dscp %d out of range 0..63", n)
	}
	*d = DSCP(n)
	return nil
}

// MarshalJSON 输出名称或数字字符串
func (d DSCP) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
