package types

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
//                              InstanceTag - 实例标记
// ============================================================================

// InstanceTag 进程实例标记
//
// 进程启动时生成一次，之后不可变，显式传入过滤器与中继核心。
// 本进程发起的报文携带该标记，用于识别在其他接口上重新出现的自身输出。
type InstanceTag string

// EmptyInstanceTag 空标记
const EmptyInstanceTag InstanceTag = ""

// maxInstanceTagLen 标记最大长度（需能放入单行 HTTP 头）
const maxInstanceTagLen = 64

// ErrInvalidInstanceTag 无效的实例标记
var ErrInvalidInstanceTag = errors.New("invalid instance tag")

// NewInstanceTag 基于随机 UUID 生成新的实例标记
func NewInstanceTag() InstanceTag {
	return InstanceTag(uuid.NewString())
}

// ParseInstanceTag 解析实例标记
//
// 标记只允许可打印 ASCII 且不含空白，长度不超过 64。
func ParseInstanceTag(s string) (InstanceTag, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxInstanceTagLen {
		return EmptyInstanceTag, ErrInvalidInstanceTag
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] > '~' {
			return EmptyInstanceTag, ErrInvalidInstanceTag
		}
	}
	return InstanceTag(s), nil
}

// String 返回标记字符串
func (t InstanceTag) String() string {
	return string(t)
}

// ShortString 返回前 8 个字符，用于日志
func (t InstanceTag) ShortString() string {
	if len(t) > 8 {
		return string(t[:8])
	}
	if t.IsEmpty() {
		return "-"
	}
	return string(t)
}

// IsEmpty 检查是否为空
func (t InstanceTag) IsEmpty() bool {
	return t == EmptyInstanceTag
}

// Equal 比较两个标记，空标记与任何标记都不相等
func (t InstanceTag) Equal(other InstanceTag) bool {
	return !t.IsEmpty() && t == other
}
