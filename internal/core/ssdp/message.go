package ssdp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	goupnpssdp "github.com/huin/goupnp/ssdp"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// 协议常量
const (
	// MulticastAddr SSDP IPv4 组播地址
	MulticastAddr = "239.255.255.250:1900"

	// MethodSearch 搜索请求
	MethodSearch = "M-SEARCH"

	// MethodNotify 通告
	MethodNotify = "NOTIFY"

	// ManDiscover M-SEARCH 的 MAN 头取值（含引号）
	ManDiscover = `"ssdp:discover"`

	// InstanceHeader 本实例标记头
	InstanceHeader = "X-Relay-Instance"

	// SearchAll 搜索全部
	SearchAll = goupnpssdp.SSDPAll

	// RootDevice 搜索根设备
	RootDevice = goupnpssdp.UPNPRootDevice
)

// NTS 取值
const (
	NTSAlive  = "ssdp:alive"
	NTSByeBye = "ssdp:byebye"
	NTSUpdate = "ssdp:update"
)

var (
	// ErrNotSSDP 不是 HTTPU 报文
	ErrNotSSDP = errors.New("ssdp: not an HTTPU message")

	trailingWhitespaceRx = regexp.MustCompile("[ \t]+\r\n")
	crlf                 = []byte("\r\n")
	maxAgeRx             = regexp.MustCompile(`max-age\s*=\s*([0-9]+)`)
	instanceHeaderPrefix = []byte(strings.ToLower(InstanceHeader) + ":")
)

// Message 解析后的 SSDP 报文
type Message struct {
	// Method 请求方法；响应报文为空
	Method string

	// StatusCode 响应状态码；请求报文为 0
	StatusCode int

	// Header 报文头
	Header http.Header
}

// IsResponse 是否为搜索响应
func (m *Message) IsResponse() bool {
	return m.Method == ""
}

// IsSearch 是否为 M-SEARCH 请求
func (m *Message) IsSearch() bool {
	return m.Method == MethodSearch
}

// IsNotify 是否为 NOTIFY 通告
func (m *Message) IsNotify() bool {
	return m.Method == MethodNotify
}

// ST 搜索目标
func (m *Message) ST() string { return m.Header.Get("ST") }

// NT 通告类型
func (m *Message) NT() string { return m.Header.Get("NT") }

// NTS 通告子类型
func (m *Message) NTS() string { return m.Header.Get("NTS") }

// USN 唯一服务名
func (m *Message) USN() string { return m.Header.Get("USN") }

// Location 设备描述地址
func (m *Message) Location() string { return m.Header.Get("LOCATION") }

// MX 最大等待秒数，缺失或非法时返回 0
func (m *Message) MX() int {
	mx, err := strconv.Atoi(strings.TrimSpace(m.Header.Get("MX")))
	if err != nil || mx < 0 {
		return 0
	}
	return mx
}

// MaxAge CACHE-CONTROL 中的 max-age，缺失时返回 0
func (m *Message) MaxAge() int {
	matches := maxAgeRx.FindStringSubmatch(m.Header.Get("CACHE-CONTROL"))
	if len(matches) != 2 {
		return 0
	}
	v, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return v
}

// Tag 报文携带的实例标记
func (m *Message) Tag() types.InstanceTag {
	tag, err := types.ParseInstanceTag(m.Header.Get(InstanceHeader))
	if err != nil {
		return types.EmptyInstanceTag
	}
	return tag
}

// Parse 解析 SSDP 报文（请求或响应）
func Parse(payload []byte) (*Message, error) {
	req, err := ParseRequest(payload)
	if err == nil {
		return &Message{Method: req.Method, Header: req.Header}, nil
	}
	if !bytes.HasPrefix(payload, []byte("HTTP/")) {
		return nil, err
	}

	buf := normalize(payload)
	resp, rerr := http.ReadResponse(bufio.NewReader(bytes.NewReader(buf)), nil)
	if rerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSSDP, rerr)
	}
	_ = resp.Body.Close()
	return &Message{StatusCode: resp.StatusCode, Header: resp.Header}, nil
}

// ParseRequest 解析为 *http.Request（供 goupnp 的 httpu.Handler 使用）
func ParseRequest(payload []byte) (*http.Request, error) {
	if bytes.HasPrefix(payload, []byte("HTTP/")) {
		return nil, ErrNotSSDP
	}
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(normalize(payload))))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSSDP, err)
	}
	return req, nil
}

// Method 只读取请求行中的方法，不做完整解析
//
// 响应报文或无法识别时返回空字符串。
func Method(payload []byte) string {
	line := payload
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	method, rest, ok := bytes.Cut(bytes.TrimSpace(line), []byte(" "))
	if !ok || len(method) == 0 || bytes.HasPrefix(method, []byte("HTTP/")) {
		return ""
	}
	if !bytes.Contains(rest, []byte("HTTP/")) {
		return ""
	}
	return string(method)
}

// InstanceTag 快速扫描报文头中的实例标记，不做完整解析
func InstanceTag(payload []byte) types.InstanceTag {
	for _, line := range bytes.Split(payload, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			break
		}
		if len(line) <= len(instanceHeaderPrefix) ||
			!bytes.EqualFold(line[:len(instanceHeaderPrefix)], instanceHeaderPrefix) {
			continue
		}
		tag, err := types.ParseInstanceTag(string(line[len(instanceHeaderPrefix):]))
		if err != nil {
			return types.EmptyInstanceTag
		}
		return tag
	}
	return types.EmptyInstanceTag
}

// normalize 去掉行尾空白；部分设备在头部行尾带空格
func normalize(payload []byte) []byte {
	return trailingWhitespaceRx.ReplaceAllLiteral(payload, crlf)
}
