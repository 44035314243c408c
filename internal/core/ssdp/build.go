package ssdp

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// SearchParams 构造 M-SEARCH 的参数
type SearchParams struct {
	// Host HOST 头，组播搜索为 239.255.255.250:1900，单播为目标地址
	Host string
	// ST 搜索目标
	ST string
	// MX 最大等待秒数
	MX int
	// UserAgent USER-AGENT 头，可为空
	UserAgent string
	// Tag 本实例标记
	Tag types.InstanceTag
}

// BuildSearch 构造 M-SEARCH 请求
func BuildSearch(p SearchParams) []byte {
	var b bytes.Buffer
	b.WriteString("M-SEARCH * HTTP/1.1\r\n")
	writeHeader(&b, "HOST", p.Host)
	writeHeader(&b, "MAN", ManDiscover)
	writeHeader(&b, "MX", fmt.Sprint(p.MX))
	writeHeader(&b, "ST", p.ST)
	if p.UserAgent != "" {
		writeHeader(&b, "USER-AGENT", p.UserAgent)
	}
	if !p.Tag.IsEmpty() {
		writeHeader(&b, InstanceHeader, p.Tag.String())
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// ResponseParams 构造 200 OK 搜索响应的参数
type ResponseParams struct {
	// ST 响应的搜索目标
	ST string
	// USN 唯一服务名
	USN string
	// Location 设备描述地址
	Location string
	// Server SERVER 头
	Server string
	// MaxAge CACHE-CONTROL max-age（秒）
	MaxAge int
	// Date DATE 头，零值时省略
	Date time.Time
	// Extra 额外报文头
	Extra http.Header
	// Tag 本实例标记
	Tag types.InstanceTag
}

// BuildResponse 构造 200 OK 搜索响应
func BuildResponse(p ResponseParams) []byte {
	var b bytes.Buffer
	b.WriteString("HTTP/1.1 200 OK\r\n")
	writeHeader(&b, "CACHE-CONTROL", fmt.Sprintf("max-age=%d", p.MaxAge))
	if !p.Date.IsZero() {
		writeHeader(&b, "DATE", p.Date.UTC().Format(http.TimeFormat))
	}
	writeHeader(&b, "EXT", "")
	writeHeader(&b, "LOCATION", p.Location)
	writeHeader(&b, "SERVER", p.Server)
	writeHeader(&b, "ST", p.ST)
	writeHeader(&b, "USN", p.USN)

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range p.Extra[k] {
			writeHeader(&b, k, v)
		}
	}
	if !p.Tag.IsEmpty() {
		writeHeader(&b, InstanceHeader, p.Tag.String())
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

func writeHeader(b *bytes.Buffer, key, value string) {
	b.WriteString(key)
	b.WriteByte(':')
	if value != "" {
		b.WriteByte(' ')
		b.WriteString(value)
	}
	b.WriteString("\r\n")
}
