package proxy

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
)

// ErrBadNotify NOTIFY 报文缺少字段或取值非法
var ErrBadNotify = errors.New("proxy: malformed NOTIFY")

// notifyMaxAgeRx 与注册表解析 CACHE-CONTROL 的方式一致
var notifyMaxAgeRx = regexp.MustCompile("max-age= *([0-9]+)")

// checkNotify 按注册表的规则预先校验 NOTIFY
//
// 注册表拒绝报文时只写标准库日志，非法报文在这里截下。
func checkNotify(req *http.Request) error {
	nts := req.Header.Get("NTS")
	switch nts {
	case ssdp.NTSAlive, ssdp.NTSUpdate, ssdp.NTSByeBye:
	default:
		return fmt.Errorf("%w: unknown NTS %q", ErrBadNotify, nts)
	}
	if req.Header.Get("USN") == "" {
		return fmt.Errorf("%w: missing USN", ErrBadNotify)
	}
	if nts == ssdp.NTSByeBye {
		return nil
	}

	cc := req.Header.Get("CACHE-CONTROL")
	m := notifyMaxAgeRx.FindStringSubmatch(cc)
	if len(m) != 2 {
		return fmt.Errorf("%w: no max-age in %q", ErrBadNotify, cc)
	}
	age, err := strconv.ParseInt(m[1], 10, 16)
	if err != nil || age < 1 || age > math.MaxInt16 {
		return fmt.Errorf("%w: bad max-age %q", ErrBadNotify, m[1])
	}

	if _, err := url.Parse(req.Header.Get("LOCATION")); err != nil {
		return fmt.Errorf("%w: bad LOCATION: %v", ErrBadNotify, err)
	}

	ints := []string{"BOOTID.UPNP.ORG", "CONFIGID.UPNP.ORG", "SEARCHPORT.UPNP.ORG"}
	if nts == ssdp.NTSUpdate {
		ints = append(ints, "NEXTBOOTID.UPNP.ORG")
	}
	for _, h := range ints {
		v := req.Header.Get(h)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: bad %s %q", ErrBadNotify, h, v)
		}
		if h == "SEARCHPORT.UPNP.ORG" && (n < 1 || n > 65535) {
			return fmt.Errorf("%w: search port %d out of range", ErrBadNotify, n)
		}
	}
	return nil
}
