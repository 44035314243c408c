package proxy

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/huin/goupnp/httpu"
	goupnpssdp "github.com/huin/goupnp/ssdp"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/internal/util/logger"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

var log = logger.Logger("proxy")

var (
	// ErrNotSearch 报文不是 M-SEARCH
	ErrNotSearch = errors.New("proxy: not an M-SEARCH request")

	// ErrMissingST M-SEARCH 缺少 ST
	ErrMissingST = errors.New("proxy: M-SEARCH without ST")
)

var _ httpu.Handler = (*Responder)(nil)

// record 注册表条目及按注入时钟计算的过期时间
type record struct {
	entry   goupnpssdp.Entry
	expires time.Time
}

// Responder proxy 响应构造器
type Responder struct {
	cfg   config.ProxyConfig
	tag   types.InstanceTag
	clock clock.Clock

	mu       sync.Mutex
	registry *goupnpssdp.Registry
	updates  chan goupnpssdp.Update
	records  map[string]*record
}

// New 创建响应构造器
func New(cfg config.ProxyConfig, tag types.InstanceTag, clk clock.Clock) *Responder {
	if clk == nil {
		clk = clock.New()
	}
	r := &Responder{
		cfg:      cfg,
		tag:      tag,
		clock:    clk,
		registry: goupnpssdp.NewRegistry(),
		// 注册表在 ServeMessage 内同步推送，每条消息至多一个更新
		updates: make(chan goupnpssdp.Update, 1),
		records: make(map[string]*record),
	}
	r.registry.AddListener(r.updates)
	return r
}

// Observe 记录一个 NOTIFY 报文，返回是否被注册表接受
//
// 非 NOTIFY 报文或关闭了注册表时直接忽略；NTS、USN 或 max-age 非法的通告被丢弃。
func (r *Responder) Observe(env types.Envelope) bool {
	if !r.cfg.UseRegistry || ssdp.Method(env.Payload()) != ssdp.MethodNotify {
		return false
	}
	req, err := ssdp.ParseRequest(env.Payload())
	if err != nil {
		return false
	}
	req.RemoteAddr = env.Src().String()
	return r.serve(req)
}

// ServeMessage 实现 httpu.Handler
func (r *Responder) ServeMessage(req *http.Request) {
	r.serve(req)
}

func (r *Responder) serve(req *http.Request) bool {
	if req.Method != ssdp.MethodNotify {
		return false
	}
	if err := checkNotify(req); err != nil {
		log.Debug("忽略非法通告", "src", req.RemoteAddr, "err", err)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry.ServeMessage(req)

	select {
	case u := <-r.updates:
		r.applyLocked(u)
		return true
	default:
		return false
	}
}

// applyLocked 将注册表更新同步到带过期时间的索引
func (r *Responder) applyLocked(u goupnpssdp.Update) {
	switch u.EventType {
	case goupnpssdp.EventAlive, goupnpssdp.EventUpdate:
		if u.Entry == nil {
			return
		}
		ttl := u.Entry.CacheExpiry.Sub(u.Entry.LastUpdate)
		r.records[u.USN] = &record{entry: *u.Entry, expires: r.clock.Now().Add(ttl)}
		log.Debug("记录设备通告", "usn", u.USN, "nt", u.Entry.NT, "ttl", ttl)
	case goupnpssdp.EventByeBye:
		delete(r.records, u.USN)
		log.Debug("设备下线", "usn", u.USN)
	}
}

// pruneLocked 删除过期条目，同时让注册表忘记它们
func (r *Responder) pruneLocked(now time.Time) {
	for usn, rec := range r.records {
		if now.Before(rec.expires) {
			continue
		}
		delete(r.records, usn)
		bye := &http.Request{Method: ssdp.MethodNotify, Header: http.Header{}}
		bye.Header.Set("NTS", ssdp.NTSByeBye)
		bye.Header.Set("USN", usn)
		r.registry.ServeMessage(bye)
		select {
		case <-r.updates:
		default:
		}
	}
}

// Len 返回有效条目数
func (r *Responder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(r.clock.Now())
	return len(r.records)
}

// Respond 为 M-SEARCH 构造响应报文
//
// 返回的切片可能为空（没有匹配且未配置回退身份），调用方按 no-response 处理。
func (r *Responder) Respond(env types.Envelope) ([][]byte, error) {
	msg, err := ssdp.Parse(env.Payload())
	if err != nil || !msg.IsSearch() {
		return nil, ErrNotSearch
	}
	st := strings.TrimSpace(msg.ST())
	if st == "" {
		return nil, ErrMissingST
	}

	now := r.clock.Now()
	matches := r.match(st, now)

	out := make([][]byte, 0, len(matches))
	for _, rec := range matches {
		out = append(out, r.buildFromRecord(st, rec, now))
		if len(out) >= r.cfg.MaxResponses {
			break
		}
	}
	if len(out) == 0 {
		if payload, ok := r.buildSelf(st, now); ok {
			out = append(out, payload)
		}
	}
	return out, nil
}

// match 查找匹配 ST 的有效条目，按 USN 排序
func (r *Responder) match(st string, now time.Time) []record {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)

	var out []record
	switch {
	case st == ssdp.SearchAll:
		for _, rec := range r.records {
			out = append(out, *rec)
		}
	case strings.HasPrefix(st, "uuid:"):
		for usn, rec := range r.records {
			if usn == st || strings.HasPrefix(usn, st+"::") {
				out = append(out, *rec)
			}
		}
	default:
		for _, e := range r.registry.GetService(st) {
			if rec, ok := r.records[e.USN]; ok {
				out = append(out, *rec)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].entry.USN < out[j].entry.USN })
	return out
}

func (r *Responder) buildFromRecord(st string, rec record, now time.Time) []byte {
	respST := st
	if st == ssdp.SearchAll || strings.HasPrefix(st, "uuid:") {
		respST = rec.entry.NT
	}
	server := rec.entry.Server
	if server == "" {
		server = r.cfg.Server
	}

	extra := http.Header{}
	if rec.entry.BootID >= 0 {
		extra.Set("BOOTID.UPNP.ORG", strconv.Itoa(int(rec.entry.BootID)))
	}
	if rec.entry.ConfigID >= 0 {
		extra.Set("CONFIGID.UPNP.ORG", strconv.Itoa(int(rec.entry.ConfigID)))
	}

	return ssdp.BuildResponse(ssdp.ResponseParams{
		ST:       respST,
		USN:      rec.entry.USN,
		Location: rec.entry.Location.String(),
		Server:   server,
		MaxAge:   remainingSeconds(rec.expires, now),
		Date:     now,
		Extra:    extra,
		Tag:      r.tag,
	})
}

// buildSelf 以本实例身份回复根设备、ssdp:all 或本实例 uuid 的搜索
func (r *Responder) buildSelf(st string, now time.Time) ([]byte, bool) {
	if r.cfg.Location == "" {
		return nil, false
	}
	udn := r.cfg.USN
	if udn == "" {
		udn = "uuid:" + r.tag.String()
	}

	var respST, usn string
	switch st {
	case ssdp.SearchAll, ssdp.RootDevice:
		respST = ssdp.RootDevice
		usn = fmt.Sprintf("%s::%s", udn, ssdp.RootDevice)
	case udn:
		respST = udn
		usn = udn
	default:
		return nil, false
	}

	return ssdp.BuildResponse(ssdp.ResponseParams{
		ST:       respST,
		USN:      usn,
		Location: r.cfg.Location,
		Server:   r.cfg.Server,
		MaxAge:   r.cfg.MaxAge,
		Date:     now,
		Tag:      r.tag,
	}), true
}

// remainingSeconds 剩余有效期（向上取整，至少 1 秒）
func remainingSeconds(expires, now time.Time) int {
	secs := int(math.Ceil(expires.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
