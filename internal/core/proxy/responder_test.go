package proxy

import (
	"bytes"
	"fmt"
	stdlog "log"
	"net/netip"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

func notify(nts, nt, usn string, maxAge int) types.Envelope {
	payload := fmt.Sprintf("NOTIFY * HTTP/1.1\r\n"+
		"HOST: 239.255.255.250:1900\r\n"+
		"CACHE-CONTROL: max-age=%d\r\n"+
		"LOCATION: http://192.168.1.20:49152/desc.xml\r\n"+
		"NT: %s\r\n"+
		"NTS: %s\r\n"+
		"SERVER: Linux/5.10 UPnP/1.0 Test/1.0\r\n"+
		"USN: %s\r\n"+
		"\r\n", maxAge, nt, nts, usn)
	return types.NewEnvelope(types.EnvelopeParams{
		Src:       netip.MustParseAddrPort("192.168.1.20:1900"),
		Dst:       netip.MustParseAddrPort("239.255.255.250:1900"),
		Interface: "eth0",
		Payload:   []byte(payload),
		TTL:       4,
	})
}

func search(st string) types.Envelope {
	return types.NewEnvelope(types.EnvelopeParams{
		Src:       netip.MustParseAddrPort("10.8.0.2:50000"),
		Dst:       netip.MustParseAddrPort("239.255.255.250:1900"),
		Interface: "wg0",
		Payload:   ssdp.BuildSearch(ssdp.SearchParams{Host: ssdp.MulticastAddr, ST: st, MX: 2}),
		TTL:       2,
	})
}

func newTestResponder(mutate func(*config.ProxyConfig)) (*Responder, *clock.Mock) {
	cfg := config.DefaultProxyConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(cfg, "P1", mock), mock
}

func parseAll(t *testing.T, payloads [][]byte) []*ssdp.Message {
	t.Helper()
	out := make([]*ssdp.Message, 0, len(payloads))
	for _, p := range payloads {
		m, err := ssdp.Parse(p)
		require.NoError(t, err)
		require.True(t, m.IsResponse())
		out = append(out, m)
	}
	return out
}

// ============================================================================
//                              注册表
// ============================================================================

func TestResponder_ObserveAndRespond(t *testing.T) {
	r, _ := newTestResponder(nil)

	require.True(t, r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:dev1::upnp:rootdevice", 1800)))
	require.True(t, r.Observe(notify(ssdp.NTSAlive, "urn:schemas-upnp-org:device:MediaRenderer:1", "uuid:dev1::urn:schemas-upnp-org:device:MediaRenderer:1", 1800)))
	assert.Equal(t, 2, r.Len())

	payloads, err := r.Respond(search(ssdp.RootDevice))
	require.NoError(t, err)
	msgs := parseAll(t, payloads)
	require.Len(t, msgs, 1)
	assert.Equal(t, ssdp.RootDevice, msgs[0].ST())
	assert.Equal(t, "uuid:dev1::upnp:rootdevice", msgs[0].USN())
	assert.Equal(t, "http://192.168.1.20:49152/desc.xml", msgs[0].Location())
	assert.Equal(t, types.InstanceTag("P1"), msgs[0].Tag())
	assert.Equal(t, 1800, msgs[0].MaxAge())
}

func TestResponder_SearchAll(t *testing.T) {
	r, _ := newTestResponder(nil)
	r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:b::upnp:rootdevice", 60))
	r.Observe(notify(ssdp.NTSAlive, "urn:x:service:Y:1", "uuid:a::urn:x:service:Y:1", 60))

	payloads, err := r.Respond(search(ssdp.SearchAll))
	require.NoError(t, err)
	msgs := parseAll(t, payloads)
	require.Len(t, msgs, 2)

	// 按 USN 排序，ST 取各自的 NT
	assert.Equal(t, "uuid:a::urn:x:service:Y:1", msgs[0].USN())
	assert.Equal(t, "urn:x:service:Y:1", msgs[0].ST())
	assert.Equal(t, ssdp.RootDevice, msgs[1].ST())
}

func TestResponder_SearchByUUID(t *testing.T) {
	r, _ := newTestResponder(nil)
	r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:a::upnp:rootdevice", 60))
	r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:b::upnp:rootdevice", 60))

	payloads, err := r.Respond(search("uuid:b"))
	require.NoError(t, err)
	msgs := parseAll(t, payloads)
	require.Len(t, msgs, 1)
	assert.Equal(t, "uuid:b::upnp:rootdevice", msgs[0].USN())
}

func TestResponder_ByeByeRemoves(t *testing.T) {
	r, _ := newTestResponder(nil)
	r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:a::upnp:rootdevice", 60))
	require.Equal(t, 1, r.Len())

	require.True(t, r.Observe(notify(ssdp.NTSByeBye, ssdp.RootDevice, "uuid:a::upnp:rootdevice", 60)))
	assert.Equal(t, 0, r.Len())
}

func TestResponder_Expiry(t *testing.T) {
	r, mock := newTestResponder(nil)
	r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:a::upnp:rootdevice", 60))

	mock.Add(30 * time.Second)
	payloads, err := r.Respond(search(ssdp.RootDevice))
	require.NoError(t, err)
	msgs := parseAll(t, payloads)
	require.Len(t, msgs, 1)
	assert.Equal(t, 30, msgs[0].MaxAge())

	mock.Add(31 * time.Second)
	assert.Equal(t, 0, r.Len())
	payloads, err = r.Respond(search(ssdp.RootDevice))
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestResponder_MaxResponses(t *testing.T) {
	r, _ := newTestResponder(func(c *config.ProxyConfig) { c.MaxResponses = 2 })
	for i := 0; i < 5; i++ {
		r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, fmt.Sprintf("uuid:%d::upnp:rootdevice", i), 60))
	}
	payloads, err := r.Respond(search(ssdp.SearchAll))
	require.NoError(t, err)
	assert.Len(t, payloads, 2)
}

func TestResponder_ObserveUpdate(t *testing.T) {
	r, _ := newTestResponder(nil)
	require.True(t, r.Observe(notify(ssdp.NTSUpdate, ssdp.RootDevice, "uuid:a::upnp:rootdevice", 60)))
	assert.Equal(t, 1, r.Len())
}

// rawNotify 以给定的报文头构造 NOTIFY
func rawNotify(headers ...string) types.Envelope {
	payload := "NOTIFY * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\n" +
		strings.Join(headers, "\r\n") + "\r\n\r\n"
	return types.NewEnvelope(types.EnvelopeParams{
		Src:       netip.MustParseAddrPort("192.168.1.20:1900"),
		Dst:       netip.MustParseAddrPort("239.255.255.250:1900"),
		Interface: "eth0",
		Payload:   []byte(payload),
	})
}

func TestResponder_ObserveDropsMalformedNotify(t *testing.T) {
	var buf bytes.Buffer
	stdlog.SetOutput(&buf)
	defer stdlog.SetOutput(os.Stderr)

	r, _ := newTestResponder(nil)
	const usn = "uuid:a::upnp:rootdevice"
	cases := map[string]types.Envelope{
		"unknown nts":       notify("ssdp:propchange", ssdp.RootDevice, usn, 60),
		"zero max-age":      notify(ssdp.NTSAlive, ssdp.RootDevice, usn, 0),
		"oversized max-age": notify(ssdp.NTSAlive, ssdp.RootDevice, usn, 90000),
		"missing usn":       notify(ssdp.NTSAlive, ssdp.RootDevice, "", 60),
		"no max-age": rawNotify(
			"CACHE-CONTROL: no-cache",
			"LOCATION: http://192.168.1.20:49152/desc.xml",
			"NT: upnp:rootdevice", "NTS: ssdp:alive", "USN: "+usn),
		"bad search port": rawNotify(
			"CACHE-CONTROL: max-age=60",
			"LOCATION: http://192.168.1.20:49152/desc.xml",
			"NT: upnp:rootdevice", "NTS: ssdp:alive", "USN: "+usn,
			"SEARCHPORT.UPNP.ORG: 70000"),
		"bad next boot id": rawNotify(
			"CACHE-CONTROL: max-age=60",
			"LOCATION: http://192.168.1.20:49152/desc.xml",
			"NT: upnp:rootdevice", "NTS: ssdp:update", "USN: "+usn,
			"NEXTBOOTID.UPNP.ORG: soon"),
	}
	for name, env := range cases {
		assert.False(t, r.Observe(env), name)
	}
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, buf.String())
}

func TestResponder_RegistryDisabled(t *testing.T) {
	r, _ := newTestResponder(func(c *config.ProxyConfig) { c.UseRegistry = false })
	assert.False(t, r.Observe(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:a::upnp:rootdevice", 60)))
	assert.Equal(t, 0, r.Len())
}

func TestResponder_ObserveIgnoresSearch(t *testing.T) {
	r, _ := newTestResponder(nil)
	assert.False(t, r.Observe(search(ssdp.SearchAll)))
}

// ============================================================================
//                              回退身份
// ============================================================================

func TestResponder_SelfFallback(t *testing.T) {
	r, _ := newTestResponder(func(c *config.ProxyConfig) {
		c.Location = "http://192.168.1.1:8080/relay.xml"
	})

	payloads, err := r.Respond(search(ssdp.SearchAll))
	require.NoError(t, err)
	msgs := parseAll(t, payloads)
	require.Len(t, msgs, 1)
	assert.Equal(t, ssdp.RootDevice, msgs[0].ST())
	assert.Equal(t, "uuid:P1::upnp:rootdevice", msgs[0].USN())
	assert.Equal(t, "http://192.168.1.1:8080/relay.xml", msgs[0].Location())

	payloads, err = r.Respond(search("uuid:P1"))
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	// 其他类型不冒充
	payloads, err = r.Respond(search("urn:schemas-upnp-org:device:Printer:1"))
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestResponder_NoFallbackWithoutLocation(t *testing.T) {
	r, _ := newTestResponder(nil)
	payloads, err := r.Respond(search(ssdp.RootDevice))
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

// ============================================================================
//                              错误
// ============================================================================

func TestResponder_Errors(t *testing.T) {
	r, _ := newTestResponder(nil)

	_, err := r.Respond(notify(ssdp.NTSAlive, ssdp.RootDevice, "uuid:a", 60))
	assert.ErrorIs(t, err, ErrNotSearch)

	noST := types.NewEnvelope(types.EnvelopeParams{
		Payload: []byte("M-SEARCH * HTTP/1.1\r\nHOST: 239.255.255.250:1900\r\nMAN: \"ssdp:discover\"\r\n\r\n"),
	})
	_, err = r.Respond(noST)
	assert.ErrorIs(t, err, ErrMissingST)
}
