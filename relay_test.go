package ssdprelay

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/relay"
	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

// ============================================================================
//                              内存 Transport
// ============================================================================

type memEndpoint struct {
	name     string
	mu       sync.Mutex
	degraded bool
}

func (e *memEndpoint) Name() string      { return e.name }
func (e *memEndpoint) CanReceive() bool  { return true }
func (e *memEndpoint) CanTransmit() bool { return true }
func (e *memEndpoint) Group() netip.Addr { return netip.MustParseAddr(config.DefaultGroup) }
func (e *memEndpoint) MarkDegraded() {
	e.mu.Lock()
	e.degraded = true
	e.mu.Unlock()
}
func (e *memEndpoint) Degraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.degraded
}

type memTransport struct {
	eps   []*memEndpoint
	inbox map[string]chan types.Envelope

	mu     sync.Mutex
	sent   map[string][]types.Envelope
	closed bool
}

func newMemTransport(names ...string) *memTransport {
	t := &memTransport{
		inbox: make(map[string]chan types.Envelope),
		sent:  make(map[string][]types.Envelope),
	}
	for _, n := range names {
		t.eps = append(t.eps, &memEndpoint{name: n})
		t.inbox[n] = make(chan types.Envelope, 8)
	}
	return t
}

func (t *memTransport) Open(context.Context) ([]relay.Endpoint, error) {
	out := make([]relay.Endpoint, len(t.eps))
	for i, ep := range t.eps {
		out[i] = ep
	}
	return out, nil
}

func (t *memTransport) Receive(ctx context.Context, ep relay.Endpoint) (types.Envelope, error) {
	select {
	case env := <-t.inbox[ep.Name()]:
		return env, nil
	case <-ctx.Done():
		return types.Envelope{}, ctx.Err()
	}
}

func (t *memTransport) ReceiveReply(ctx context.Context, _ relay.Endpoint) (types.Envelope, error) {
	<-ctx.Done()
	return types.Envelope{}, ctx.Err()
}

func (t *memTransport) Send(_ context.Context, ep relay.Endpoint, env types.Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[ep.Name()] = append(t.sent[ep.Name()], env)
	return nil
}

func (t *memTransport) LocalAddrs() []netip.AddrPort { return nil }

func (t *memTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *memTransport) sentOn(name string) []types.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.Envelope(nil), t.sent[name]...)
}

func (t *memTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func withTransport(tr relay.Transport) Option {
	return WithFxOptions(fx.Provide(func() relay.Transport { return tr }))
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Interfaces = []config.InterfaceConfig{
		{Name: "eth0", Receive: true, Transmit: true},
		{Name: "eth1", Receive: true, Transmit: true},
	}
	cfg.Rules = []config.RuleConfig{{
		Name:    "lan-to-vpn",
		Match:   config.MatchConfig{Interface: "eth0"},
		Action:  types.ActionForward,
		Targets: []string{"eth1"},
	}}
	return cfg
}

// ============================================================================
//                              测试
// ============================================================================

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(WithConfig(config.NewConfig()))
	require.Error(t, err)

	var ce *types.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "interfaces", ce.Field)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithPort(70000))
	assert.Error(t, err)

	_, err = New(WithInstanceTag("has space"))
	assert.Error(t, err)

	_, err = New(WithConfig(nil))
	assert.Error(t, err)
}

func TestNew_DoesNotMutateConfig(t *testing.T) {
	cfg := testConfig()
	r, err := New(WithConfig(cfg), WithPort(1901), WithInstanceTag("relay-a"), withTransport(newMemTransport("eth0", "eth1")))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.Equal(t, 1901, r.Config().Port)
	assert.Equal(t, types.InstanceTag("relay-a"), r.Tag())
}

func TestNew_RandomTag(t *testing.T) {
	a, err := New(WithConfig(testConfig()), withTransport(newMemTransport("eth0", "eth1")))
	require.NoError(t, err)
	b, err := New(WithConfig(testConfig()), withTransport(newMemTransport("eth0", "eth1")))
	require.NoError(t, err)

	assert.False(t, a.Tag().IsEmpty())
	assert.NotEqual(t, a.Tag(), b.Tag())
}

func TestRelay_ForwardEndToEnd(t *testing.T) {
	tr := newMemTransport("eth0", "eth1")

	var mu sync.Mutex
	var seen []Event
	r, err := New(
		WithConfig(testConfig()),
		WithInstanceTag("relay-a"),
		withTransport(tr),
		WithEventHandler(func(e Event) {
			mu.Lock()
			seen = append(seen, e)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	assert.ErrorIs(t, r.Start(ctx), ErrAlreadyStarted)

	payload := ssdp.BuildSearch(ssdp.SearchParams{Host: ssdp.MulticastAddr, ST: ssdp.SearchAll, MX: 1})
	tr.inbox["eth0"] <- types.NewEnvelope(types.EnvelopeParams{
		Src:       netip.MustParseAddrPort("192.168.1.50:50000"),
		Dst:       netip.MustParseAddrPort(ssdp.MulticastAddr),
		Interface: "eth0",
		Payload:   payload,
		TTL:       4,
	})

	require.Eventually(t, func() bool {
		return r.Stats().Outcomes[types.OutcomeForwarded] == 1
	}, 2*time.Second, 5*time.Millisecond)

	out := tr.sentOn("eth1")
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].TTL())
	assert.Equal(t, payload, out[0].Payload())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "lan-to-vpn", seen[0].Rule)
	assert.Equal(t, types.OutcomeForwarded, seen[0].Outcome)
	assert.False(t, seen[0].Time.IsZero())
	mu.Unlock()

	st := r.Stats()
	assert.Equal(t, types.InstanceTag("relay-a"), st.Tag)
	assert.Equal(t, uint64(1), st.Received)
	assert.Empty(t, st.Degraded)

	require.NoError(t, r.Stop(ctx))
	require.NoError(t, r.Stop(ctx))
	assert.True(t, tr.isClosed())
	assert.ErrorIs(t, r.Start(ctx), ErrRelayClosed)
}

func TestRelay_StopBeforeStart(t *testing.T) {
	r, err := New(WithConfig(testConfig()), withTransport(newMemTransport("eth0", "eth1")))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Stop(context.Background()), ErrNotStarted)
}

func TestRelay_Run(t *testing.T) {
	tr := newMemTransport("eth0", "eth1")
	r, err := New(WithConfig(testConfig()), withTransport(tr))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.started
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, tr.isClosed())
}

func TestVersionInfo(t *testing.T) {
	assert.True(t, strings.HasPrefix(VersionInfo(), "ssdp-relay "+Version))

	GitCommit = "0123456789abcdef"
	defer func() { GitCommit = "" }()
	assert.Contains(t, VersionInfo(), "(01234567)")
}
