package dispatch

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/ssdp"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

func searchEnv(iface, src, st string) types.Envelope {
	return types.NewEnvelope(types.EnvelopeParams{
		Src:       netip.MustParseAddrPort(src),
		Dst:       netip.MustParseAddrPort("239.255.255.250:1900"),
		Interface: iface,
		Payload:   ssdp.BuildSearch(ssdp.SearchParams{Host: ssdp.MulticastAddr, ST: st, MX: 2}),
		TTL:       2,
	})
}

func mustCompile(t *testing.T, rcs ...config.RuleConfig) *Dispatcher {
	t.Helper()
	d, err := Compile(rcs)
	require.NoError(t, err)
	return d
}

// ============================================================================
//                              first-match-wins
// ============================================================================

func TestClassify_InterfaceForward(t *testing.T) {
	d := mustCompile(t, config.RuleConfig{
		Match:   config.MatchConfig{Interface: "eth0"},
		Action:  types.ActionForward,
		Targets: []string{"eth1"},
	})

	r := d.Classify(searchEnv("eth0", "192.168.1.9:50000", ssdp.SearchAll))
	assert.Equal(t, types.ActionForward, r.Action)
	require.Len(t, r.Targets, 1)
	assert.Equal(t, "eth1", r.Targets[0].Binding)
	assert.Equal(t, "rule-0", r.Name)
	assert.False(t, r.IsDefault())
}

func TestClassify_FirstMatchWins(t *testing.T) {
	d := mustCompile(t,
		config.RuleConfig{Name: "vpn-proxy", Match: config.MatchConfig{Interface: "wg0"}, Action: types.ActionProxy},
		config.RuleConfig{Name: "all-forward", Action: types.ActionForward, Targets: []string{"eth1"}},
	)

	assert.Equal(t, "vpn-proxy", d.Classify(searchEnv("wg0", "10.8.0.2:1", ssdp.SearchAll)).Name)
	assert.Equal(t, "all-forward", d.Classify(searchEnv("eth0", "10.8.0.2:1", ssdp.SearchAll)).Name)
}

func TestClassify_DefaultBlock(t *testing.T) {
	d := mustCompile(t, config.RuleConfig{
		Match:   config.MatchConfig{Interface: "eth0"},
		Action:  types.ActionForward,
		Targets: []string{"eth1"},
	})

	r := d.Classify(searchEnv("eth2", "192.168.1.9:50000", ssdp.SearchAll))
	require.NotNil(t, r)
	assert.Equal(t, types.ActionBlock, r.Action)
	assert.True(t, r.IsDefault())
	assert.Equal(t, DefaultRuleName, r.Name)

	// 没有任何规则时同样 fail closed
	empty := mustCompile(t)
	assert.Equal(t, types.ActionBlock, empty.Classify(searchEnv("eth0", "1.2.3.4:5", ssdp.SearchAll)).Action)
}

func TestClassify_Total(t *testing.T) {
	d := mustCompile(t,
		config.RuleConfig{Match: config.MatchConfig{ST: "urn:*:MediaRenderer:*"}, Action: types.ActionDial, Targets: []string{"192.168.1.1:1900"}},
		config.RuleConfig{Match: config.MatchConfig{SrcCIDR: "10.0.0.0/8"}, Action: types.ActionProxy},
	)

	envs := []types.Envelope{
		searchEnv("eth0", "10.1.1.1:1", ssdp.SearchAll),
		searchEnv("eth0", "192.168.1.1:1", "urn:schemas-upnp-org:device:MediaRenderer:1"),
		searchEnv("eth0", "192.168.1.1:1", ssdp.RootDevice),
		types.NewEnvelope(types.EnvelopeParams{Payload: []byte("garbage")}),
		{},
	}
	valid := map[types.Action]bool{
		types.ActionBlock: true, types.ActionForward: true, types.ActionProxy: true, types.ActionDial: true,
	}
	for _, env := range envs {
		r := d.Classify(env)
		require.NotNil(t, r)
		assert.True(t, valid[r.Action])
	}
}

// ============================================================================
//                              匹配条件
// ============================================================================

func TestClassify_Predicates(t *testing.T) {
	tests := []struct {
		name  string
		match config.MatchConfig
		env   types.Envelope
		want  bool
	}{
		{"port match", config.MatchConfig{DstPort: 1900}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), true},
		{"port miss", config.MatchConfig{DstPort: 1901}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), false},
		{"dst match", config.MatchConfig{DstAddr: "239.255.255.250"}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), true},
		{"dst miss", config.MatchConfig{DstAddr: "192.168.1.1"}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), false},
		{"src match", config.MatchConfig{SrcCIDR: "192.168.0.0/16"}, searchEnv("eth0", "192.168.3.4:1", ssdp.SearchAll), true},
		{"src miss", config.MatchConfig{SrcCIDR: "192.168.0.0/16"}, searchEnv("eth0", "10.0.0.1:1", ssdp.SearchAll), false},
		{"method match", config.MatchConfig{Method: "m-search"}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), true},
		{"method miss", config.MatchConfig{Method: "NOTIFY"}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), false},
		{"st glob", config.MatchConfig{ST: "urn:schemas-upnp-org:device:*"}, searchEnv("eth0", "1.1.1.1:1", "urn:schemas-upnp-org:device:Basic:1"), true},
		{"st exact miss", config.MatchConfig{ST: ssdp.RootDevice}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), false},
		{"st unparsable", config.MatchConfig{ST: "*"}, types.NewEnvelope(types.EnvelopeParams{Payload: []byte("junk")}), false},
		{"all fields", config.MatchConfig{Interface: "eth0", DstPort: 1900, Method: "M-SEARCH", ST: "ssdp:*"}, searchEnv("eth0", "1.1.1.1:1", ssdp.SearchAll), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustCompile(t, config.RuleConfig{Match: tt.match, Action: types.ActionProxy})
			got := d.Classify(tt.env).Action == types.ActionProxy
			assert.Equal(t, tt.want, got)
		})
	}
}

// ============================================================================
//                              编译错误
// ============================================================================

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		rc    config.RuleConfig
		field string
	}{
		{"forward without targets", config.RuleConfig{Action: types.ActionForward}, "rules[0].targets"},
		{"dial without targets", config.RuleConfig{Action: types.ActionDial}, "rules[0].targets"},
		{"bad target", config.RuleConfig{Action: types.ActionForward, Targets: []string{"1.2.3.4:0"}}, "rules[0].targets[0]"},
		{"bad src", config.RuleConfig{Match: config.MatchConfig{SrcCIDR: "10.0.0.0/40"}, Action: types.ActionBlock}, "rules[0].match.src_cidr"},
		{"bad dst", config.RuleConfig{Match: config.MatchConfig{DstAddr: "nope"}, Action: types.ActionBlock}, "rules[0].match.dst_addr"},
		{"bad glob", config.RuleConfig{Match: config.MatchConfig{ST: "[x"}, Action: types.ActionBlock}, "rules[0].match.st"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]config.RuleConfig{tt.rc})
			var ce *types.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestDispatcher_BindingTargets(t *testing.T) {
	d := mustCompile(t,
		config.RuleConfig{Action: types.ActionForward, Targets: []string{"eth1", "10.0.0.1:1900", "eth2"}},
		config.RuleConfig{Action: types.ActionDial, Targets: []string{"eth1"}},
	)
	assert.Equal(t, []string{"eth1", "eth2"}, d.BindingTargets())
	assert.Len(t, d.Rules(), 2)
	assert.True(t, d.Default().IsDefault())
}

func TestRule_String(t *testing.T) {
	d := mustCompile(t,
		config.RuleConfig{Name: "lan", Action: types.ActionForward, Targets: []string{"eth1", "10.0.0.1:1900"}},
	)
	assert.Equal(t, "lan: forward -> eth1,10.0.0.1:1900", d.Rules()[0].String())
	assert.Equal(t, "default: block", d.Default().String())
}
