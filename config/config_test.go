package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.Interfaces = []InterfaceConfig{
		{Name: "eth0", Receive: true, Transmit: true},
		{Name: "eth1", Receive: true, Transmit: true},
	}
	cfg.Rules = []RuleConfig{
		{Match: MatchConfig{Interface: "eth0"}, Action: types.ActionForward, Targets: []string{"eth1"}},
	}
	return cfg
}

func requireConfigError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var ce *types.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, field, ce.Field)
}

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.True(t, cfg.Access.BlockSelf)

	// 默认配置没有接口，不能直接通过验证
	requireConfigError(t, cfg.Validate(), "interfaces")

	require.NoError(t, validConfig().Validate())

	t.Log("✅ NewConfig 测试通过")
}

// TestConfig_Validate 测试配置验证
func TestConfig_Validate(t *testing.T) {
	t.Run("Validate_BadPort", func(t *testing.T) {
		cfg := validConfig()
		cfg.Port = 70000
		requireConfigError(t, cfg.Validate(), "port")
	})

	t.Run("Validate_MalformedCIDR", func(t *testing.T) {
		cfg := validConfig()
		cfg.Access.BlockCIDRs = []string{"10.0.0.0/24", "10.0.0.0/99"}
		requireConfigError(t, cfg.Validate(), "access.block_cidrs[1]")
	})

	t.Run("Validate_EmptyTargetsForForward", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules[0].Targets = nil
		requireConfigError(t, cfg.Validate(), "rules[0].targets")
	})

	t.Run("Validate_EmptyTargetsForDial", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules = append(cfg.Rules, RuleConfig{Action: types.ActionDial})
		requireConfigError(t, cfg.Validate(), "rules[1].targets")
	})

	t.Run("Validate_UnknownTargetInterface", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules[0].Targets = []string{"eth9"}
		requireConfigError(t, cfg.Validate(), "rules[0].targets[0]")
	})

	t.Run("Validate_TargetNotTransmitting", func(t *testing.T) {
		cfg := validConfig()
		cfg.Interfaces[1].Transmit = false
		requireConfigError(t, cfg.Validate(), "rules[0].targets[0]")
	})

	t.Run("Validate_UnknownMatchInterface", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules[0].Match.Interface = "wlan0"
		requireConfigError(t, cfg.Validate(), "rules[0].match.interface")
	})

	t.Run("Validate_AddressTarget", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules[0].Targets = []string{"192.168.1.1:1900"}
		require.NoError(t, cfg.Validate())
	})

	t.Run("Validate_ProxyWithTargets", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules = []RuleConfig{{Action: types.ActionProxy, Targets: []string{"eth1"}}}
		requireConfigError(t, cfg.Validate(), "rules[0].targets")
	})

	t.Run("Validate_DuplicateInterface", func(t *testing.T) {
		cfg := validConfig()
		cfg.Interfaces[1].Name = "eth0"
		requireConfigError(t, cfg.Validate(), "interfaces[1].name")
	})

	t.Run("Validate_NoReceiver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules = nil
		cfg.Interfaces[0].Receive = false
		cfg.Interfaces[1].Receive = false
		requireConfigError(t, cfg.Validate(), "interfaces")
	})

	t.Run("Validate_BadGroup", func(t *testing.T) {
		cfg := validConfig()
		cfg.Interfaces[0].Groups = []string{"10.0.0.1"}
		requireConfigError(t, cfg.Validate(), "interfaces[0].groups[0]")
	})

	t.Run("Validate_BadSTGlob", func(t *testing.T) {
		cfg := validConfig()
		cfg.Rules[0].Match.ST = "urn:[bad"
		requireConfigError(t, cfg.Validate(), "rules[0].match.st")
	})

	t.Log("✅ Config.Validate 测试通过")
}

// TestFromJSON 测试 JSON 加载
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"port": 1900,
		"interfaces": [
			{"name": "eth0"},
			{"name": "wg0", "receive": false}
		],
		"access": {"block_self": true, "block_cidrs": ["10.0.0.0/24"]},
		"dscp": "af41",
		"rules": [
			{"name": "lan-to-vpn", "match": {"interface": "eth0", "st": "urn:*"}, "action": "forward", "targets": ["wg0"]}
		],
		"dial": {"dedupe_window": "3s"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Interfaces, 2)
	assert.True(t, cfg.Interfaces[0].Receive)
	assert.True(t, cfg.Interfaces[0].Transmit)
	assert.False(t, cfg.Interfaces[1].Receive)
	assert.True(t, cfg.Interfaces[1].Transmit)
	assert.Equal(t, DSCP(34), cfg.DSCP)
	assert.Equal(t, types.ActionForward, cfg.Rules[0].Action)
	assert.Equal(t, 3*time.Second, cfg.Dial.DedupeWindow.Std())

	// 未出现的字段保留默认值
	assert.Equal(t, DefaultDialConfig().Rate, cfg.Dial.Rate)
	assert.Equal(t, DefaultRelayConfig().HopLimit, cfg.Relay.HopLimit)
}

func TestFromJSON_Errors(t *testing.T) {
	_, err := FromJSON([]byte(`{"prot": 1900}`))
	assert.True(t, types.IsConfigError(err))

	_, err = FromJSON([]byte(`{"rules": [{"action": "teleport"}]}`))
	assert.True(t, types.IsConfigError(err))

	_, err = FromJSON([]byte(`{"dscp": 64}`))
	assert.True(t, types.IsConfigError(err))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"interfaces":[{"name":"lo"}]}`), 0o600))

	cfg, err := Load(path, func(name string) string {
		if name == EnvName(EnvBlockCIDRs) {
			return "192.0.2.0/24, 198.51.100.7"
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.0/24", "198.51.100.7"}, cfg.Access.BlockCIDRs)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, types.IsConfigError(err))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SSDPRELAY_PORT":         "1901",
		"SSDPRELAY_INTERFACES":   "eth0, eth1:tx",
		"SSDPRELAY_BLOCK_SELF":   "false",
		"SSDPRELAY_ALLOW_CIDRS":  "192.168.0.0/16",
		"SSDPRELAY_DSCP":         "ef",
		"SSDPRELAY_INSTANCE_TAG": "relay-a",
	}
	cfg := NewConfig()
	require.NoError(t, ApplyEnv(cfg, func(k string) string { return env[k] }))

	assert.Equal(t, 1901, cfg.Port)
	require.Len(t, cfg.Interfaces, 2)
	assert.False(t, cfg.Interfaces[1].Receive)
	assert.False(t, cfg.Access.BlockSelf)
	assert.Equal(t, []string{"192.168.0.0/16"}, cfg.Access.AllowCIDRs)
	assert.Equal(t, DSCPEF, cfg.DSCP)
	assert.Equal(t, "relay-a", cfg.InstanceTag)

	err := ApplyEnv(NewConfig(), func(k string) string {
		if k == "SSDPRELAY_PORT" {
			return "abc"
		}
		return ""
	})
	assert.True(t, types.IsConfigError(err))
}
