package main

import (
	"bytes"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssdprelay "github.com/dep2p/go-ssdprelay"
	"github.com/dep2p/go-ssdprelay/internal/core/socket"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

func TestMain(m *testing.M) {
	interfaceResolver = knownInterfaces(map[string]string{
		"eth0": "192.168.1.2",
		"eth1": "10.0.0.1",
		"wg0":  "10.8.0.1",
	})
	os.Exit(m.Run())
}

// knownInterfaces 只解析登记的接口名
func knownInterfaces(known map[string]string) func(string) (*net.Interface, netip.Addr, error) {
	return func(name string) (*net.Interface, netip.Addr, error) {
		addr, ok := known[name]
		if !ok {
			return nil, netip.Addr{}, types.NewConfigError("interfaces", "unresolvable interface name %q", name)
		}
		return &net.Interface{Name: name, Flags: net.FlagUp | net.FlagMulticast}, netip.MustParseAddr(addr), nil
	}
}

func env(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func runCLI(t *testing.T, getenv func(string) string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr, getenv)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, env(nil), "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, ssdprelay.VersionInfo())
}

func TestValidate_FromFlags(t *testing.T) {
	code, out, errOut := runCLI(t, env(nil), "validate",
		"-i", "eth0",
		"-i", "eth1:tx",
		"-r", "forward@iface:eth0=eth1",
		"--dscp", "ef",
		"--blockcidr", "10.9.0.0/16",
	)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "配置有效")
	assert.Contains(t, out, "eth0 rxtx 192.168.1.2")
	assert.Contains(t, out, "eth1 tx 10.0.0.1")
	assert.Contains(t, out, "rule-0: forward -> eth1")
	assert.Contains(t, out, "default: block")
	assert.Contains(t, out, "ef")
	assert.Contains(t, out, "10.9.0.0/16")
}

func TestValidate_ConfigErrorExitCode(t *testing.T) {
	code, _, errOut := runCLI(t, env(nil), "validate")
	assert.Equal(t, exitConfigError, code)
	assert.Contains(t, errOut, "interfaces")

	code, _, _ = runCLI(t, env(nil), "validate", "-i", "eth0", "--dscp", "bogus")
	assert.Equal(t, exitConfigError, code)

	code, _, _ = runCLI(t, env(nil), "validate", "-i", "eth0", "-r", "teleport=eth1")
	assert.Equal(t, exitConfigError, code)

	// 目标接口未配置发送
	code, _, errOut = runCLI(t, env(nil), "validate", "-i", "eth0", "-r", "forward=eth9")
	assert.Equal(t, exitConfigError, code)
	assert.Contains(t, errOut, "eth9")
}

func TestValidate_UnresolvableInterface(t *testing.T) {
	code, out, errOut := runCLI(t, env(nil), "validate", "-i", "eth0", "-i", "nosuchif0")
	assert.Equal(t, exitConfigError, code)
	assert.NotContains(t, out, "配置有效")
	assert.Contains(t, errOut, "nosuchif0")

	prev := interfaceResolver
	interfaceResolver = socket.ResolveInterface
	defer func() { interfaceResolver = prev }()

	code, _, errOut = runCLI(t, env(nil), "validate", "-i", "nosuchif0")
	assert.Equal(t, exitConfigError, code, errOut)
}

func TestValidate_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 1900,
		"interfaces": [{"name": "eth0"}, {"name": "wg0", "receive": false}],
		"rules": [{"action": "forward", "match": {"interface": "eth0"}, "targets": ["wg0"]}]
	}`), 0o600))

	// 文件
	code, out, errOut := runCLI(t, env(nil), "validate", "-c", path)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "端口:       1900")
	assert.Contains(t, out, "wg0 tx")

	// 环境变量覆盖文件
	code, out, errOut = runCLI(t, env(map[string]string{"SSDPRELAY_PORT": "1901"}), "validate", "-c", path)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "端口:       1901")

	// 命令行覆盖环境变量
	code, out, errOut = runCLI(t, env(map[string]string{"SSDPRELAY_PORT": "1901"}), "validate", "-c", path, "--port", "1902")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "端口:       1902")
}

func TestValidate_MissingFile(t *testing.T) {
	code, _, _ := runCLI(t, env(nil), "validate", "-c", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, exitConfigError, code)
}

func TestUnexpectedArgs(t *testing.T) {
	code, _, _ := runCLI(t, env(nil), "validate", "extra")
	assert.Equal(t, exitFailure, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(fmt.Errorf("boom")))
	assert.Equal(t, exitConfigError, exitCode(fmt.Errorf("wrap: %w", types.NewConfigError("port", "bad"))))
}
