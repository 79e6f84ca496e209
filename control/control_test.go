package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-xio/api"
)

func TestLoadClientConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: hub.example.net
port: 8443
strict_handshake: true
handshake_timeout: 5s
proxy:
  host: 10.0.0.1
  port: 3128
log:
  level: debug
`), 0o600))

	cfg, err := LoadClientConfig(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "hub.example.net", cfg.Host)
	assert.Equal(t, 8443, cfg.Port)
	assert.True(t, cfg.StrictHandshake)
	assert.Equal(t, 5*time.Second, cfg.HandshakeTimeout)
	assert.Equal(t, "10.0.0.1", cfg.Proxy.Host)
	assert.Equal(t, 3128, cfg.Proxy.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/$iothub/websocket", cfg.Resource)
	assert.Equal(t, "AMQPWSB10", cfg.Protocol)
}

func TestLoadClientConfigEnv(t *testing.T) {
	t.Setenv("XIO_CONFIG", "")
	t.Setenv("XIO_HOST", "env.example.net")
	t.Setenv("XIO_PORT", "9000")

	cfg, err := LoadClientConfig(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "env.example.net", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, time.Millisecond, cfg.PollInterval)
}

func TestClientConfigValidate(t *testing.T) {
	cfg := DefaultClientConfig()
	assert.Error(t, cfg.Validate())

	cfg.Host = "h"
	require.NoError(t, cfg.Validate())

	cfg.Proxy = ProxyConfig{Host: "p", Port: 1, Username: "u"}
	assert.Error(t, cfg.Validate())

	cfg.Proxy.Password = "pw"
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xio.log")
	l, err := NewLogger(LogConfig{Level: "info", Format: "json", Outputs: []string{path}})
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestLoggerOrNop(t *testing.T) {
	assert.NotNil(t, LoggerOrNop(nil))
}

func TestMetricsScope(t *testing.T) {
	reg := NewMetricsRegistry()
	s := reg.Scope("ws")
	s.Inc(MetricFramesSent)
	s.Add(MetricBytesSent, 10)
	s.Add(MetricBytesSent, 5)

	assert.Equal(t, int64(1), reg.Counter("ws.frames_sent"))
	assert.Equal(t, int64(15), reg.Counter("ws.bytes_sent"))
	assert.Equal(t, []string{"ws.bytes_sent", "ws.frames_sent"}, reg.Keys())
	assert.False(t, reg.Updated().IsZero())

	var nilReg *MetricsRegistry
	nilReg.Scope("x").Inc("y")
	assert.Zero(t, nilReg.Counter("x.y"))
}

type fixedState api.State

func (f fixedState) State() api.State { return api.State(f) }

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterStateProbe("ws.state", fixedState(api.StateOpen))

	out := dp.DumpState()
	assert.Equal(t, "OPEN", out["ws.state"])
	assert.Contains(t, out, "platform.cpus")
}
