package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/internal/core/observe"
)

func TestModule_Enabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Listen = "127.0.0.1:0"

	var (
		c     *Collector
		s     *Server
		sinks []observe.Sink
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&c, &s),
		fx.Invoke(func(in struct {
			fx.In
			All []observe.Sink `group:"observe_sinks"`
		}) {
			sinks = in.All
		}),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, c)
	require.NotNil(t, s)
	require.Len(t, sinks, 1)
	assert.Same(t, c, sinks[0])
}

func TestModule_Disabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false

	var (
		c *Collector
		s *Server
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&c, &s),
	)
	app.RequireStart().RequireStop()

	assert.Nil(t, c)
	assert.Nil(t, s)
}

func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil))
}
