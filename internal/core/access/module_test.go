package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ssdprelay/config"
	"github.com/dep2p/go-ssdprelay/pkg/types"
)

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Access.BlockCIDRs = []string{"10.0.0.0/24"}

	var f *Filter
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Supply(types.InstanceTag("P1")),
		Module,
		fx.Populate(&f),
	)
	app.RequireStart().RequireStop()

	require.NotNil(t, f)
	assert.Equal(t, types.InstanceTag("P1"), f.Tag())
	assert.Len(t, f.Rules().BlockCIDRs, 1)
}
