package observe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ssdprelay/pkg/types"
)

func TestModule(t *testing.T) {
	r := &recorder{}

	var sink Sink
	app := fxtest.New(t,
		Module,
		fx.Provide(fx.Annotate(
			func() Sink { return r },
			fx.ResultTags(SinkGroup),
		)),
		fx.Populate(&sink),
	)
	app.RequireStart()

	require.NotNil(t, sink)
	sink.Observe(Event{Outcome: types.OutcomeProxied})

	// Stop 会排空队列
	app.RequireStop()
	evs := r.all()
	require.Len(t, evs, 1)
	assert.Equal(t, types.OutcomeProxied, evs[0].Outcome)
}
