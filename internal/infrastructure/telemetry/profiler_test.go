package telemetry

import (
	"context"
	"runtime/pprof"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestStartProfiler_Disabled(t *testing.T) {
	p, err := StartProfiler(ProfilerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestStartProfiler_RequiresServerAddress(t *testing.T) {
	p, err := StartProfiler(ProfilerConfig{Enabled: true}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrProfilerAddress)
	assert.Nil(t, p)
}

func TestProfiler_NilStop(t *testing.T) {
	var p *Profiler
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
}

func TestWithPhaseLabels(t *testing.T) {
	ctx := context.Background()
	var (
		phase string
		ok    bool
	)
	WithPhaseLabels(ctx, "products", func(ctx context.Context) {
		phase, ok = pprof.Label(ctx, ProfileLabelPhase)
	})

	require.True(t, ok)
	assert.Equal(t, "products", phase)

	_, ok = pprof.Label(ctx, ProfileLabelPhase)
	assert.False(t, ok)
}
