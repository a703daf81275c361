package chaos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide_DisabledNeverFaultsAndNeverAdvancesCursor(t *testing.T) {
	e := NewEngine(Config{Enabled: false, FailureRate: 1.0, RugRate: 1.0, MaxLatencyMS: 100})

	for i := 0; i < 5; i++ {
		d := e.Decide("a1")
		require.True(t, d.None)
	}

	assert.Equal(t, uint64(0), e.CursorOf("a1"))
}

func TestDecide_FailureRateZeroNeverFailsPrePayment(t *testing.T) {
	e := NewEngine(Config{Enabled: true, Seed: 42, FailureRate: 0.0})

	for i := 0; i < 200; i++ {
		d := e.Decide("a1")
		assert.Zero(t, d.PrePaymentStatus)
	}
}

func TestDecide_FailureRateOneAlwaysFailsPrePayment(t *testing.T) {
	e := NewEngine(Config{Enabled: true, Seed: 42, FailureRate: 1.0})

	for i := 0; i < 50; i++ {
		d := e.Decide("a1")
		assert.Equal(t, 503, d.PrePaymentStatus)
	}
}

func TestDecide_FixedLatencyWindow(t *testing.T) {
	e := NewEngine(Config{Enabled: true, Seed: 7, FailureRate: 0, RugRate: 0, MinLatencyMS: 50, MaxLatencyMS: 50})

	for i := 0; i < 50; i++ {
		d := e.Decide("a1")
		assert.Equal(t, int64(50), d.LatencyMS)
	}
}

func TestDecide_DeterministicReplay(t *testing.T) {
	cfg := Config{Enabled: true, Seed: 123, FailureRate: 0.5, MinLatencyMS: 0, MaxLatencyMS: 0}

	run := func() []Decision {
		e := NewEngine(cfg)

		out := make([]Decision, 10)
		for i := range out {
			out[i] = e.Decide("a2")
		}

		return out
	}

	first := run()
	second := run()

	assert.Equal(t, first, second)
}

func TestDecide_CursorsAreIndependentPerAgent(t *testing.T) {
	e := NewEngine(Config{Enabled: true, Seed: 1, FailureRate: 0.5})

	e.Decide("a1")
	e.Decide("a1")
	e.Decide("a2")

	assert.Equal(t, uint64(2), e.CursorOf("a1"))
	assert.Equal(t, uint64(1), e.CursorOf("a2"))
}
