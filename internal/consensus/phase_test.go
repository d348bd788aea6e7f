package consensus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseGateSetAndGet(t *testing.T) {
	g := NewPhaseGate()
	assert.Equal(t, PhaseIdle, g.Get())

	g.Set(PhaseReady)
	assert.Equal(t, PhaseReady, g.Get())
}

func TestPhaseGateWaitForUnblocksOnSet(t *testing.T) {
	g := NewPhaseGate()

	done := make(chan error, 1)
	go func() {
		done <- g.WaitFor(context.Background(), PhaseBuilding)
	}()

	time.Sleep(10 * time.Millisecond)
	g.Set(PhaseBuilding)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitFor never unblocked after Set")
	}
}

func TestPhaseGateWaitForRespectsCancellation(t *testing.T) {
	g := NewPhaseGate()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.WaitFor(ctx, PhaseCommitting)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitFor never unblocked after cancel")
	}
}

func TestPhaseGateWaitForReturnsImmediatelyIfAlreadyThere(t *testing.T) {
	g := NewPhaseGate()
	g.Set(PhaseMempoolSync)

	err := g.WaitFor(context.Background(), PhaseMempoolSync)
	assert.NoError(t, err)
}

func TestPhaseStringNames(t *testing.T) {
	assert.Equal(t, "IDLE", PhaseIdle.String())
	assert.Equal(t, "COMMITTING", PhaseCommitting.String())
	assert.Equal(t, "UNKNOWN", Phase(99).String())
}
