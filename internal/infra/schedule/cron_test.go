package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/handlers/ledger"
)

type capturingBus struct {
	got []commands.Command
}

func (b *capturingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.got = append(b.got, cmd)
	return nil, nil
}

func TestReconcileJobDispatchesAsSystem(t *testing.T) {
	bus := &capturingBus{}
	job := ReconcileJob(bus, "@every 1h")

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, bus.got, 1)
	cmd, ok := bus.got[0].(ledger.ReconcileCommand)
	require.True(t, ok)
	assert.True(t, cmd.System)
	assert.Equal(t, ledger.SystemActor, cmd.Actor)
}

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(nil, nil)
	err := s.Add(Job{Name: "broken", Spec: "not a spec", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)

	err = s.Add(Job{Name: "empty", Spec: "@hourly"})
	assert.Error(t, err)

	assert.NoError(t, s.Add(Job{Name: "ok", Spec: "@hourly", Run: func(context.Context) error { return nil }}))
}

func TestRunStopsWithContext(t *testing.T) {
	s := New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Run(ctx))
}
