package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar/internal/app/commands"
)

type result struct {
	ID string `json:"id"`
}

type createCmd struct {
	key  string
	car  string
	name string
}

func (c createCmd) Key() string {
	if c.name != "" {
		return c.name
	}
	return "test.create"
}
func (c createCmd) IdempotencyKey() string { return c.key }
func (c createCmd) ResultPrototype() any   { return &result{} }
func (c createCmd) LockKey() string        { return c.car }

type mapStore struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func (s *mapStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	return rec, ok, nil
}

func (s *mapStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recs == nil {
		s.recs = map[string]IdempotencyRecord{}
	}
	s.recs[rec.Key] = rec
	return nil
}

func countingBus(calls *int, err error) commands.Bus {
	return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return &result{ID: "bk-1"}, nil
	})
}

func TestChainCommandsRunsOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	var calls int
	bus := ChainCommands(countingBus(&calls, nil), mark("a"), mark("b"), mark("c"))

	_, err := bus.Dispatch(context.Background(), createCmd{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	var calls int
	bus := Idempotency(&mapStore{}, nil)(countingBus(&calls, nil))
	ctx := context.Background()

	first, err := bus.Dispatch(ctx, createCmd{key: "k1"})
	require.NoError(t, err)
	second, err := bus.Dispatch(ctx, createCmd{key: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.IsType(t, &result{}, second)
}

func TestIdempotencyDoesNotRecordFailures(t *testing.T) {
	var calls int
	store := &mapStore{}
	boom := errors.New("boom")
	ctx := context.Background()

	_, err := Idempotency(store, nil)(countingBus(&calls, boom)).Dispatch(ctx, createCmd{key: "k1"})
	assert.ErrorIs(t, err, boom)

	out, err := Idempotency(store, nil)(countingBus(&calls, nil)).Dispatch(ctx, createCmd{key: "k1"})
	require.NoError(t, err)
	assert.Equal(t, &result{ID: "bk-1"}, out)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyRejectsKeyReuseAcrossCommands(t *testing.T) {
	var calls int
	bus := Idempotency(&mapStore{}, nil)(countingBus(&calls, nil))
	ctx := context.Background()

	_, err := bus.Dispatch(ctx, createCmd{key: "k1"})
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, createCmd{key: "k1", name: "test.other"})
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)
}

func TestIdempotencySkipsCommandsWithoutKey(t *testing.T) {
	var calls int
	bus := Idempotency(&mapStore{}, nil)(countingBus(&calls, nil))

	for i := 0; i < 3; i++ {
		_, err := bus.Dispatch(context.Background(), createCmd{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

type chanLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func (l *chanLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = map[string]chan struct{}{}
	}
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()
	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSerializeExcludesSameKey(t *testing.T) {
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	inner := commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		mu.Lock()
		inside++
		if inside > maxSeen {
			maxSeen = inside
		}
		mu.Unlock()
		mu.Lock()
		inside--
		mu.Unlock()
		return nil, nil
	})
	bus := Serialize(&chanLocker{})(inner)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bus.Dispatch(context.Background(), createCmd{car: "car-1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestSerializePropagatesLockTimeout(t *testing.T) {
	locker := &chanLocker{}
	unlock, err := locker.Lock(context.Background(), "car-1")
	require.NoError(t, err)
	defer unlock()

	var calls int
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Serialize(locker)(countingBus(&calls, nil)).Dispatch(ctx, createCmd{car: "car-1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
