package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitor_EmitsOnlyOnTransitions(t *testing.T) {
	m := NewMonitor(true, nil, zap.NewNop())

	var events []bool
	m.OnChange(func(online bool) { events = append(events, online) })

	m.Set(true)
	m.Set(false)
	m.Set(false)
	m.Set(true)
	m.Set(false)
	m.Set(true)

	assert.Equal(t, []bool{false, true, false, true}, events)
	assert.True(t, m.IsOnline())
}

func TestMonitor_MultipleSubscribersAndUnsubscribe(t *testing.T) {
	m := NewMonitor(false, nil, zap.NewNop())

	var a, b int
	unsubA := m.OnChange(func(bool) { a++ })
	m.OnChange(func(bool) { b++ })

	m.Set(true)
	unsubA()
	unsubA()
	m.Set(false)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestMonitor_Check(t *testing.T) {
	var fail atomic.Bool
	probe := func(context.Context) error {
		if fail.Load() {
			return errors.New("connection refused")
		}
		return nil
	}

	m := NewMonitor(true, probe, zap.NewNop())

	var events []bool
	m.OnChange(func(online bool) { events = append(events, online) })

	assert.True(t, m.Check(context.Background()))
	fail.Store(true)
	assert.False(t, m.Check(context.Background()))
	assert.False(t, m.Check(context.Background()))
	fail.Store(false)
	assert.True(t, m.Check(context.Background()))

	assert.Equal(t, []bool{false, true}, events)
}

func TestMonitor_StartProbesPeriodically(t *testing.T) {
	var calls atomic.Int32
	probe := func(context.Context) error {
		calls.Add(1)
		return errors.New("offline")
	}

	m := NewMonitor(true, probe, zap.NewNop())

	var mu sync.Mutex
	var events []bool
	m.OnChange(func(online bool) {
		mu.Lock()
		events = append(events, online)
		mu.Unlock()
	})

	require.NoError(t, m.Start(context.Background(), time.Second))
	defer m.Stop()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	assert.False(t, m.IsOnline())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false}, events)
}

func TestMonitor_StartWithoutProbe(t *testing.T) {
	m := NewMonitor(true, nil, zap.NewNop())
	assert.Error(t, m.Start(context.Background(), time.Second))
	m.Stop()
}

func TestMonitor_ConcurrentSetDeliversInOrder(t *testing.T) {
	m := NewMonitor(false, nil, zap.NewNop())

	var (
		mu     sync.Mutex
		events []bool
	)
	m.OnChange(func(online bool) {
		mu.Lock()
		events = append(events, online)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(online bool) {
			defer wg.Done()
			m.Set(online)
		}(i%2 == 0)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	require.NotEmpty(t, events)
	assert.True(t, events[0])
	for i := 1; i < len(events); i++ {
		assert.NotEqual(t, events[i-1], events[i], "transition %d repeats the previous state", i)
	}
	assert.Equal(t, m.IsOnline(), events[len(events)-1])
}
