package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Probe checks whether the remote backend is reachable.
type Probe func(ctx context.Context) error

// Monitor tracks whether the device can reach the backend and notifies
// subscribers on every online/offline transition.
type Monitor struct {
	probe  Probe
	logger *zap.Logger

	notifyMu sync.Mutex // serializes transitions with their delivery

	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)

	cron *cron.Cron
}

// NewMonitor creates a monitor starting in the given state. probe may be nil
// when the state is only driven through Set.
func NewMonitor(initial bool, probe Probe, logger *zap.Logger) *Monitor {
	return &Monitor{
		probe:  probe,
		logger: logger,
		online: initial,
		subs:   make(map[int]func(bool)),
	}
}

// IsOnline returns the last observed state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers fn to be called once per transition, in transition
// order. fn must not call Set. The returned function removes the subscription.
func (m *Monitor) OnChange(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Set records an observation. Subscribers are only called when the state flips.
// Concurrent calls are delivered one transition at a time, so the last event a
// subscriber sees matches IsOnline.
func (m *Monitor) Set(online bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", zap.Bool("online", online))

	for _, fn := range subs {
		fn(online)
	}
}

// Check runs the probe once and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.probe == nil {
		return m.IsOnline()
	}

	err := m.probe(ctx)
	if err != nil {
		m.logger.Debug("connectivity probe failed", zap.Error(err))
	}
	m.Set(err == nil)
	return err == nil
}

// Start probes the backend every interval until Stop is called.
// A probe still running when the next one is due is skipped.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) error {
	if m.probe == nil {
		return fmt.Errorf("connectivity monitor has no probe")
	}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		m.Check(probeCtx)
	})
	if err != nil {
		return fmt.Errorf("schedule connectivity probe: %w", err)
	}

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()

	c.Start()
	m.logger.Info("connectivity monitor started", zap.Duration("interval", interval))

	return nil
}

// Stop halts probing and waits for a running probe to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	m.logger.Info("connectivity monitor stopped")
}
