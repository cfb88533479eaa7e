package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"streamgate/internal/logger"
	"streamgate/internal/metrics"
)

// DefaultMonitorInterval is the period between background monitor cycles.
const DefaultMonitorInterval = 60 * time.Second

// Monitor is the slow background loop that probes only the currently
// selected candidate of each group and fails over the ones that died. It
// catches an active stream dying silently between full passes, at a
// fraction of a full pass's cost.
type Monitor struct {
	engine   *Engine
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMonitor creates a Monitor. Zero interval means DefaultMonitorInterval.
func NewMonitor(e *Engine, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		engine:   e,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the monitor goroutine.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
	logger.Info("monitor_started", "interval", m.interval)
}

// Stop stops the monitor and waits for the current cycle to finish.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	logger.Info("monitor_stopped")
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runCycle()
		case <-m.stopCh:
			return
		}
	}
}

// runCycle probes each group's current selection and marks the dead ones
// failed. Probes run under the same concurrency ceiling as a full pass.
func (m *Monitor) runCycle() {
	selected := m.engine.store.Selected()
	if len(selected) == 0 {
		return
	}

	var mu sync.Mutex
	var failed []string

	var grp errgroup.Group
	grp.SetLimit(m.engine.concurrency)
	for name, entry := range selected {
		name, entry := name, entry
		grp.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("monitor_probe_panic", "group", name, "panic", r)
				}
			}()
			ok := m.engine.prober.Probe(context.Background(), entry.URL)
			m.engine.stats.RecordProbe(ok)
			if !ok {
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
			return nil
		})
	}
	grp.Wait()

	for _, name := range failed {
		logger.Warn("monitor_stream_dead", "group", name)
		m.engine.MarkFailed(name)
	}

	m.engine.stats.RecordMonitorCycle()
	metrics.MonitorCyclesTotal.Inc()
	logger.Debug("monitor_cycle_complete", "checked", len(selected), "failed", len(failed))
}
