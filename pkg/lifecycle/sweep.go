package lifecycle

import (
	"context"
	"time"
)

// sweepLoop periodically scans for agents stuck in Running with no recent
// heartbeat and moves them to Error, per the stale-worker recovery feature
// (SPEC_FULL.md §C). All pods/managers run this independently — the move is
// idempotent on an already-errored agent.
func (m *Manager) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweepStale()
		}
	}
}

func (m *Manager) sweepStale() {
	threshold := m.clk.Now().Add(-m.cfg.StaleThreshold)

	m.mu.RLock()
	var stale []string
	for id, a := range m.agents {
		if a.Lifecycle == StateRunning && a.lastHeartbeat.Before(threshold) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.logger.Warn("agent heartbeat stale, marking error", "agent_id", id, "threshold", m.cfg.StaleThreshold)
		if err := m.Fail(context.Background(), id); err != nil {
			m.logger.Error("failed to mark stale agent as errored", "agent_id", id, "error", err)
		}
	}
}
