package evolution

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brindle-systems/swarm/pkg/clock"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return New(clock.NewFixed(time.Unix(0, 0)), clock.NewSeededIDGen("ver"), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func f64(v float64) *float64 { return &v }

func TestScenarioF_MutationThenHealthyThenReinforcement(t *testing.T) {
	e := newTestEngine()

	// 20 samples at success_rate=0.5, avg_response_time=10s: alternating ok/fail.
	for i := 0; i < 20; i++ {
		ok := i%2 == 0
		_, err := e.Record("agent-1", Outcome{
			OK: ok, Duration: 10 * time.Second,
			QualityScore: f64(0.2), UserSatisfaction: f64(0.2), ResourceUsage: f64(0.5),
		})
		require.NoError(t, err)
	}
	require.Less(t, e.Score("agent-1"), 0.5)

	// Reset the rolling window toward success_rate=0.9, time=8s by recording
	// a further run of mostly-successful, faster executions.
	for i := 0; i < 200; i++ {
		ok := i%10 != 0 // 90% success
		_, err := e.Record("agent-1", Outcome{
			OK: ok, Duration: 8 * time.Second,
			QualityScore: f64(0.9), UserSatisfaction: f64(0.9), ResourceUsage: f64(0.1),
		})
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, e.Score("agent-1"), 0.70)
	require.LessOrEqual(t, e.ErrorRate("agent-1"), 0.20)

	m, err := e.Record("agent-1", Outcome{
		OK: true, Duration: 8 * time.Second,
		QualityScore: f64(0.9), UserSatisfaction: f64(0.9), ResourceUsage: f64(0.1),
	})
	require.NoError(t, err)
	require.Nil(t, m, "healthy worker should get no mutation proposal")

	// Drive error_rate above 0.20 with a burst of failures; Reinforcement
	// should now be proposed at high score.
	var last *Mutation
	for i := 0; i < 5; i++ {
		m, err := e.Record("agent-1", Outcome{
			OK: false, Duration: 8 * time.Second,
			QualityScore: f64(0.9), UserSatisfaction: f64(0.9), ResourceUsage: f64(0.1),
		})
		require.NoError(t, err)
		if m != nil {
			last = m
		}
	}
	require.NotNil(t, last)
	require.Equal(t, StrategyReinforcement, last.Strategy)
	require.Equal(t, RiskLow, last.Risk)
}

func TestLowScoreProposesExpansion(t *testing.T) {
	e := newTestEngine()
	var m *Mutation
	for i := 0; i < 5; i++ {
		var err error
		m, err = e.Record("agent-2", Outcome{
			OK: false, Duration: 55 * time.Second,
			QualityScore: f64(0.1), UserSatisfaction: f64(0.1), ResourceUsage: f64(0.9),
		})
		require.NoError(t, err)
	}
	require.NotNil(t, m)
	require.Equal(t, StrategyExpansion, m.Strategy)
	require.Equal(t, RiskHigh, m.Risk)
}

func TestSampleRingBounded(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < 150; i++ {
		_, err := e.Record("agent-3", Outcome{OK: true, Duration: time.Second})
		require.NoError(t, err)
	}
	s := e.stats["agent-3"]
	require.Len(t, s.samples, sampleCapacity)
}

func TestPromptVersionBookkeeping(t *testing.T) {
	e := newTestEngine()
	m := &Mutation{AgentID: "agent-4", ProposedPrompt: "new prompt"}
	v := e.ApplyMutation(m)
	require.NotEmpty(t, v.VersionID)

	for i := 0; i < 4; i++ {
		require.NoError(t, e.UpdatePromptPerformance("agent-4", v.VersionID, true, 5*time.Second))
	}
	// usage_count < 5, so BestPromptVersion should fall back to "most recent".
	best := e.BestPromptVersion("agent-4")
	require.Equal(t, v.VersionID, best.VersionID)

	require.NoError(t, e.UpdatePromptPerformance("agent-4", v.VersionID, true, 5*time.Second))
	best = e.BestPromptVersion("agent-4")
	require.Equal(t, v.VersionID, best.VersionID)
	require.Equal(t, 5, v.UsageCount)
	require.InDelta(t, 1.0, v.SuccessRate, 0.001)
}

func TestUpdatePromptPerformanceUnknownVersion(t *testing.T) {
	e := newTestEngine()
	err := e.UpdatePromptPerformance("agent-5", "missing", true, time.Second)
	require.ErrorIs(t, err, ErrUnknownPromptVersion)
}
