package evolution

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brindle-systems/swarm/pkg/clock"
)

// agentStats is one agent_id's rolling performance state.
type agentStats struct {
	samples         []PerformanceSample
	avgResponseTime float64 // EMA, seconds
	errorRate       float64 // EMA
	versions        []*PromptVersion
}

func (s *agentStats) completionRate() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	okCount := 0
	for _, sm := range s.samples {
		if sm.OK {
			okCount++
		}
	}
	return float64(okCount) / float64(len(s.samples))
}

func (s *agentStats) pushSample(sm PerformanceSample) {
	s.samples = append(s.samples, sm)
	if len(s.samples) > sampleCapacity {
		s.samples = s.samples[len(s.samples)-sampleCapacity:]
	}
}

// Engine is the Evolution Engine of spec §4.7.
type Engine struct {
	clk    clock.Clock
	idgen  clock.IDGen
	logger *slog.Logger

	mu    sync.Mutex
	stats map[string]*agentStats
}

// New constructs an Engine.
func New(clk clock.Clock, idgen clock.IDGen, logger *slog.Logger) *Engine {
	return &Engine{
		clk:    clk,
		idgen:  idgen,
		logger: logger,
		stats:  make(map[string]*agentStats),
	}
}

func (e *Engine) statsFor(agentID string) *agentStats {
	s, ok := e.stats[agentID]
	if !ok {
		s = &agentStats{}
		e.stats[agentID] = s
	}
	return s
}

// Record appends one execution outcome to agentID's rolling history, updates
// its EMA-smoothed response time and error rate, and returns a proposed
// Mutation when the resulting overall_score crosses a bucket threshold
// (spec §4.7). A nil Mutation with a nil error means the worker is healthy.
func (e *Engine) Record(agentID string, o Outcome) (*Mutation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.statsFor(agentID)
	completion := s.completionRate()

	sample := PerformanceSample{
		Timestamp:        e.clk.Now(),
		OK:               o.OK,
		Duration:         o.Duration,
		QualityScore:     deriveQualityScore(o, completion),
		UserSatisfaction: deriveUserSatisfaction(o),
		ResourceUsage:    deriveResourceUsage(o),
	}
	s.pushSample(sample)

	var errBit float64
	if !o.OK {
		errBit = 1
	}
	if len(s.samples) == 1 {
		s.avgResponseTime = o.Duration.Seconds()
		s.errorRate = errBit
	} else {
		s.avgResponseTime = emaAlpha*o.Duration.Seconds() + (1-emaAlpha)*s.avgResponseTime
		s.errorRate = emaAlpha*errBit + (1-emaAlpha)*s.errorRate
	}

	score := e.overallScore(s)
	e.logger.Info("evolution recorded outcome", "agent_id", agentID, "ok", o.OK, "score", score, "error_rate", s.errorRate)

	strategy, propose := selectStrategy(score, s.errorRate)
	if !propose {
		return nil, nil
	}

	m := &Mutation{
		AgentID:             agentID,
		Strategy:            strategy,
		ExpectedImprovement: 1 - score,
		Risk:                riskFor(strategy),
	}
	e.logger.Warn("evolution proposing mutation", "agent_id", agentID, "strategy", strategy, "score", score)
	return m, nil
}

// overallScore computes spec §4.7's weighted score from an agent's current
// rolling stats. Caller must hold e.mu.
func (e *Engine) overallScore(s *agentStats) float64 {
	if len(s.samples) == 0 {
		return 1
	}
	last := s.samples[len(s.samples)-1]
	speed := 1 - s.avgResponseTime/60.0
	if speed < 0 {
		speed = 0
	}
	completion := s.completionRate()
	return 0.30*completion + 0.25*last.QualityScore + 0.15*speed +
		0.20*last.UserSatisfaction + 0.10*(1-last.ResourceUsage)
}

// Score returns the current overall_score for agentID (for inspection /
// tests); 1.0 for an agent with no recorded samples.
func (e *Engine) Score(agentID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.stats[agentID]
	if !ok {
		return 1
	}
	return e.overallScore(s)
}

// ErrorRate returns agentID's current EMA-smoothed error rate.
func (e *Engine) ErrorRate(agentID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.stats[agentID]
	if !ok {
		return 0
	}
	return s.errorRate
}

// ApplyMutation records that m was applied, creating a new PromptVersion for
// agentID seeded from proposedPrompt.
func (e *Engine) ApplyMutation(m *Mutation) *PromptVersion {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.statsFor(m.AgentID)
	v := &PromptVersion{
		VersionID:    e.idgen.NewID(),
		TemplateText: m.ProposedPrompt,
		CreatedAt:    e.clk.Now(),
	}
	s.versions = append(s.versions, v)
	return v
}

// UpdatePromptPerformance folds one execution's (ok, duration) outcome into
// versionID's running averages (spec §4.7 update_prompt_performance).
func (e *Engine) UpdatePromptPerformance(agentID, versionID string, ok bool, duration time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.statsFor(agentID)
	for _, v := range s.versions {
		if v.VersionID == versionID {
			v.updatePerformance(ok, duration)
			return nil
		}
	}
	return fmt.Errorf("%w: agent=%s version=%s", ErrUnknownPromptVersion, agentID, versionID)
}

// BestPromptVersion returns agentID's best PromptVersion per
// get_best_prompt_version (spec §4.7), or nil if none exist.
func (e *Engine) BestPromptVersion(agentID string) *PromptVersion {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.stats[agentID]
	if !ok {
		return nil
	}
	return bestPromptVersion(s.versions)
}
