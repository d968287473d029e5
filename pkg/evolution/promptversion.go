package evolution

import "time"

// PromptVersion tracks one prompt variant's running performance for an
// agent_id (spec §3).
type PromptVersion struct {
	VersionID        string
	TemplateText     string
	UsageCount       int
	SuccessRate      float64
	AvgTime          time.Duration
	PerformanceScore float64
	CreatedAt        time.Time
}

// minUsageForRanking is the usage_count threshold get_best_prompt_version
// requires before trusting a version's performance_score (spec §4.7).
const minUsageForRanking = 5

// updatePerformance folds one execution outcome into the version's running
// averages and recomputes performance_score = 0.7*success_rate +
// 0.3*(1 - min(avg_time/60, 1)) (spec §4.7).
func (p *PromptVersion) updatePerformance(ok bool, duration time.Duration) {
	n := p.UsageCount
	var okBit float64
	if ok {
		okBit = 1
	}
	p.SuccessRate = (p.SuccessRate*float64(n) + okBit) / float64(n+1)

	avgSeconds := (p.AvgTime.Seconds()*float64(n) + duration.Seconds()) / float64(n+1)
	p.AvgTime = time.Duration(avgSeconds * float64(time.Second))

	p.UsageCount = n + 1

	timeComponent := p.AvgTime.Seconds() / 60.0
	if timeComponent > 1 {
		timeComponent = 1
	}
	p.PerformanceScore = 0.7*p.SuccessRate + 0.3*(1-timeComponent)
}

// bestPromptVersion picks the best candidate from versions per
// get_best_prompt_version (spec §4.7): highest performance_score among
// versions with usage_count >= 5, else the most recently created.
func bestPromptVersion(versions []*PromptVersion) *PromptVersion {
	if len(versions) == 0 {
		return nil
	}
	var best *PromptVersion
	for _, v := range versions {
		if v.UsageCount < minUsageForRanking {
			continue
		}
		if best == nil || v.PerformanceScore > best.PerformanceScore {
			best = v
		}
	}
	if best != nil {
		return best
	}
	mostRecent := versions[0]
	for _, v := range versions {
		if v.CreatedAt.After(mostRecent.CreatedAt) {
			mostRecent = v
		}
	}
	return mostRecent
}
