// Package evolution implements the Evolution Engine of spec §4.7: rolling
// per-worker performance scoring and mutation proposals.
package evolution

import "time"

// sampleCapacity bounds each agent's PerformanceSample ring to the last 100
// executions (spec §3, §4.7).
const sampleCapacity = 100

// emaAlpha is the smoothing factor for avg_response_time and error_rate.
const emaAlpha = 0.1

// Outcome is what a caller reports to Record after one Worker.Execute call.
// QualityScore, UserSatisfaction, and ResourceUsage are optional externally
// supplied signals (spec §4.7: "default to derived approximations when not
// supplied"); pass nil to let the engine derive them.
type Outcome struct {
	OK               bool
	Duration         time.Duration
	QualityScore     *float64
	UserSatisfaction *float64
	ResourceUsage    *float64
}

// PerformanceSample is one ring entry recorded for an agent_id.
type PerformanceSample struct {
	Timestamp        time.Time
	OK               bool
	Duration         time.Duration
	QualityScore     float64
	UserSatisfaction float64
	ResourceUsage    float64
}

func deriveQualityScore(o Outcome, completionRate float64) float64 {
	if o.QualityScore != nil {
		return *o.QualityScore
	}
	return completionRate
}

func deriveUserSatisfaction(o Outcome) float64 {
	if o.UserSatisfaction != nil {
		return *o.UserSatisfaction
	}
	if o.OK {
		return 1.0
	}
	return 0.3
}

func deriveResourceUsage(o Outcome) float64 {
	if o.ResourceUsage != nil {
		return *o.ResourceUsage
	}
	// Normalize elapsed time against the same 60s horizon used for speed.
	u := o.Duration.Seconds() / 60.0
	if u > 1 {
		u = 1
	}
	if u < 0 {
		u = 0
	}
	return u
}
