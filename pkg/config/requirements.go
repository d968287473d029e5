package config

import "log/slog"

// Flags carries the boolean requirement toggles of a Requirements record.
type Flags struct {
	HasAuth          bool `yaml:"has_auth" json:"has_auth"`
	HasDatabase      bool `yaml:"has_database" json:"has_database"`
	HasRealtime      bool `yaml:"has_realtime" json:"has_realtime"`
	HasDeployment    bool `yaml:"has_deployment" json:"has_deployment"`
	HasTesting       bool `yaml:"has_testing" json:"has_testing"`
	HasDocumentation bool `yaml:"has_documentation" json:"has_documentation"`
}

// Requirements is the typed record produced by an Analyzer collaborator and
// consumed by the Pool Maker (spec §3).
type Requirements struct {
	ProjectType  ProjectType  `yaml:"project_type" json:"project_type"`
	Technologies []Technology `yaml:"technologies" json:"technologies"`
	Features     []string     `yaml:"features" json:"features"`
	Complexity   Complexity   `yaml:"complexity" json:"complexity"`
	Flags        Flags        `yaml:"flags" json:"flags"`
}

// ApplyDefaults fills unset scalar fields and enforces the cross-field
// invariants of spec §3. It logs each warning at Warn level when logger is
// non-nil and also returns the warnings. It
// never fails — the analyze path must accept partial/missing input.
//
// Flag defaulting (has_testing/has_documentation default true) is the
// analyzer's responsibility, applied before free-form text is parsed, since
// a zero-value bool cannot be distinguished from an explicit false here.
func (r *Requirements) ApplyDefaults(logger *slog.Logger) []string {
	var warnings []string
	if r.ProjectType == "" {
		r.ProjectType = ProjectWebApp
	} else if !r.ProjectType.valid() {
		warnings = append(warnings, "unrecognized project_type, defaulting to web_app")
		r.ProjectType = ProjectWebApp
	}
	if r.Complexity == "" {
		r.Complexity = ComplexityMedium
	} else if !r.Complexity.valid() {
		warnings = append(warnings, "unrecognized complexity, defaulting to medium")
		r.Complexity = ComplexityMedium
	}

	var kept []Technology
	for _, t := range r.Technologies {
		if _, ok := knownTechnologies[t]; !ok {
			warnings = append(warnings, "unrecognized technology tag: "+string(t))
			continue
		}
		kept = append(kept, t)
	}
	r.Technologies = kept

	r.enforceInvariants(&warnings)

	for _, w := range warnings {
		if logger != nil {
			logger.Warn("requirements defaulting", "warning", w)
		}
	}
	return warnings
}

func (r *Requirements) enforceInvariants(warnings *[]string) {
	if r.Flags.HasDeployment && !r.hasTech(TechDocker) {
		r.Technologies = append(r.Technologies, TechDocker)
	}
	if r.ProjectType == ProjectWebApp {
		hasFrontend := r.hasTech(TechReact) || r.hasTech(TechVue) || r.hasTech(TechAngular)
		hasBackend := r.hasTech(TechPythonFastAPI) || r.hasTech(TechPythonDjango) ||
			r.hasTech(TechNodeExpress) || r.hasTech(TechGo)
		if hasFrontend && !hasBackend {
			r.Complexity = ComplexitySimple
			*warnings = append(*warnings, "frontend technology present without a backend; complexity downgraded to simple")
		}
	}
}

func (r *Requirements) hasTech(t Technology) bool {
	for _, x := range r.Technologies {
		if x == t {
			return true
		}
	}
	return false
}
