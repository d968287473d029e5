// Package analyzer provides the default heuristic Analyzer collaborator of
// spec §6: free-form text in, a best-effort Requirements record out. Real
// natural-language understanding is explicitly out of core scope (spec §1);
// this implementation is a keyword-matching stand-in good enough to satisfy
// the documented end-to-end scenarios, swappable for an LLM-backed Analyzer
// without changing the Pool Maker's contract.
package analyzer

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/brindle-systems/swarm/pkg/config"
)

// Analyzer turns free-form text into a Requirements record.
type Analyzer interface {
	AnalyzeRequirements(ctx context.Context, userText string, hints map[string]interface{}) (*config.Requirements, error)
}

// Heuristic is the default keyword-based Analyzer.
type Heuristic struct {
	logger *slog.Logger
}

// New constructs a Heuristic analyzer.
func New(logger *slog.Logger) *Heuristic {
	return &Heuristic{logger: logger}
}

type keywordMap struct {
	tech     config.Technology
	keywords []string
}

var techKeywords = []keywordMap{
	{config.TechReact, []string{"react"}},
	{config.TechVue, []string{"vue"}},
	{config.TechAngular, []string{"angular"}},
	{config.TechPythonFastAPI, []string{"fastapi"}},
	{config.TechPythonDjango, []string{"django"}},
	{config.TechNodeExpress, []string{"express", "node.js", "nodejs"}},
	{config.TechGo, []string{"golang"}},
	{config.TechDatabasePostgre, []string{"postgres", "postgresql"}},
	{config.TechDatabaseMySQL, []string{"mysql"}},
	{config.TechDatabaseMongo, []string{"mongo", "mongodb"}},
	{config.TechKubernetes, []string{"kubernetes", "k8s"}},
}

var frontendTechs = map[config.Technology]bool{
	config.TechReact: true, config.TechVue: true, config.TechAngular: true,
}

var backendTechs = map[config.Technology]bool{
	config.TechPythonFastAPI: true, config.TechPythonDjango: true,
	config.TechNodeExpress: true, config.TechGo: true,
}

// AnalyzeRequirements never fails on free-form text — it returns a
// best-effort Requirements record and logs anything it could not place
// (spec §4.2).
func (h *Heuristic) AnalyzeRequirements(ctx context.Context, userText string, hints map[string]interface{}) (*config.Requirements, error) {
	text := strings.ToLower(userText)

	req := &config.Requirements{
		Flags: config.Flags{HasTesting: true, HasDocumentation: true},
	}

	switch {
	case containsAny(text, "documentation", "docs"):
		req.ProjectType = config.ProjectDocumentation
	case containsAny(text, "microservice", "microservices"):
		req.ProjectType = config.ProjectMicroservice
	case containsAny(text, "cli", "command line", "command-line"):
		req.ProjectType = config.ProjectCLI
	case containsAny(text, "mobile", "ios app", "android app"):
		req.ProjectType = config.ProjectMobile
	case containsAny(text, "data pipeline", "etl"):
		req.ProjectType = config.ProjectDataPipeline
	case containsAny(text, "machine learning", " ml ", "ml model"):
		req.ProjectType = config.ProjectML
	}

	techSeen := make(map[config.Technology]bool)
	for _, km := range techKeywords {
		if containsAny(text, km.keywords...) {
			techSeen[km.tech] = true
		}
	}

	if containsAny(text, "auth", "authentication", "login") {
		req.Flags.HasAuth = true
	}
	if containsAny(text, "realtime", "real-time", "websocket", "live updates") {
		req.Flags.HasRealtime = true
	}
	if containsAny(text, "deploy", "deployment", "docker", "containerize") {
		req.Flags.HasDeployment = true
		techSeen[config.TechDocker] = true
	}
	if hasAnyBackend(techSeen) || hasAnyDatabase(techSeen) || req.Flags.HasAuth {
		req.Flags.HasDatabase = true
	}
	if containsAny(text, "no tests", "without tests", "skip testing") {
		req.Flags.HasTesting = false
	}
	if containsAny(text, "no documentation", "without documentation") {
		req.Flags.HasDocumentation = false
	}

	// A generic web-app request (no project type matched above) with no
	// explicit framework is assumed to need a default full-stack pair, so
	// that any frontend/backend-touching phase has something to run: the
	// invariant in spec §3 requires a backend whenever a frontend is
	// present, and the common case ("build a site/app") implies both.
	if req.ProjectType == "" {
		req.ProjectType = config.ProjectWebApp
		if !hasAnyBackend(techSeen) && !hasAnyFrontend(techSeen) {
			techSeen[config.TechPythonFastAPI] = true
			techSeen[config.TechReact] = true
		}
	}

	for t := range techSeen {
		req.Technologies = append(req.Technologies, t)
	}
	sort.Slice(req.Technologies, func(i, j int) bool { return req.Technologies[i] < req.Technologies[j] })

	req.ApplyDefaults(h.logger)
	return req, nil
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func hasAnyBackend(seen map[config.Technology]bool) bool {
	for t := range backendTechs {
		if seen[t] {
			return true
		}
	}
	return false
}

func hasAnyFrontend(seen map[config.Technology]bool) bool {
	for t := range frontendTechs {
		if seen[t] {
			return true
		}
	}
	return false
}

func hasAnyDatabase(seen map[config.Technology]bool) bool {
	return seen[config.TechDatabasePostgre] || seen[config.TechDatabaseMySQL] || seen[config.TechDatabaseMongo]
}
