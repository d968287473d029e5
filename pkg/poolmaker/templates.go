package poolmaker

import (
	"sort"

	"github.com/brindle-systems/swarm/pkg/config"
)

// group classifies a template_id for dependency wiring and execution-plan
// bucketing (spec §4.2 step 2, §4.2.1). These groupings are static and
// correspond to the builtin template set (config.BuiltinTemplates); an
// operator-registered template with an unrecognized id is treated as
// "other": it depends only on the writer, nothing depends on it, and no
// execution-plan phase includes it.
type group string

const (
	groupBackend  group = "backend"
	groupFrontend group = "frontend"
	groupDatabase group = "database"
	groupDevops   group = "devops"
	groupQA       group = "qa"
	groupWriter   group = "writer"
	groupOther    group = "other"
)

var templateGroups = map[string]group{
	"python_backend":    groupBackend,
	"node_backend":      groupBackend,
	"go_backend":        groupBackend,
	"react_frontend":    groupFrontend,
	"vue_frontend":      groupFrontend,
	"angular_frontend":  groupFrontend,
	"database_postgres": groupDatabase,
	"database_mysql":    groupDatabase,
	"database_mongo":    groupDatabase,
	"devops_engineer":   groupDevops,
	"qa_engineer":       groupQA,
	"technical_writer":  groupWriter,
}

func groupOf(templateID string) group {
	if g, ok := templateGroups[templateID]; ok {
		return g
	}
	return groupOther
}

// techTemplates is the static technology -> template_id table spec §4.2
// requires DetermineRequiredTemplates to use.
var techTemplates = map[config.Technology][]string{
	config.TechPythonFastAPI:   {"python_backend"},
	config.TechPythonDjango:    {"python_backend"},
	config.TechNodeExpress:     {"node_backend"},
	config.TechGo:              {"go_backend"},
	config.TechReact:           {"react_frontend"},
	config.TechVue:             {"vue_frontend"},
	config.TechAngular:         {"angular_frontend"},
	config.TechDatabasePostgre: {"database_postgres"},
	config.TechDatabaseMySQL:   {"database_mysql"},
	config.TechDatabaseMongo:   {"database_mongo"},
}

// DetermineRequiredTemplates is a pure function mapping Requirements to the
// set of template_ids the pool needs (spec §4.2). Order of the returned
// slice is deterministic (lexicographic) but otherwise irrelevant.
func DetermineRequiredTemplates(req *config.Requirements) []string {
	set := make(map[string]bool)
	for _, t := range req.Technologies {
		for _, tmpl := range techTemplates[t] {
			set[tmpl] = true
		}
	}
	set["technical_writer"] = true
	if req.Flags.HasTesting {
		set["qa_engineer"] = true
	}
	if req.Flags.HasDeployment {
		set["devops_engineer"] = true
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
