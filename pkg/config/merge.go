package config

import "dario.cat/mergo"

// MergeConfig overlays overrides onto a copy of base and returns the result,
// used to build an AgentSpecification's effective_config from a template's
// default_config (spec §3). Override values win on conflict; nested maps are
// merged recursively.
func MergeConfig(base, overrides map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, overrides, mergo.WithOverride); err != nil {
		return nil, err
	}
	return merged, nil
}
