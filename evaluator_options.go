package sysconf

// engineConfig is what every rule engine shares: a cache for compiled
// programs and the functions reachable through call(name, args...).
type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

func (c *engineConfig) useRegistry(registry *FunctionRegistry) {
	if registry != nil {
		c.registry = registry.Clone()
	}
}

// JSEvaluatorOption configures the goja rule engine. Options are accepted in
// every build so callers compile with or without the js_eval tag.
type JSEvaluatorOption func(*engineConfig)

// JSWithProgramCache shares compiled JS programs through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *engineConfig) { cfg.cache = cache }
}

// JSWithFunctionRegistry exposes a copy of registry to JS rules.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *engineConfig) { cfg.useRegistry(registry) }
}

func applyJSEvaluatorOptions(opts []JSEvaluatorOption) engineConfig {
	var cfg engineConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
