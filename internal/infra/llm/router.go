package llm

import "fmt"

// Registration describes one provider the router can serve: how to build an
// adapter instance and which models it resolves.
type Registration struct {
	// Default is the model used when the request names none.
	Default string
	// Models is the set of model names this provider accepts. The default
	// model is always accepted, listed or not.
	Models []string
	// New constructs the adapter for one request.
	New ProviderFactory
}

// Router selects a provider registration per request. Registrations are
// read-only after construction, so concurrent requests share the router
// without locking.
type Router struct {
	regs            map[string]Registration
	defaultProvider string
}

// Resolution is the outcome of routing one request: the resolved provider
// key, the resolved model, and the factory to build the adapter.
type Resolution struct {
	Provider string
	Model    string
	New      ProviderFactory
}

// NewRouter creates a Router with an initial set of registrations and a
// default provider key.
func NewRouter(regs map[string]Registration, defaultProvider string) *Router {
	// defensive copy so the caller cannot mutate the internal map.
	rs := make(map[string]Registration, len(regs))
	for k, v := range regs {
		rs[k] = v
	}
	return &Router{regs: rs, defaultProvider: defaultProvider}
}

// Register adds (or replaces) a registration under the given key.
func (r *Router) Register(key string, reg Registration) {
	r.regs[key] = reg
}

// Resolve maps a requested provider name (empty means the default) and model
// (empty means the provider default) to a Resolution. Unknown names fail with
// *ValidationError before any adapter is constructed.
func (r *Router) Resolve(provider, model string) (Resolution, error) {
	if provider == "" {
		provider = r.defaultProvider
	}
	reg, ok := r.regs[provider]
	if !ok {
		return Resolution{}, &ValidationError{Message: fmt.Sprintf("Unknown provider: %s", provider)}
	}
	if model == "" {
		model = reg.Default
	} else if !reg.accepts(model) {
		return Resolution{}, &ValidationError{Message: fmt.Sprintf("Unknown model: %s", model)}
	}
	return Resolution{Provider: provider, Model: model, New: reg.New}, nil
}

func (reg Registration) accepts(model string) bool {
	if model == reg.Default {
		return true
	}
	for _, m := range reg.Models {
		if m == model {
			return true
		}
	}
	return false
}
