package ai

// Registry maps provider codes to backends. Lookups for unknown or
// empty codes return the default provider, normally a fallback chain.
type Registry struct {
	fallback Provider
	byName   map[string]Provider
}

func NewRegistry(fallback Provider) *Registry {
	return &Registry{
		fallback: fallback,
		byName:   make(map[string]Provider),
	}
}

func (r *Registry) Register(p Provider) {
	r.byName[p.Name()] = p
}

func (r *Registry) Get(name string) Provider {
	if p, ok := r.byName[name]; ok {
		return p
	}
	return r.fallback
}

func (r *Registry) Default() Provider {
	return r.fallback
}
