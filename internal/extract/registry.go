package extract

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/model"
)

// Registry maps chains to their extractors.
type Registry struct {
	extractors map[model.Chain]Extractor
	order      []model.Chain // registration order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[model.Chain]Extractor)}
}

// Register adds an extractor, replacing any earlier one for the same chain.
func (r *Registry) Register(e Extractor) {
	c := e.Chain()
	if _, ok := r.extractors[c]; !ok {
		r.order = append(r.order, c)
	}
	r.extractors[c] = e
}

// Get returns the extractor for a chain name such as "oba".
func (r *Registry) Get(name string) (Extractor, error) {
	c, err := model.ParseChain(name)
	if err != nil {
		return nil, eris.Errorf("extract: unknown source %q", name)
	}
	e, ok := r.extractors[c]
	if !ok {
		return nil, eris.Errorf("extract: unknown source %q", name)
	}
	return e, nil
}

// Select returns the named extractors, or all of them when names is empty
// or contains "all".
func (r *Registry) Select(names []string) ([]Extractor, error) {
	for _, n := range names {
		if strings.EqualFold(n, "all") {
			return r.All(), nil
		}
	}
	if len(names) == 0 {
		return r.All(), nil
	}
	out := make([]Extractor, 0, len(names))
	for _, n := range names {
		e, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// All returns every extractor in registration order.
func (r *Registry) All() []Extractor {
	out := make([]Extractor, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, r.extractors[c])
	}
	return out
}

// Chains returns the registered chains in registration order.
func (r *Registry) Chains() []model.Chain {
	out := make([]model.Chain, len(r.order))
	copy(out, r.order)
	return out
}
