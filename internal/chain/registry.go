package chain

import (
	"sync"

	linkerr "github.com/mrz1836/linkbridge/pkg/errors"
)

// Creator builds a strategy. It runs at most once per registry and family.
type Creator func() (Strategy, error)

// Registry maps families to lazily created, memoized strategies.
type Registry struct {
	mu        sync.Mutex
	creators  map[Family]Creator
	instances map[Family]Strategy
	order     []Family
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		creators:  make(map[Family]Creator),
		instances: make(map[Family]Strategy),
	}
}

// Register adds a strategy creator for the given family.
// Registering a family again replaces the creator and drops any built instance.
func (r *Registry) Register(family Family, creator Creator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.creators[family]; !exists {
		r.order = append(r.order, family)
	}
	r.creators[family] = creator
	delete(r.instances, family)
}

// Strategy returns the strategy for a family, creating it on first use.
func (r *Registry) Strategy(family Family) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.instances[family]; ok {
		return s, nil
	}

	creator, ok := r.creators[family]
	if !ok {
		return nil, linkerr.WithDetails(linkerr.ErrUnsupportedFamily, map[string]string{"family": family.String()})
	}

	s, err := creator()
	if err != nil {
		return nil, linkerr.Wrap(err, "create %s strategy", family)
	}
	r.instances[family] = s
	return s, nil
}

// IsSupported returns true if the family has a registered creator.
func (r *Registry) IsSupported(family Family) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.creators[family]
	return ok
}

// Families returns the registered families in registration order.
func (r *Registry) Families() []Family {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Family, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every registered strategy in registration order.
func (r *Registry) All() ([]Strategy, error) {
	families := r.Families()
	out := make([]Strategy, 0, len(families))
	for _, f := range families {
		s, err := r.Strategy(f)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Providers merges the provider lists of every registered family.
// Families whose strategy cannot be built are skipped.
func (r *Registry) Providers() []ProviderInfo {
	var out []ProviderInfo
	for _, f := range r.Families() {
		s, err := r.Strategy(f)
		if err != nil {
			continue
		}
		out = append(out, s.Providers()...)
	}
	if out == nil {
		out = []ProviderInfo{}
	}
	return out
}
