package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-replay/pkg/errors"
)

// Factory builds a fresh strategy instance named name from its parameter set.
type Factory func(name string, params Params) (Strategy, error)

// Registry maps strategy type names to factories.
type Registry interface {
	Register(strategyType string, factory Factory) error
	New(strategyType, name string, params Params) (Strategy, error)
	List() []string
}

// RegistryV1 is the mutex guarded Registry implementation.
type RegistryV1 struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *RegistryV1 {
	return &RegistryV1{
		factories: make(map[string]Factory),
		mu:        sync.RWMutex{},
	}
}

// DefaultRegistry creates a registry holding the built-in strategies.
func DefaultRegistry() *RegistryV1 {
	registry := NewRegistry()

	for strategyType, factory := range map[string]Factory{
		TypeSMACrossover:    NewSMACrossover,
		TypeBuyAndHold:      NewBuyAndHold,
		TypeBasketRebalance: NewBasketRebalance,
	} {
		// names are distinct, registration cannot fail
		_ = registry.Register(strategyType, factory)
	}

	return registry
}

// Register adds a factory. Registering a type twice is an error.
func (r *RegistryV1) Register(strategyType string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strategyType == "" || factory == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy type and factory are required")
	}

	if _, exists := r.factories[strategyType]; exists {
		return errors.Newf(errors.ErrCodeDuplicateStrategy, "strategy type %s already registered", strategyType)
	}

	r.factories[strategyType] = factory

	return nil
}

// New builds a strategy of strategyType. The params are cloned so instances never share state.
func (r *RegistryV1) New(strategyType, name string, params Params) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[strategyType]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "strategy type %s not found", strategyType)
	}

	s, err := factory(name, params.Clone())
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to create strategy %s of type %s", name, strategyType)
	}

	return s, nil
}

// List returns the registered types in order.
func (r *RegistryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
