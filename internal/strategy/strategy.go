// Package strategy defines the Strategy contract for signal generation and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"sort"

	"pvbt/internal/domain"
)

// Strategy is the single capability the engine couples to: a pure function
// from a native bar series to a signal series. Implementations must report
// each signal's ready time explicitly, reflecting when that decision
// genuinely became knowable, and may omit signals for warm-up rows.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// GenerateSignals produces at most one signal per native bar. The input
	// is borrowed read-only and must not be mutated.
	GenerateSignals(bars []domain.Bar) ([]domain.Signal, error)
}

// Registry holds a named collection of strategies for lookup and
// enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates
// whether the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
