package healing

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"mend/pkg/logging"
)

// strategyKey identifies one registration. Versions are stored in canonical
// semver form so "1.2" and "1.2.0" collide as intended.
type strategyKey struct {
	name    string
	version string
}

// registration holds a registered strategy together with its parsed version
// and the capabilities resolved once at registration time.
type registration struct {
	strategy Strategy
	version  *semver.Version
	// lifecycle is non-nil only when the strategy implements Lifecycle.
	lifecycle Lifecycle
}

// Registry holds registered healing strategies indexed by the failure types
// they declare support for. Registration order is preserved within each type
// bucket because it encodes the candidate order the coordinator tries.
//
// The registry is read-mostly after startup but supports runtime
// registration, so all access goes through the RWMutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[strategyKey]*registration
	buckets map[FailureType][]*registration
	order   []*registration
}

// RegistryStatistics summarizes registry contents for administrative output.
type RegistryStatistics struct {
	TotalStrategies int                 `json:"totalStrategies"`
	ByFailureType   map[FailureType]int `json:"byFailureType"`
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[strategyKey]*registration),
		buckets: make(map[FailureType][]*registration),
	}
}

// Register stores a strategy and indexes it under each of its supported
// failure types. A duplicate (name, version) pair is logged and ignored so a
// double-registered plugin cannot shadow the original. The strategy's
// version must parse as semver and its supported type set must be non-empty.
func (r *Registry) Register(s Strategy) error {
	if s == nil {
		return fmt.Errorf("cannot register nil strategy")
	}
	version, err := semver.NewVersion(s.Version())
	if err != nil {
		return fmt.Errorf("strategy %q has invalid version %q: %w", s.Name(), s.Version(), err)
	}
	supported := s.SupportedFailureTypes()
	if len(supported) == 0 {
		return fmt.Errorf("strategy %q declares no supported failure types", s.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strategyKey{name: s.Name(), version: version.String()}
	if _, exists := r.entries[key]; exists {
		logging.Warn("Registry", "Ignoring duplicate registration of strategy %s@%s", key.name, key.version)
		return nil
	}

	reg := &registration{strategy: s, version: version}
	if lc, ok := s.(Lifecycle); ok {
		reg.lifecycle = lc
	}

	r.entries[key] = reg
	r.order = append(r.order, reg)
	seen := make(map[FailureType]bool, len(supported))
	for _, ft := range supported {
		if seen[ft] {
			continue
		}
		seen[ft] = true
		r.buckets[ft] = append(r.buckets[ft], reg)
	}

	logging.Debug("Registry", "Registered strategy %s@%s for %d failure types (lifecycle=%v)",
		key.name, key.version, len(seen), reg.lifecycle != nil)
	return nil
}

// Unregister removes all registered versions of the named strategy and
// returns how many registrations were removed. Removed registrations that
// implement Lifecycle are shut down so state like the selector alias map is
// persisted; shutdown errors are logged and do not stop the removal.
func (r *Registry) Unregister(ctx context.Context, name string) int {
	r.mu.Lock()
	var removed []*registration
	for key, reg := range r.entries {
		if key.name == name {
			delete(r.entries, key)
			removed = append(removed, reg)
		}
	}
	if len(removed) > 0 {
		keep := func(reg *registration) bool { return reg.strategy.Name() != name }
		r.order = filterRegistrations(r.order, keep)
		for ft, bucket := range r.buckets {
			r.buckets[ft] = filterRegistrations(bucket, keep)
		}
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return 0
	}

	for _, reg := range removed {
		if reg.lifecycle == nil {
			continue
		}
		if err := reg.lifecycle.Shutdown(ctx); err != nil {
			logging.Error("Registry", err, "Strategy %q shutdown failed on unregister", reg.strategy.Name())
		}
	}

	logging.Debug("Registry", "Unregistered strategy %s (%d registrations)", name, len(removed))
	return len(removed)
}

func filterRegistrations(regs []*registration, keep func(*registration) bool) []*registration {
	out := regs[:0]
	for _, reg := range regs {
		if keep(reg) {
			out = append(out, reg)
		}
	}
	return out
}

// CandidatesFor returns the strategies eligible to heal the given failure
// type, in the order the coordinator should try them:
//
//  1. Among multiple registered versions of the same name, only the highest
//     version is a candidate; it keeps the name's earliest bucket position.
//  2. When the context restricts AvailableStrategies, everything else is
//     filtered out.
//  3. Strategies named in UserPreferences.PreferredStrategies move to the
//     front in preference order; the rest keep registration order behind
//     them. Preferred names that match nothing are logged and ignored.
func (r *Registry) CandidatesFor(failureType FailureType, hctx Context) []Strategy {
	r.mu.RLock()
	bucket := make([]*registration, len(r.buckets[failureType]))
	copy(bucket, r.buckets[failureType])
	r.mu.RUnlock()

	// Highest version wins per name, at the name's first position.
	byName := make(map[string]*registration, len(bucket))
	var names []string
	for _, reg := range bucket {
		name := reg.strategy.Name()
		current, seen := byName[name]
		if !seen {
			byName[name] = reg
			names = append(names, name)
			continue
		}
		if reg.version.GreaterThan(current.version) {
			byName[name] = reg
		}
	}

	if len(hctx.AvailableStrategies) > 0 {
		available := make(map[string]bool, len(hctx.AvailableStrategies))
		for _, name := range hctx.AvailableStrategies {
			available[name] = true
		}
		filtered := names[:0]
		for _, name := range names {
			if available[name] {
				filtered = append(filtered, name)
			}
		}
		names = filtered
	}

	ordered := make([]string, 0, len(names))
	remaining := make(map[string]bool, len(names))
	for _, name := range names {
		remaining[name] = true
	}
	for _, preferred := range hctx.UserPreferences.PreferredStrategies {
		if remaining[preferred] {
			ordered = append(ordered, preferred)
			delete(remaining, preferred)
		} else if _, registered := byName[preferred]; !registered {
			logging.Warn("Registry", "Preferred strategy %q is not registered for failure type %s", preferred, failureType)
		}
	}
	for _, name := range names {
		if remaining[name] {
			ordered = append(ordered, name)
		}
	}

	candidates := make([]Strategy, 0, len(ordered))
	for _, name := range ordered {
		candidates = append(candidates, byName[name].strategy)
	}
	return candidates
}

// InitializeAll calls Initialize on every registered strategy that
// implements Lifecycle, in registration order. The first error aborts.
func (r *Registry) InitializeAll(ctx context.Context) error {
	r.mu.RLock()
	order := make([]*registration, len(r.order))
	copy(order, r.order)
	r.mu.RUnlock()

	for _, reg := range order {
		if reg.lifecycle == nil {
			continue
		}
		if err := reg.lifecycle.Initialize(ctx); err != nil {
			return fmt.Errorf("initializing strategy %q: %w", reg.strategy.Name(), err)
		}
	}
	return nil
}

// ShutdownAll calls Shutdown on every Lifecycle strategy in reverse
// registration order. Errors are logged and do not stop the teardown.
func (r *Registry) ShutdownAll(ctx context.Context) {
	r.mu.RLock()
	order := make([]*registration, len(r.order))
	copy(order, r.order)
	r.mu.RUnlock()

	for i := len(order) - 1; i >= 0; i-- {
		reg := order[i]
		if reg.lifecycle == nil {
			continue
		}
		if err := reg.lifecycle.Shutdown(ctx); err != nil {
			logging.Error("Registry", err, "Strategy %q shutdown failed", reg.strategy.Name())
		}
	}
}

// Strategies returns all registered strategies in registration order.
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(r.order))
	for _, reg := range r.order {
		out = append(out, reg.strategy)
	}
	return out
}

// Statistics returns counts of registered strategies.
func (r *Registry) Statistics() RegistryStatistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStatistics{
		TotalStrategies: len(r.entries),
		ByFailureType:   make(map[FailureType]int, len(r.buckets)),
	}
	for ft, bucket := range r.buckets {
		stats.ByFailureType[ft] = len(bucket)
	}
	return stats
}
