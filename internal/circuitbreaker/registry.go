package circuitbreaker

import (
	"sync"
	"time"
)

// Registry hands out one breaker per dependency name.
type Registry struct {
	mutex     sync.RWMutex
	breakers  map[string]*CircuitBreaker
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[string]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// WithClock replaces the time source of breakers created afterwards.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.now = now
	return r
}

func (r *Registry) GetBreaker(dependency string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[dependency]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if cb, exists = r.breakers[dependency]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.timeout)
	cb.now = r.now
	r.breakers[dependency] = cb
	return cb
}

func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.State()
	}
	return stats
}
