package recommend

import "sync"

// generationGuard tracks a per-tenant generation counter so a slow LLM call
// that completes after a newer generation (or an invalidation) started is
// discarded instead of overwriting the cache out of order.
type generationGuard struct {
	mu   sync.Mutex
	gens map[string]uint64
}

func newGenerationGuard() *generationGuard {
	return &generationGuard{gens: make(map[string]uint64)}
}

// begin marks the start of a new generation for the tenant and returns its
// token. Any earlier in-flight generation is superseded from this point on.
func (g *generationGuard) begin(tenant string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gens[tenant]++
	return g.gens[tenant]
}

// stillCurrent reports whether the generation token is the latest one.
func (g *generationGuard) stillCurrent(tenant string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gens[tenant] == gen
}

// supersede invalidates every in-flight generation for the tenant.
func (g *generationGuard) supersede(tenant string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gens[tenant]++
}
