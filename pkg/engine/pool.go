package engine

import (
	"math/rand"
	"sync"

	"github.com/farmaciaslf/medisync/pkg/constants"
)

// pool tracks the adaptive concurrency of the creation phase. Every failure
// shrinks the pool by one toward the floor; every success grows it by one
// toward the ceiling with small probability, so the pool backs off quickly
// under pressure and recovers slowly.
type pool struct {
	mu     sync.Mutex
	size   int
	min    int
	max    int
	random func() float64
}

// newPool creates a pool at baseline within [min, max]. A nil random source
// defaults to the global one.
func newPool(min, baseline, max int, random func() float64) *pool {
	if random == nil {
		random = rand.Float64
	}
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	if baseline < min {
		baseline = min
	}
	if baseline > max {
		baseline = max
	}
	return &pool{size: baseline, min: min, max: max, random: random}
}

// Size returns the current pool size.
func (p *pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// Observe adjusts the pool after one item completes. It returns the new size
// and whether it changed.
func (p *pool) Observe(failed bool) (size int, changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.size
	if failed {
		if p.size > p.min {
			p.size--
		}
	} else if p.size < p.max && p.random() < constants.GrowProbability {
		p.size++
	}
	return p.size, p.size != before
}
