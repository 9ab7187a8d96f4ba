package common

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer throttles outbound requests per host so a burst of query variants
// never hammers one index.
type Pacer struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewPacer(rps float64, burst int) *Pacer {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 2
	}
	return &Pacer{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until the host's limiter grants a slot or ctx is done.
func (p *Pacer) Wait(ctx context.Context, host string) error {
	p.mu.Lock()
	limiter, ok := p.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(p.rps, p.burst)
		p.limiters[host] = limiter
	}
	p.mu.Unlock()
	return limiter.Wait(ctx)
}
