package pricing

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Random draws uniformly distributed integers in [0, n).
type Random interface {
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a goroutine-safe Random seeded with seed. The same seed
// always yields the same sequence.
func NewRandom(seed uint64) Random {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeededRandom seeds a Random from the wall clock.
func NewTimeSeededRandom() Random {
	return NewRandom(uint64(time.Now().UnixNano()))
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
