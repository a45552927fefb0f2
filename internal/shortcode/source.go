package shortcode

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"
)

// Source yields uniform integers in [0, n). Implementations must be safe for
// concurrent use when shared by a Generator.
type Source interface {
	IntN(n int) int
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// NewLockedSource wraps r so it can be shared between goroutines.
func NewLockedSource(r *rand.Rand) Source {
	return &lockedSource{r: r}
}

// NewSeededSource returns a deterministic source, meant for tests.
func NewSeededSource(seed uint64) Source {
	return NewLockedSource(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewCryptoSeededSource returns a ChaCha8 source seeded from crypto/rand.
func NewCryptoSeededSource() Source {
	var seed [32]byte
	// crypto/rand.Read never returns an error on supported platforms
	_, _ = crand.Read(seed[:])
	return NewLockedSource(rand.New(rand.NewChaCha8(seed)))
}
