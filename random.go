package tierledger

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource picks uniformly from [0, n). Implementations must be safe for
// concurrent use.
type RandomSource interface {
	IntN(n int) int
}

// cryptoSource feeds math/rand/v2 from the operating system's CSPRNG.
type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return rand.Uint64()
	}
	return binary.BigEndian.Uint64(buf[:])
}

type cryptoRandom struct{ r *rand.Rand }

func (c cryptoRandom) IntN(n int) int { return c.r.IntN(n) }

// DefaultRandom returns the crypto-backed source used when none is configured.
func DefaultRandom() RandomSource {
	return cryptoRandom{r: rand.New(cryptoSource{})}
}

type seededRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRandom returns a reproducible source for tests and simulations.
func NewSeededRandom(seed uint64) RandomSource {
	return &seededRandom{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRandom) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}
