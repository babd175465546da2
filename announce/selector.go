package announce

import (
	"math/rand/v2"
	"sync"

	"github.com/nvr-ai/go-sightline/detection"
)

// Selector picks one template out of a pool of n for a detection at the given level.
// Implementations must return a value in [0, n).
type Selector interface {
	Select(level detection.ConfidenceLevel, n int) int
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(level detection.ConfidenceLevel, n int) int

// Select implements Selector.
func (f SelectorFunc) Select(level detection.ConfidenceLevel, n int) int {
	return f(level, n)
}

// FirstSelector always picks the first template.
var FirstSelector = SelectorFunc(func(detection.ConfidenceLevel, int) int { return 0 })

// RandomSelector picks templates uniformly at random. It is safe for concurrent use.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector returns a selector backed by the runtime's randomly seeded source.
func NewRandomSelector() *RandomSelector {
	return &RandomSelector{}
}

// NewSeededSelector returns a selector whose choices are fully determined by seed.
func NewSeededSelector(seed uint64) *RandomSelector {
	return &RandomSelector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Select implements Selector.
func (s *RandomSelector) Select(_ detection.ConfidenceLevel, n int) int {
	if n <= 1 {
		return 0
	}
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
