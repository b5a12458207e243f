// Package random provides deterministic named random streams and the
// sampling algorithms built on them.
//
// Every stream is a PCG generator seeded from the run's base seed and the
// xxhash of the stream name, so adding a stream never shifts the draws of
// another one.
package random

import (
	"math/rand/v2"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Sampler is the uniform source consumed by queries and models.
// *rand.Rand satisfies it.
type Sampler interface {
	IntN(n int) int
	Float64() float64
}

// Streams hands out one generator per name.
type Streams struct {
	seed    uint64
	streams map[string]*rand.Rand
}

// NewStreams returns streams derived from seed.
func NewStreams(seed uint64) *Streams {
	return &Streams{seed: seed, streams: make(map[string]*rand.Rand)}
}

// Seed returns the base seed.
func (s *Streams) Seed() uint64 {
	return s.seed
}

// Get returns the stream for name, creating it on first use.
func (s *Streams) Get(name string) *rand.Rand {
	r, ok := s.streams[name]
	if !ok {
		r = rand.New(rand.NewPCG(s.seed, xxhash.Sum64String(name)))
		s.streams[name] = r
	}
	return r
}

// Names returns the names of the streams created so far, sorted.
func (s *Streams) Names() []string {
	names := make([]string, 0, len(s.streams))
	for name := range s.streams {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
