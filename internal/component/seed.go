package component

import (
	"math/rand"
	"time"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// SeedEverything reseeds the shared random source used by registered
// components, making shuffles and initializations reproducible. The harness
// is single-threaded per process, so no locking is needed here.
func SeedEverything(seed int64) {
	rng = rand.New(rand.NewSource(seed))
}

// RNG returns the shared random source.
func RNG() *rand.Rand { return rng }
