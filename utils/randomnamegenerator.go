package utils

import (
	"math/rand"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique, reproducible names.
type RandomNameGenerator struct {
	mu   sync.Mutex
	used map[string]struct{}
}

var randomdataSeedOnce sync.Once

func (rng *RandomNameGenerator) RandomName() string {
	randomdataSeedOnce.Do(func() {
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	})

	rng.mu.Lock()
	defer rng.mu.Unlock()
	if rng.used == nil {
		rng.used = make(map[string]struct{})
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
}
