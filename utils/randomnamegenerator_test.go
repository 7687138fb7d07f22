package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomNameGeneratorUnique(t *testing.T) {
	var rng RandomNameGenerator
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		name := rng.RandomName()
		assert.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate %q", name)
		seen[name] = true
	}
}
