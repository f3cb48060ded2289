package randid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^[a-z0-9]*$`)

func TestGenerate(t *testing.T) {
	for _, length := range []int{0, 1, 4, 8, 16} {
		id := Generate(length)
		assert.Len(t, id, length)
		assert.True(t, idPattern.MatchString(id), "Generate(%d) = %q", length, id)
	}

	assert.Empty(t, Generate(-1))
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		seen[Generate(8)] = true
	}

	// With 36^8 possible values, collisions in 100 draws would indicate a
	// broken randomness source.
	assert.GreaterOrEqual(t, len(seen), 90)
}
