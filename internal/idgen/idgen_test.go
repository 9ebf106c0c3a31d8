package idgen_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-planner/internal/idgen"
)

var idPattern = regexp.MustCompile(`^[0-9a-z]{9}$`)

func TestNew_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := idgen.New()
		require.Regexp(t, idPattern, id)
	}
}

// TestNew_NoCollisionsInSmallBatch is a sanity check, not a uniqueness proof:
// a few thousand ids should never collide with 36^9 possible values.
func TestNew_NoCollisionsInSmallBatch(t *testing.T) {
	seen := make(map[string]struct{}, 5000)
	for i := 0; i < 5000; i++ {
		id := idgen.New()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}

func TestSequence(t *testing.T) {
	next := idgen.Sequence("spot")

	assert.Equal(t, "spot-1", next())
	assert.Equal(t, "spot-2", next())
	assert.Equal(t, "spot-3", next())
}
