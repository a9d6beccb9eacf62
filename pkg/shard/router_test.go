package shard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeableful/folder/pkg/shard"
)

// TestRoute_Fixture pins the output of Route for a handful of tokens at a
// couple of shard counts. The values below are the actual output of the
// formula (verified independently), not the illustrative numbers in the
// two-shard walkthrough: that walkthrough's claimed assignments do not
// reproduce under the documented acc/mod formula, so this test instead
// guards against the implementation silently drifting from the formula it
// is supposed to compute.
func TestRoute_Fixture(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		token string
		count uint32
		want  shard.ID
	}{
		{name: "lunar", token: "lunar", count: 2, want: 1},
		{name: "new", token: "new", count: 2, want: 1},
		{name: "year", token: "year", count: 2, want: 1},
		{name: "lunar at count 3", token: "lunar", count: 3, want: 2},
		{name: "new at count 3", token: "new", count: 3, want: 1},
		{name: "year at count 3", token: "year", count: 3, want: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, shard.Route(tc.token, tc.count))
		})
	}
}

func TestRoute_InRange(t *testing.T) {
	t.Parallel()

	strs := []string{"", "a", "hello world", "日本語", "www.example.com", "lunar new year"}

	for _, s := range strs {
		for count := uint32(1); count <= 7; count++ {
			id := shard.Route(s, count)
			require.Lessf(t, id, count, "Route(%q, %d) = %d, want < %d", s, count, id, count)
		}
	}
}

func TestRoute_Deterministic(t *testing.T) {
	t.Parallel()

	const s = "deterministic"

	first := shard.Route(s, 5)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, shard.Route(s, 5))
	}
}

func TestRoute_PureFunctionOfInputs(t *testing.T) {
	t.Parallel()

	// Calling Route for an unrelated string in between must not perturb the
	// result: there is no hidden state threaded across calls.
	a := shard.Route("alpha", 11)
	_ = shard.Route("unrelated-noise", 11)
	b := shard.Route("alpha", 11)

	assert.Equal(t, a, b)
}
