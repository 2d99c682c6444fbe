package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocate(t *testing.T) {
	testCases := []struct {
		name          string
		remaining     int
		totalUnits    int
		wantProcessed int
		wantSkipped   int
	}{
		{name: "covers all", remaining: 10, totalUnits: 5, wantProcessed: 5, wantSkipped: 0},
		{name: "exact fit", remaining: 5, totalUnits: 5, wantProcessed: 5, wantSkipped: 0},
		{name: "partial prefix", remaining: 3, totalUnits: 5, wantProcessed: 3, wantSkipped: 2},
		{name: "nothing left", remaining: 0, totalUnits: 5, wantProcessed: 0, wantSkipped: 5},
		{name: "no units", remaining: 3, totalUnits: 0, wantProcessed: 0, wantSkipped: 0},
		{name: "negative remaining clamps", remaining: -2, totalUnits: 4, wantProcessed: 0, wantSkipped: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			processed, skipped := Allocate(tc.remaining, tc.totalUnits)
			assert.Equal(t, tc.wantProcessed, processed)
			assert.Equal(t, tc.wantSkipped, skipped)
			assert.Equal(t, tc.wantProcessed+tc.wantSkipped, maxInt(tc.totalUnits, 0))
		})
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
