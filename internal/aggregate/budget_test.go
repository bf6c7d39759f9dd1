package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTryAdd(t *testing.T) {
	tests := []struct {
		name             string
		size, total, lim int
		wantOK           bool
		wantTotal        int
	}{
		{"fits", 10, 0, 100, true, 10},
		{"exact boundary", 10, 90, 100, true, 100},
		{"one over", 11, 90, 100, false, 90},
		{"empty block", 0, 100, 100, true, 100},
		{"larger than limit", 200, 0, 100, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, total := TryAdd(tt.size, tt.total, tt.lim)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestTryAdd_PartialContinuation(t *testing.T) {
	ok, total := TryAdd(80, 50, 100)
	assert.False(t, ok)
	assert.Equal(t, 50, total)

	ok, total = TryAdd(30, total, 100)
	assert.True(t, ok)
	assert.Equal(t, 80, total)
}
