package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimator_Count(t *testing.T) {
	tests := []struct {
		name string
		bpt  int
		text string
		want int
	}{
		{"empty", 4, "", 0},
		{"exact multiple", 4, "abcdefgh", 2},
		{"rounds up", 4, "abcde", 2},
		{"default ratio", 0, strings.Repeat("x", 9), 3},
		{"multibyte counts bytes", 2, "é", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimator{BytesPerToken: tt.bpt}.Count(tt.text))
		})
	}
}

func TestEstimator_Name(t *testing.T) {
	var c Counter = Estimator{}
	assert.Equal(t, "estimate", c.Name())
}

func TestTiktoken_ZeroValue(t *testing.T) {
	var tk Tiktoken
	assert.Zero(t, tk.Count("hello"))
}
