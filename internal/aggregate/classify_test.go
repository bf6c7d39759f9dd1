package aggregate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name       string
		content    []byte
		sampleSize int
		want       bool
	}{
		{"empty", nil, 1024, false},
		{"plain text", []byte("hello\nworld\n"), 1024, false},
		{"leading NUL", []byte{0x00, 'a', 'b'}, 1024, true},
		{"NUL in middle", []byte("ab\x00cd"), 1024, true},
		{"NUL at last sampled byte", append(bytes.Repeat([]byte("a"), 1023), 0x00), 1024, true},
		{"NUL just past sample", append(bytes.Repeat([]byte("a"), 1024), 0x00), 1024, false},
		{"small sample", []byte("abc\x00"), 3, false},
		{"non-positive sample uses default", append(bytes.Repeat([]byte("a"), 1000), 0x00), 0, true},
		{"high bytes without NUL", []byte{0xff, 0xfe, 0x89, 'P', 'N', 'G'}, 1024, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBinary(tt.content, tt.sampleSize))
		})
	}
}
