package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseExpiry(t *testing.T) {
	def := 7 * 24 * time.Hour

	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"12h", 12 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1s", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseExpiry(tt.input, def))
		})
	}
}

func TestParseExpiry_FallsBackOnMalformedInput(t *testing.T) {
	def := time.Hour

	for _, input := range []string{"", "d", "10x", "abc", "d7", "1.5h"} {
		t.Run("input "+input, func(t *testing.T) {
			assert.Equal(t, def, ParseExpiry(input, def))
		})
	}
}
