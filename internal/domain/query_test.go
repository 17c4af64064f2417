package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoEdits(t *testing.T) {
	tests := []struct {
		term string
		want int
	}{
		{"", 0},
		{"tv", 0},
		{"nike", 1},
		{"puma", 1},
		{"ayakk", 1},
		{"lenovo", 2},
		{"ayakkabı", 2},
		{"çç", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AutoEdits(tt.term), tt.term)
	}
}
