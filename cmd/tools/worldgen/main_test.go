package main

import (
	"testing"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestValidateSize(t *testing.T) {
	tests := []struct {
		size  int
		valid bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{64, true},
		{config.MaxWorldSize, true},
		{config.MaxWorldSize + 1, false},
	}

	for _, tt := range tests {
		err := validateSize(tt.size)
		if tt.valid {
			assert.NoError(t, err, "size %d", tt.size)
		} else {
			assert.Error(t, err, "size %d", tt.size)
		}
	}
}
