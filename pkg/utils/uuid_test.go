package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUID(t *testing.T) {
	assert := assert.New(t)
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		id := UUID()
		assert.Regexp("^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$", id)
		assert.False(seen[id], "duplicate fetch id %s", id)
		seen[id] = true
	}
}
