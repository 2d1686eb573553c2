package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickSeededIsRepeatable(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	a, b := New(42), New(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, Pick(a, items), Pick(b, items))
	}
}

func TestPickEmpty(t *testing.T) {
	assert.Equal(t, "", Pick[string](New(1), nil))
}

func TestFixed(t *testing.T) {
	items := []int{10, 20, 30}
	assert.Equal(t, 10, Pick(Fixed(0), items))
	assert.Equal(t, 30, Pick(Fixed(9), items))
	assert.Equal(t, 10, Pick(Fixed(-1), items))
}
