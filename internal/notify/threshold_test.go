package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdNotifier_FiresEachLevelOnce(t *testing.T) {
	n := NewThresholdNotifier()

	level, fired := n.Observe(14000)
	assert.False(t, fired)
	assert.Equal(t, LevelNone, level)

	level, fired = n.Observe(7000)
	assert.True(t, fired)
	assert.Equal(t, Level50, level)

	// Re-crossing the same threshold stays quiet.
	_, fired = n.Observe(7400)
	assert.False(t, fired)
	_, fired = n.Observe(6000)
	assert.False(t, fired)

	level, fired = n.Observe(2500)
	assert.True(t, fired)
	assert.Equal(t, Level20, level)

	_, fired = n.Observe(1000)
	assert.False(t, fired)

	level, fired = n.Observe(0)
	assert.True(t, fired)
	assert.Equal(t, LevelExhausted, level)

	_, fired = n.Observe(-300)
	assert.False(t, fired)
}

func TestThresholdNotifier_ExhaustionTakesPrecedence(t *testing.T) {
	n := NewThresholdNotifier()

	// Balance starting at zero skips straight to the exhaustion warning.
	level, fired := n.Observe(0)
	assert.True(t, fired)
	assert.Equal(t, LevelExhausted, level)

	_, fired = n.Observe(-100)
	assert.False(t, fired)
}

func TestThresholdNotifier_NegativeStart(t *testing.T) {
	n := NewThresholdNotifier()

	level, fired := n.Observe(-50)
	assert.True(t, fired)
	assert.Equal(t, LevelExhausted, level)
}

func TestThresholdNotifier_BoundaryValues(t *testing.T) {
	n := NewThresholdNotifier()

	// Exactly 50% fires the first warning.
	level, fired := n.Observe(7500)
	assert.True(t, fired)
	assert.Equal(t, Level50, level)

	// Exactly 20% fires the second.
	level, fired = n.Observe(3000)
	assert.True(t, fired)
	assert.Equal(t, Level20, level)
}

func TestThresholdNotifier_CustomMax(t *testing.T) {
	n := NewThresholdNotifierWithMax(40000)

	_, fired := n.Observe(21000)
	assert.False(t, fired)

	level, fired := n.Observe(20000)
	assert.True(t, fired)
	assert.Equal(t, Level50, level)

	level, fired = n.Observe(8000)
	assert.True(t, fired)
	assert.Equal(t, Level20, level)
}
