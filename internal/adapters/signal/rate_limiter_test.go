package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartLimiterWindow(t *testing.T) {
	rl := NewStartLimiter(2, 50*time.Millisecond)

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"), "third start inside the window is blocked")

	assert.True(t, rl.Allow("bob"), "limits are per identity")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("alice"), "window slides")
}
