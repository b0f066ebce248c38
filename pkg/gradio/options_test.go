package gradio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 12, o.WakeMaxAttempts)
	assert.Equal(t, 5*time.Second, o.WakeInterval)
	assert.Equal(t, DefaultUploadConcurrency, o.UploadConcurrency)
	assert.Equal(t, DefaultUserAgent, o.UserAgent)
	require.NotNil(t, o.IDGenerator)
	assert.Len(t, o.IDGenerator(), 10)
	require.NotNil(t, o.Logger)
	assert.NotNil(t, o.Events)

	o = Options{WakeInterval: time.Millisecond, WakeMaxAttempts: 3, UserAgent: "x"}.withDefaults()
	assert.Equal(t, time.Millisecond, o.WakeInterval)
	assert.Equal(t, 3, o.WakeMaxAttempts)
	assert.Equal(t, "x", o.UserAgent)
}
