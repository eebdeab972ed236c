package profiling

import (
	"bytes"
	"testing"

	"mind-scribe/internal/config"
	"mind-scribe/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartDisabledWithoutAddress(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "debug", "json")

	stop, err := Start(config.Config{AppPort: 4000}, log)
	require.NoError(t, err)
	require.NotNil(t, stop)
	assert.NoError(t, stop())
	assert.Contains(t, buf.String(), "profiling disabled")
}
