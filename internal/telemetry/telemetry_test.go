package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("disabled skips validation", func(t *testing.T) {
		cfg := Config{Enabled: false}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("defaults are valid", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.NoError(t, cfg.Validate())

		cfg.Enabled = true
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing endpoint", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = ""
		assert.ErrorContains(t, cfg.Validate(), "endpoint is required")
	})

	t.Run("unknown protocol", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enabled = true
		cfg.Protocol = "thrift"
		assert.ErrorContains(t, cfg.Validate(), "protocol")
	})

	t.Run("insecure remote endpoint rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = "collector.example.com:4317"
		cfg.Insecure = true
		assert.ErrorContains(t, cfg.Validate(), "insecure")
	})

	t.Run("insecure local endpoints allowed", func(t *testing.T) {
		for _, endpoint := range []string{
			"localhost:4317",
			"127.0.0.1:4317",
			"[::1]:4317",
		} {
			cfg := DefaultConfig()
			cfg.Enabled = true
			cfg.Endpoint = endpoint
			assert.NoError(t, cfg.Validate(), endpoint)
		}
	})

	t.Run("sample rate bounds", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enabled = true
		cfg.SampleRate = 1.5
		assert.ErrorContains(t, cfg.Validate(), "sample_rate")
	})
}

func TestNewDisabled(t *testing.T) {
	tel, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, tel)

	// Disabled instances hand out no-op providers and shut down cleanly.
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	tel, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
	assert.Nil(t, tel)
}

func TestNilTelemetryIsSafe(t *testing.T) {
	var tel *Telemetry
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "host:4318", stripScheme("https://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("http://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("host:4318"))
}

func TestShutdownAppliesConfiguredWait(t *testing.T) {
	tel := &Telemetry{config: Config{ShutdownWait: 10 * time.Millisecond}}

	start := time.Now()
	require.NoError(t, tel.Shutdown(context.Background()))
	// Nothing to flush, so shutdown returns without waiting out the timeout.
	assert.Less(t, time.Since(start), time.Second)
}
