// vidfilter/config/config_test.go
package config_test // Use an external test package

import (
	"testing"
	"time"

	"vidfilter/config" // Import the package we are testing

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		// Ensure no env vars are lingering from other tests
		t.Setenv("VIDFILTER_PORT", "")
		t.Setenv("VIDFILTER_MAX_CONCURRENCY", "")
		t.Setenv("VIDFILTER_FRAME_DELAY", "")
		t.Setenv("VIDFILTER_OUTPUT_DIR", "")
		t.Setenv("VIDFILTER_MAX_INPUT_SIZE", "")

		cfg, err := config.Load() // Use the package prefix
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "ffmpeg", cfg.FFBin)
		assert.Equal(t, "ffprobe", cfg.FFProbeBin)
		assert.Equal(t, "processed_videos", cfg.OutputDir)
		assert.Equal(t, 10*time.Millisecond, cfg.FrameDelay)
		assert.Equal(t, 8, cfg.CacheHashWidth)
		assert.Equal(t, 2, cfg.MaxConcurrency)
		assert.Equal(t, 100, cfg.QueueSize)
		assert.Equal(t, int64(200*1024*1024), cfg.MaxInputSize)
		assert.Equal(t, false, cfg.AuthEnable)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("VIDFILTER_PORT", "9999")
		t.Setenv("VIDFILTER_MAX_CONCURRENCY", "10")
		t.Setenv("VIDFILTER_FRAME_DELAY", "25ms")
		t.Setenv("VIDFILTER_OUTPUT_DIR", "/var/lib/vidfilter")
		t.Setenv("VIDFILTER_CACHE_HASH_WIDTH", "16")
		t.Setenv("VIDFILTER_MAX_INPUT_SIZE", "50MB")

		cfg, err := config.Load() // Use the package prefix
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, 10, cfg.MaxConcurrency)
		assert.Equal(t, 25*time.Millisecond, cfg.FrameDelay)
		assert.Equal(t, "/var/lib/vidfilter", cfg.OutputDir)
		assert.Equal(t, 16, cfg.CacheHashWidth)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxInputSize)
	})
}
