package process

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newJobID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.True(t, strings.Contains(id, "_"))
	}
}

func TestRegistry_ProgressRounding(t *testing.T) {
	r := newRegistry()
	r.add(&Job{ID: "j", Status: StatusProcessing})

	r.setProgress("j", 1, 3)
	j, ok := r.get("j")
	require.True(t, ok)
	assert.Equal(t, 33.3, j.Progress)
	assert.Equal(t, 1, j.ProcessedFrames)
	assert.Equal(t, 3, j.TotalFrames)
}

func TestRegistry_ProgressGuardsZeroTotal(t *testing.T) {
	r := newRegistry()
	r.add(&Job{ID: "j", Status: StatusProcessing})

	// Unknown frame count: the counter moves, the percent stays put.
	r.setProgress("j", 7, 0)
	j, _ := r.get("j")
	assert.Equal(t, 7, j.ProcessedFrames)
	assert.Zero(t, j.TotalFrames)
	assert.Zero(t, j.Progress)
}

func TestRegistry_ProgressNeverDecreases(t *testing.T) {
	r := newRegistry()
	r.add(&Job{ID: "j", Status: StatusProcessing})

	r.setProgress("j", 20, 30)
	r.setProgress("j", 10, 30)
	j, _ := r.get("j")
	assert.Equal(t, 66.7, j.Progress)
}

func TestRegistry_HundredOnlyOnCompletion(t *testing.T) {
	r := newRegistry()
	r.add(&Job{ID: "j", Status: StatusProcessing})

	r.setProgress("j", 30, 30)
	j, _ := r.get("j")
	assert.Equal(t, 99.9, j.Progress)

	r.complete("j", "out.mp4")
	j, _ = r.get("j")
	assert.Equal(t, float64(100), j.Progress)
	assert.Equal(t, StatusCompleted, j.Status)
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := newRegistry()
	r.add(&Job{ID: "j", Status: StatusProcessing})

	j, _ := r.get("j")
	j.Status = StatusError

	fresh, _ := r.get("j")
	assert.Equal(t, StatusProcessing, fresh.Status)
}
