package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMask_NoDetections(t *testing.T) {
	m := BuildMask(64, 48, nil)
	require.Equal(t, 64, m.Width)
	require.Equal(t, 48, m.Height)
	for _, w := range m.Weights {
		assert.Zero(t, w)
	}
}

func TestBuildMask_FullFrameDetection(t *testing.T) {
	m := BuildMask(64, 48, []Region{{X: 0, Y: 0, W: 64, H: 48, Kind: KindBody}})
	for _, w := range m.Weights {
		assert.InDelta(t, 1.0, w, 1e-4)
	}
}

func TestBuildMask_BodyBoxCenterIsForeground(t *testing.T) {
	// A 40x40 body box is bigger than both the structuring element and
	// the blur kernel, so its center must survive at full weight.
	m := BuildMask(100, 100, []Region{{X: 30, Y: 30, W: 40, H: 40, Kind: KindBody}})
	center := m.Weights[50*100+50]
	assert.InDelta(t, 1.0, float64(center), 1e-4)

	// Far corner stays background.
	assert.Less(t, float64(m.Weights[0]), 0.01)
}

func TestBuildMask_SpeckleRemovedByOpen(t *testing.T) {
	// A lone 6x6 box is smaller than the 15x15 structuring element and
	// must vanish entirely during the open step.
	m := BuildMask(100, 100, []Region{{X: 47, Y: 47, W: 6, H: 6, Kind: KindBody}})
	for _, w := range m.Weights {
		assert.Zero(t, w)
	}
}

func TestBuildMask_FaceBoxIsExpanded(t *testing.T) {
	// Face at (60,40) sized 20x20 expands to x=50,y=30,w=40,h=60, so a
	// point well below the raw box (inside the torso estimate) must be
	// foreground.
	m := BuildMask(200, 200, []Region{{X: 60, Y: 40, W: 20, H: 20, Kind: KindFace}})
	assert.InDelta(t, 1.0, float64(m.Weights[75*200+70]), 1e-4)

	// Same box tagged as body is not expanded: that point stays near
	// zero because it is outside the painted area.
	m = BuildMask(200, 200, []Region{{X: 60, Y: 40, W: 20, H: 20, Kind: KindBody}})
	assert.Less(t, float64(m.Weights[85*200+70]), 0.05)
}

func TestBuildMask_FaceExpansionClampedToFrame(t *testing.T) {
	// An expansion that would overrun the frame must clamp, not panic.
	m := BuildMask(60, 60, []Region{{X: 2, Y: 2, W: 50, H: 50, Kind: KindFace}})
	require.Len(t, m.Weights, 60*60)
}
