package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGenerator(t *testing.T) {

	ids := NewIDGenerator()
	assert.Equal(t, uint64(0), ids.Last())

	assert.Equal(t, uint64(1), ids.GetNext())
	assert.Equal(t, uint64(2), ids.GetNext())
	assert.Equal(t, uint64(2), ids.Last())

	ids.Reset()
	assert.Equal(t, uint64(1), ids.GetNext())
}

func TestTrackLifecycle(t *testing.T) {

	ids := NewIDGenerator()
	det := NewDetection(NewRect(0, 0, 10, 10), 2, 0.8, 4)

	track := newTrack(&det, ids, NewLinearMotion, 5)

	assert.Equal(t, uint64(1), track.GetTrackID())
	assert.Equal(t, 2, track.GetLabel())
	assert.Equal(t, float32(0.8), track.GetScore())
	assert.Equal(t, 0, track.GetAge())
	assert.Equal(t, 0, track.GetHitStreak())
	assert.Equal(t, 0, track.GetTimeSinceUpdate())
	assert.Equal(t, 5, track.Features().Capacity())

	assert.True(t, track.Predict())

	next := NewDetection(NewRect(1, 1, 10, 10), 2, 0.9, 0)
	track.UpdateDetect(&next)

	assert.Equal(t, 1, track.GetAge())
	assert.Equal(t, 1, track.GetHitStreak())
	assert.Equal(t, 0, track.GetTimeSinceUpdate())
	assert.Equal(t, NewRect(1, 1, 10, 10), track.GetRect())

	res := track.Result()
	assert.Equal(t, uint64(1), res.ID)
	assert.Equal(t, float32(0.9), res.Prob)
	assert.Equal(t, 0, res.DetectionIndex)

	track.Predict()
	track.UpdateWithoutDetect()

	assert.Equal(t, 2, track.GetAge())
	assert.Equal(t, 0, track.GetHitStreak())
	assert.Equal(t, 1, track.GetTimeSinceUpdate())
}

func TestTrackVisibility(t *testing.T) {

	ids := NewIDGenerator()
	det := NewDetection(NewRect(0, 0, 10, 10), 0, 0.8, 0)
	track := newTrack(&det, ids, NewLinearMotion, 5)

	// warm up window shows fresh tracks
	assert.True(t, track.IsVisible(1, 3))
	assert.True(t, track.IsVisible(3, 3))

	// past warm up a streak is needed
	assert.False(t, track.IsVisible(4, 3))

	for i := 0; i < 3; i++ {
		track.Predict()
		track.UpdateDetect(&det)
	}

	assert.True(t, track.IsVisible(10, 3))

	// unmatched tracks are never shown
	track.Predict()
	track.UpdateWithoutDetect()
	assert.False(t, track.IsVisible(1, 3))
}

func TestTrackFeatures(t *testing.T) {

	ids := NewIDGenerator()
	det := NewDetection(NewRect(0, 0, 10, 10), 0, 0.8, 0)
	track := newTrack(&det, ids, NewLinearMotion, 2)

	assert.Equal(t, float32(2.0), track.BestMatchDistance([]float32{1, 0}))

	track.UpdateFeature([]float32{1, 0})
	track.UpdateFeature(nil)

	assert.Equal(t, 1, track.Features().Len())
	assert.InDelta(t, 0, track.BestMatchDistance([]float32{1, 0}), 1e-6)
}
