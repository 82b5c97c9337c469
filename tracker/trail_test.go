package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrail(t *testing.T) {

	trail := NewTrail(3)

	for i := 0; i < 5; i++ {
		trail.Add(TrackResult{ID: 7, Rect: NewRect(float32(i*10), 0, 10, 20)})
	}

	trail.Add(TrackResult{ID: 8, Rect: NewRect(0, 0, 4, 4)})

	// only the most recent points are kept
	assert.Equal(t, []Point{{25, 10}, {35, 10}, {45, 10}}, trail.GetPoints(7))
	assert.Equal(t, []Point{{2, 2}}, trail.GetPoints(8))
	assert.Nil(t, trail.GetPoints(9))

	// returned points are a copy
	pts := trail.GetPoints(7)
	pts[0].X = 1000
	assert.Equal(t, 25, trail.GetPoints(7)[0].X)

	trail.Remove(7)
	assert.Nil(t, trail.GetPoints(7))
	assert.NotNil(t, trail.GetPoints(8))

	trail.Reset()
	assert.Nil(t, trail.GetPoints(8))
}
