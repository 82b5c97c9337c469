package tracker

import "sync"

// Point represents the x,y coordinates of the center of a tracked box
type Point struct {
	X, Y int
}

// Trail keeps a bounded history of box center points per track identity,
// used for drawing the path an object has taken.  It may be read from a
// rendering goroutine while the tracking loop adds to it.
type Trail struct {
	// size is the maximum number of most recent points to keep per track
	size int
	// history of tracked points keyed by track identity
	history map[uint64][]Point
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the maximum length
// of the trail kept for each track.
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[uint64][]Point),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[uint64][]Point)
}

// Add records the center points of the emitted tracks
func (t *Trail) Add(results ...TrackResult) {
	t.Lock()
	defer t.Unlock()

	for _, res := range results {
		cx, cy := res.Rect.Center()
		points := append(t.history[res.ID], Point{X: int(cx), Y: int(cy)})

		// drop oldest point once the history is exceeded
		if len(points) > t.size {
			points = points[len(points)-t.size:]
		}

		t.history[res.ID] = points
	}
}

// Remove drops the history of the given identities, typically those from
// ReIDTracker.RemovedIDs
func (t *Trail) Remove(ids ...uint64) {
	t.Lock()
	defer t.Unlock()

	for _, id := range ids {
		delete(t.history, id)
	}
}

// GetPoints returns a copy of the point history for a track identity
func (t *Trail) GetPoints(id uint64) []Point {
	t.Lock()
	defer t.Unlock()

	points, exists := t.history[id]

	if !exists {
		// no history yet
		return nil
	}

	out := make([]Point, len(points))
	copy(out, points)

	return out
}
