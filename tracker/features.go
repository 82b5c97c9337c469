package tracker

import "github.com/swdee/go-reidtrack/reid"

// noFeatureDistance is the distance reported when there is nothing to compare
const noFeatureDistance = 2.0

// FeatureHistory is a bounded, oldest-evicted-first history of appearance
// embeddings for a track
type FeatureHistory struct {
	queue    [][]float32
	capacity int
}

// NewFeatureHistory returns an empty history holding at most capacity
// embeddings
func NewFeatureHistory(capacity int) *FeatureHistory {
	if capacity < 1 {
		capacity = 1
	}

	return &FeatureHistory{
		queue:    make([][]float32, 0, capacity),
		capacity: capacity,
	}
}

// Add appends a copy of an embedding, evicting the oldest entry when at
// capacity.  Empty embeddings are ignored.
func (h *FeatureHistory) Add(feat []float32) {

	if len(feat) == 0 {
		return
	}

	if len(h.queue) == h.capacity {
		copy(h.queue, h.queue[1:])
		h.queue = h.queue[:len(h.queue)-1]
	}

	stored := make([]float32, len(feat))
	copy(stored, feat)

	h.queue = append(h.queue, stored)
}

// Len returns the number of stored embeddings
func (h *FeatureHistory) Len() int {
	return len(h.queue)
}

// Capacity returns the maximum number of stored embeddings
func (h *FeatureHistory) Capacity() int {
	return h.capacity
}

// Features returns the stored embeddings oldest first.  The embeddings are
// owned by the history and must not be modified.
func (h *FeatureHistory) Features() [][]float32 {
	return h.queue
}

// BestMatchDistance returns the minimum Euclidean distance between feat and
// any stored embedding of the same length, or 2.0 when there is none
func (h *FeatureHistory) BestMatchDistance(feat []float32) float32 {

	best := float32(noFeatureDistance)

	if len(feat) == 0 {
		return best
	}

	for _, f := range h.queue {
		if len(f) != len(feat) {
			continue
		}

		if d := reid.EuclideanDistance(f, feat); d < best {
			best = d
		}
	}

	return best
}
