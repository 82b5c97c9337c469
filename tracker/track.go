package tracker

// Track represents a single tracked identity
type Track struct {
	// motion predicts and corrects the track's box
	motion MotionModel
	// rect is the current bounding box
	rect Rect
	// trackID is the global identity
	trackID uint64
	// label is the object class from the detection that created the track
	label int
	// score of the detection that last updated the track
	score float32
	// detIndex is the Index of the detection that last updated the track
	detIndex int
	// features is the bounded appearance history used for ReID
	features *FeatureHistory
	// age is the number of frames since creation
	age int
	// hitStreak is the number of consecutive frames matched
	hitStreak int
	// timeSinceUpdate is the number of frames since the last match
	timeSinceUpdate int
}

// newTrack creates a Track from an unmatched detection, allocating a fresh
// identity from ids
func newTrack(det *Detection, ids *IDGenerator, motion MotionFactory,
	capacity int) *Track {

	return &Track{
		motion:   motion(det.Rect),
		rect:     det.Rect,
		trackID:  ids.GetNext(),
		label:    det.Label,
		score:    det.Prob,
		detIndex: det.Index,
		features: NewFeatureHistory(capacity),
	}
}

// GetRect returns the bounding box of the tracked object
func (t *Track) GetRect() Rect {
	return t.rect
}

// GetTrackID returns the global identity of the track
func (t *Track) GetTrackID() uint64 {
	return t.trackID
}

// GetLabel returns the object class of the track
func (t *Track) GetLabel() int {
	return t.label
}

// GetScore returns the score of the detection that last updated the track
func (t *Track) GetScore() float32 {
	return t.score
}

// GetAge returns the number of frames since the track was created
func (t *Track) GetAge() int {
	return t.age
}

// GetHitStreak returns the number of consecutive frames the track matched
func (t *Track) GetHitStreak() int {
	return t.hitStreak
}

// GetTimeSinceUpdate returns the number of frames since the last match
func (t *Track) GetTimeSinceUpdate() int {
	return t.timeSinceUpdate
}

// Features returns the track's appearance history
func (t *Track) Features() *FeatureHistory {
	return t.features
}

// Predict advances the motion model one frame.  Returns false when the
// predicted box is degenerate and the track must be removed.
func (t *Track) Predict() bool {
	rect, ok := t.motion.Predict()
	t.rect = rect
	return ok
}

// UpdateDetect corrects the track with a matched detection
func (t *Track) UpdateDetect(det *Detection) {

	t.motion.Update(det.Rect)
	t.rect = t.motion.Rect()

	t.score = det.Prob
	t.label = det.Label
	t.detIndex = det.Index

	t.timeSinceUpdate = 0
	t.hitStreak++
	t.age++
}

// UpdateWithoutDetect ages the track for a frame in which it was not matched
func (t *Track) UpdateWithoutDetect() {

	t.motion.AgeWithoutMeasurement()

	t.age++
	t.timeSinceUpdate++
	t.hitStreak = 0
}

// UpdateFeature appends an embedding to the feature history
func (t *Track) UpdateFeature(feat []float32) {
	t.features.Add(feat)
}

// BestMatchDistance compares an embedding against all stored features
func (t *Track) BestMatchDistance(feat []float32) float32 {
	return t.features.BestMatchDistance(feat)
}

// IsVisible reports whether the track should be emitted.  A track is shown
// when it matched this frame and has either built up minHits consecutive
// matches or the tracker is still within its first minHits frames.
func (t *Track) IsVisible(frameCount, minHits int) bool {
	return t.timeSinceUpdate < 1 &&
		(t.hitStreak >= minHits || frameCount <= minHits)
}

// Result returns the emitted record for the track
func (t *Track) Result() TrackResult {
	return TrackResult{
		ID:             t.trackID,
		Rect:           t.rect,
		Prob:           t.score,
		Label:          t.label,
		DetectionIndex: t.detIndex,
	}
}
