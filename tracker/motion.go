package tracker

// MotionModel predicts where a track's box will be in the next frame and
// corrects that estimate with measurements
type MotionModel interface {
	// Predict advances the state one frame and returns the predicted box.
	// The bool is false when the predicted box has a non-positive width or
	// height, the caller must then drop the track.
	Predict() (Rect, bool)
	// Update corrects the state toward the measured box
	Update(measured Rect)
	// AgeWithoutMeasurement advances bookkeeping for a frame in which the
	// track received no measurement
	AgeWithoutMeasurement()
	// Rect returns the current box estimate
	Rect() Rect
}

// MotionFactory creates a MotionModel seeded from a detection box
type MotionFactory func(initial Rect) MotionModel

// LinearMotion extrapolates the box with the per-component velocity observed
// between the last two measurements
type LinearMotion struct {
	rect Rect
	// last is the most recent measurement
	last Rect
	// velocity per frame of x, y, width and height
	velocity [4]float32
	// gap counts the frames since the last measurement
	gap int
}

// NewLinearMotion is a MotionFactory creating a LinearMotion with zero
// velocity at the initial box
func NewLinearMotion(initial Rect) MotionModel {
	return &LinearMotion{
		rect: initial,
		last: initial,
	}
}

// Predict implements MotionModel
func (l *LinearMotion) Predict() (Rect, bool) {

	for i := range l.rect.Tlwh {
		l.rect.Tlwh[i] += l.velocity[i]
	}

	return l.rect, !l.rect.IsEmpty()
}

// Update implements MotionModel.  Velocity is recomputed from the delta to
// the previous measurement spread over the frames elapsed since.
func (l *LinearMotion) Update(measured Rect) {

	frames := float32(l.gap + 1)

	for i := range l.velocity {
		l.velocity[i] = (measured.Tlwh[i] - l.last.Tlwh[i]) / frames
	}

	l.rect = measured
	l.last = measured
	l.gap = 0
}

// AgeWithoutMeasurement implements MotionModel
func (l *LinearMotion) AgeWithoutMeasurement() {
	l.gap++
}

// Rect implements MotionModel
func (l *LinearMotion) Rect() Rect {
	return l.rect
}
