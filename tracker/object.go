package tracker

import "image"

// Detection represents an object detected in a frame and handed to the
// tracker
type Detection struct {
	// Rect is the bounding box of the detected object
	Rect Rect
	// Label is the class label of the object detected
	Label int
	// Prob is the confidence/probability of the object detected
	Prob float32
	// Index is the position of the detection in the caller's detection list,
	// it is reported back on the track the detection updated
	Index int
	// Crop is the image of the object used to extract an embedding when
	// Feature is not set
	Crop image.Image
	// Feature is a precomputed ReID embedding
	Feature []float32
}

// NewDetection is a constructor function for the Detection struct
func NewDetection(rect Rect, label int, prob float32, index int) Detection {
	return Detection{
		Rect:  rect,
		Label: label,
		Prob:  prob,
		Index: index,
	}
}

// TrackResult is a visible track emitted for a frame
type TrackResult struct {
	// ID is the global track identity
	ID uint64
	// Rect is the track's current bounding box
	Rect Rect
	// Prob is the score of the detection that last updated the track
	Prob float32
	// Label is the class label of the track
	Label int
	// DetectionIndex is the Index of the detection that last updated the
	// track
	DetectionIndex int
}
