// Package crop cuts detection regions out of video frames so an appearance
// model can embed them.  Crops can be produced from plain image.Image frames
// with golang.org/x/image or from gocv Mats.
package crop

import (
	"errors"
	"image"

	"github.com/swdee/go-reidtrack/tracker"
	"golang.org/x/image/draw"
)

// ErrEmptyCrop is returned when a box lies entirely outside the frame
var ErrEmptyCrop = errors.New("crop region is empty")

// subImager is implemented by the standard library image types that can
// share pixels with a sub region
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Image copies the region of frame covered by r, clamped to the frame
// bounds, and scales it to size.  A zero size keeps the native crop size.
func Image(frame image.Image, r tracker.Rect, size image.Point) (*image.RGBA, error) {

	region := clampRect(frame.Bounds(), r)

	if region.Empty() {
		return nil, ErrEmptyCrop
	}

	if size.X <= 0 || size.Y <= 0 {
		size = region.Size()
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))

	if size == region.Size() {
		draw.Copy(dst, image.Point{}, frame, region, draw.Src, nil)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, region, draw.Src, nil)
	}

	return dst, nil
}

// AttachCrops sets the Crop of each detection without a precomputed Feature
// to its region of frame.  Frames supporting SubImage share their pixels
// with the crops, others are copied.  Detections entirely outside the frame
// are left without a crop.
func AttachCrops(frame image.Image, dets []tracker.Detection) {

	sub, canShare := frame.(subImager)

	for i := range dets {

		if dets[i].Feature != nil {
			continue
		}

		region := clampRect(frame.Bounds(), dets[i].Rect)

		if region.Empty() {
			continue
		}

		if canShare {
			dets[i].Crop = sub.SubImage(region)
			continue
		}

		img, err := Image(frame, dets[i].Rect, image.Point{})

		if err != nil {
			continue
		}

		dets[i].Crop = img
	}
}

// clampRect converts r to integer coordinates restricted to bounds
func clampRect(bounds image.Rectangle, r tracker.Rect) image.Rectangle {
	return image.Rect(
		clamp(int(r.TLX()), bounds.Min.X, bounds.Max.X),
		clamp(int(r.TLY()), bounds.Min.Y, bounds.Max.Y),
		clamp(int(r.BRX()), bounds.Min.X, bounds.Max.X),
		clamp(int(r.BRY()), bounds.Min.Y, bounds.Max.Y),
	)
}

// clamp restricts the value x to be within the range min and max
func clamp(val, min, max int) int {

	if val > min {

		if val < max {
			return val
		}

		return max
	}

	return min
}
