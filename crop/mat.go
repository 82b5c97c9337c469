package crop

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-reidtrack/reid"
	"github.com/swdee/go-reidtrack/tracker"
	"gocv.io/x/gocv"
)

// Mat crops the region of the frame covered by r, clamped to the frame
// bounds, and returns it as an image
func Mat(frame gocv.Mat, r tracker.Rect) (image.Image, error) {

	region := clampRect(image.Rect(0, 0, frame.Cols(), frame.Rows()), r)

	if region.Empty() {
		return nil, ErrEmptyCrop
	}

	roi := frame.Region(region)
	defer roi.Close()

	img, err := roi.ToImage()

	if err != nil {
		return nil, fmt.Errorf("failed to convert crop to image: %w", err)
	}

	return img, nil
}

// AttachMatCrops converts the frame once and attaches crops of it to the
// detections, see AttachCrops
func AttachMatCrops(frame gocv.Mat, dets []tracker.Detection) error {

	img, err := frame.ToImage()

	if err != nil {
		return fmt.Errorf("failed to convert frame to image: %w", err)
	}

	AttachCrops(img, dets)

	return nil
}

// MatInference runs an appearance model on a Mat already scaled to the model
// input size and returns the raw embedding
type MatInference func(input gocv.Mat) ([]float32, error)

// MatEmbedder adapts a gocv based appearance model to reid.Embedder.  Crops
// are scaled to the model input size and the output embedding is L2
// normalized.
type MatEmbedder struct {
	infer MatInference
	// scaleSize is the size of the input tensor dimensions to scale the
	// object too
	scaleSize image.Point
	// letterbox keeps the crop aspect ratio when scaling, padding with
	// padColor
	letterbox bool
	padColor  color.RGBA
}

// NewMatEmbedder returns a MatEmbedder feeding infer with crops scaled to
// size
func NewMatEmbedder(infer MatInference, size image.Point) *MatEmbedder {
	return &MatEmbedder{
		infer:     infer,
		scaleSize: size,
	}
}

// UseLetterBox scales crops with LetterBox instead of stretching them to the
// model input size
func (e *MatEmbedder) UseLetterBox(pad color.RGBA) {
	e.letterbox = true
	e.padColor = pad
}

// Embed implements reid.Embedder
func (e *MatEmbedder) Embed(crop image.Image) ([]float32, error) {

	src, err := gocv.ImageToMatRGB(crop)

	if err != nil {
		return nil, fmt.Errorf("failed to convert crop to mat: %w", err)
	}

	defer src.Close()

	objImg := gocv.NewMat()
	defer objImg.Close()

	// resize to input tensor size
	if e.letterbox {
		LetterBox(src, &objImg, e.scaleSize, e.padColor)
	} else {
		gocv.Resize(src, &objImg, e.scaleSize, 0, 0, gocv.InterpolationArea)
	}

	feat, err := e.infer(objImg)

	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return reid.NormalizeVec(feat), nil
}

var _ reid.Embedder = (*MatEmbedder)(nil)
