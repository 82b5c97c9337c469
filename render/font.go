package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment of a text label relative to its bounding box
type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// boxLabel holds a precalculated text label drawn above a box
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// placeLabel calculates where the label text and its background go for a box
// spanning left to right with its top edge at top
func (f Font) placeLabel(text string, box image.Rectangle, clr color.RGBA,
	lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)

	// horizontal center of the label
	var centerX int

	switch f.Alignment {
	case Center:
		centerX = (box.Min.X + box.Max.X) / 2

	case Right:
		centerX = box.Max.X - (textSize.X / 2) - f.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = box.Min.X + (textSize.X / 2) + f.LeftPad - (lineThickness / 2)
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-f.LeftPad,
			box.Min.Y-textSize.Y-f.TopPad-f.BottomPad,
			centerX+textSize.X/2+f.RightPad, box.Min.Y),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, box.Min.Y-f.BottomPad),
	}
}

// drawLabels paints the labels after all boxes so they are the top most
// layer of the image
func (f Font) drawLabels(img *gocv.Mat, labels []boxLabel) {
	for _, lbl := range labels {
		// draw box text gets written on
		gocv.Rectangle(img, lbl.rect, lbl.clr, -1)

		gocv.PutTextWithParams(img, lbl.text, lbl.textPos,
			f.Face, f.Scale, f.Color, f.Thickness, f.LineType, false)
	}
}
