package crop

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// letterbox holds the scaling of a source image into a destination size
// whilst keeping the source aspect ratio
type letterbox struct {
	scale float32
	// resize dimensions before padding
	resizeW int
	resizeH int
	// padding placed left and above the resized image
	xPad int
	yPad int
}

// newLetterbox calculates the scaling factors for fitting a source of the
// given size inside dest
func newLetterbox(srcWidth, srcHeight int, dest image.Point) letterbox {

	lb := letterbox{
		resizeW: dest.X,
		resizeH: dest.Y,
	}

	scaleW := float32(dest.X) / float32(srcWidth)
	scaleH := float32(dest.Y) / float32(srcHeight)
	lb.scale = scaleH

	if scaleW < scaleH {
		lb.scale = scaleW
		lb.resizeH = int(float32(srcHeight) * lb.scale)
	} else {
		lb.resizeW = int(float32(srcWidth) * lb.scale)
	}

	// keep at least one pixel so thin crops still resize
	if lb.resizeW < 1 {
		lb.resizeW = 1
	}

	if lb.resizeH < 1 {
		lb.resizeH = 1
	}

	lb.yPad = (dest.Y - lb.resizeH) / 2
	lb.xPad = (dest.X - lb.resizeW) / 2

	return lb
}

// LetterBox resizes src to size whilst maintaining its aspect ratio, the
// remaining area is filled with pad
func LetterBox(src gocv.Mat, dest *gocv.Mat, size image.Point, pad color.RGBA) {

	lb := newLetterbox(src.Cols(), src.Rows(), size)

	tmp := gocv.NewMat()
	defer tmp.Close()

	gocv.Resize(src, &tmp, image.Pt(lb.resizeW, lb.resizeH), 0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(tmp, dest, lb.yPad, size.Y-lb.resizeH-lb.yPad,
		lb.xPad, size.X-lb.resizeW-lb.xPad, gocv.BorderConstant, pad)
}
