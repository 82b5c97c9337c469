package main

import (
	"fmt"

	"gocv.io/x/gocv"
)

// histBins are the hue and saturation bins of the color histogram
var histBins = []int{16, 8}

// colorHistogram is a model free appearance feature, the hue/saturation
// histogram of the crop.  It lets replays with video but no embedding model
// still exercise appearance matching.
func colorHistogram(input gocv.Mat) ([]float32, error) {

	hsv := gocv.NewMat()
	defer hsv.Close()

	gocv.CvtColor(input, &hsv, gocv.ColorBGRToHSV)

	hist := gocv.NewMat()
	defer hist.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	gocv.CalcHist([]gocv.Mat{hsv}, []int{0, 1}, mask, &hist, histBins,
		[]float64{0, 180, 0, 256}, false)

	data, err := hist.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading histogram: %w", err)
	}

	// hist memory is released on return
	feat := make([]float32, len(data))
	copy(feat, data)

	return feat, nil
}
