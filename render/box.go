package render

import (
	"fmt"
	"image"

	"github.com/swdee/go-reidtrack/tracker"
	"gocv.io/x/gocv"
)

// className returns the name for a label, falling back to the numeric label
// when no name is known
func className(classNames []string, label int) string {
	if label >= 0 && label < len(classNames) {
		return classNames[label]
	}
	return fmt.Sprintf("class%d", label)
}

// rectToImage converts a tracker box to integer image coordinates
func rectToImage(r tracker.Rect) image.Rectangle {
	return image.Rect(int(r.TLX()), int(r.TLY()), int(r.BRX()), int(r.BRY()))
}

// TrackerBoxes renders the bounding boxes of the tracks emitted for a frame.
// Each box is colored and labelled by its track identity.
func TrackerBoxes(img *gocv.Mat, trackResults []tracker.TrackResult,
	classNames []string, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(trackResults))

	for _, tResult := range trackResults {

		useClr := ColorForID(tResult.ID)

		// draw rectangle around tracked object
		rect := rectToImage(tResult.Rect)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := fmt.Sprintf("%s %d", className(classNames, tResult.Label), tResult.ID)
		boxLabels = append(boxLabels, font.placeLabel(text, rect, useClr, lineThickness))
	}

	font.drawLabels(img, boxLabels)
}

// DetectionBoxes renders the raw detector boxes for a frame in a single
// color with their score, useful for comparing against the tracked output
func DetectionBoxes(img *gocv.Mat, detections []tracker.Detection,
	classNames []string, font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(detections))

	for _, det := range detections {

		rect := rectToImage(det.Rect)
		gocv.Rectangle(img, rect, Gray, lineThickness)

		text := fmt.Sprintf("%s %.2f", className(classNames, det.Label), det.Prob)
		boxLabels = append(boxLabels, font.placeLabel(text, rect, Gray, lineThickness))
	}

	font.drawLabels(img, boxLabels)
}
