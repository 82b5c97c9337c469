package main

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/swdee/go-reidtrack/tracker"
)

// maxLineSize caps a single JSON line of the detection file, embeddings make
// lines long
const maxLineSize = 16 << 20

// detRecord is a single detection in the replay file
type detRecord struct {
	// Box is the detection bounding box as x, y, width, height
	Box     [4]float32 `json:"box"`
	Score   float32    `json:"score"`
	Label   int        `json:"label"`
	Feature []float32  `json:"feature,omitempty"`
}

// frameRecord is one line of the replay file holding a frame's detections
type frameRecord struct {
	Frame      uint64      `json:"frame"`
	Detections []detRecord `json:"detections"`
}

// trackRecord is a track emitted for a frame
type trackRecord struct {
	ID        uint64     `json:"id"`
	Box       [4]float32 `json:"box"`
	Score     float32    `json:"score"`
	Label     int        `json:"label"`
	Detection int        `json:"detection"`
}

// outputRecord is one line written per frame processed
type outputRecord struct {
	Frame   uint64        `json:"frame"`
	Tracks  []trackRecord `json:"tracks"`
	Removed []uint64      `json:"removed,omitempty"`
}

// toDetections converts the frame's records to tracker detections, the
// detection Index is its position in the record
func (f frameRecord) toDetections() []tracker.Detection {

	dets := make([]tracker.Detection, 0, len(f.Detections))

	for i, rec := range f.Detections {
		det := tracker.NewDetection(
			tracker.NewRect(rec.Box[0], rec.Box[1], rec.Box[2], rec.Box[3]),
			rec.Label, rec.Score, i,
		)
		det.Feature = rec.Feature
		dets = append(dets, det)
	}

	return dets
}

// newOutputRecord builds the output line for a frame
func newOutputRecord(frame uint64, results []tracker.TrackResult, removed []uint64) outputRecord {

	out := outputRecord{
		Frame:   frame,
		Tracks:  make([]trackRecord, 0, len(results)),
		Removed: removed,
	}

	for _, res := range results {
		out.Tracks = append(out.Tracks, trackRecord{
			ID:        res.ID,
			Box:       res.Rect.Tlwh,
			Score:     res.Prob,
			Label:     res.Label,
			Detection: res.DetectionIndex,
		})
	}

	return out
}

// recordReader reads frame records from a JSON lines stream
type recordReader struct {
	scanner *bufio.Scanner
	line    int
}

func newRecordReader(r io.Reader) *recordReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &recordReader{scanner: scanner}
}

// Next returns the next frame record, io.EOF is returned at the end of the
// stream.  Blank lines are skipped.
func (rr *recordReader) Next() (frameRecord, error) {

	for rr.scanner.Scan() {
		rr.line++

		data := rr.scanner.Bytes()

		if len(data) == 0 {
			continue
		}

		var rec frameRecord

		if err := json.Unmarshal(data, &rec); err != nil {
			return rec, errors.Wrapf(err, "line %d", rr.line)
		}

		return rec, nil
	}

	if err := rr.scanner.Err(); err != nil {
		return frameRecord{}, errors.Wrapf(err, "reading line %d", rr.line+1)
	}

	return frameRecord{}, io.EOF
}
