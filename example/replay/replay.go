// Command replay runs the ReID tracker over a recorded stream of detections.
// Each input line is a JSON frame record, each output line lists the tracks
// visible on that frame.  When a video is given, detections without a
// precomputed embedding get a color histogram embedding from their crop and
// an annotated copy of the video can be written.
package main

import (
	"encoding/json"
	"flag"
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-reidtrack/crop"
	"github.com/swdee/go-reidtrack/render"
	"github.com/swdee/go-reidtrack/tracker"
	"gocv.io/x/gocv"
)

// debugEnv enables debug logging when set to a non empty value
const debugEnv = "DEBUG_REID_TRACKER"

// Replay holds the state for replaying a detection file through the tracker
type Replay struct {
	tracker *tracker.ReIDTracker
	trail   *tracker.Trail
	labels  []string
	// video is the optional source video, read one frame per record
	video *gocv.VideoCapture
	// writer is the optional annotated video output
	writer *gocv.VideoWriter
	frame  gocv.Mat
	enc    *json.Encoder
	log    logrus.FieldLogger
}

// Options are the command line options
type Options struct {
	DataFile   string
	ConfigFile string
	LabelFile  string
	VideoFile  string
	OutFile    string
	Solver     string
	Motion     string
	TrailSize  int
	LetterBox  bool
}

// NewReplay creates the tracker and opens the optional video input and output
func NewReplay(opts Options, out io.Writer, log logrus.FieldLogger) (*Replay, error) {

	cfg := tracker.DefaultConfig()

	if opts.ConfigFile != "" {
		var err error

		cfg, err = tracker.LoadConfig(opts.ConfigFile)

		if err != nil {
			return nil, errors.Wrap(err, "error loading tracker config")
		}
	}

	r := &Replay{
		trail: tracker.NewTrail(opts.TrailSize),
		enc:   json.NewEncoder(out),
		log:   log,
		frame: gocv.NewMat(),
	}

	var embedder *crop.MatEmbedder

	if opts.VideoFile != "" {
		video, err := gocv.VideoCaptureFile(opts.VideoFile)

		if err != nil {
			r.Close()
			return nil, errors.Wrap(err, "error opening video")
		}

		r.video = video
		embedder = crop.NewMatEmbedder(colorHistogram, image.Pt(64, 128))

		if opts.LetterBox {
			embedder.UseLetterBox(render.Black)
		}
	}

	var err error

	if embedder != nil {
		r.tracker, err = tracker.NewReIDTracker(cfg, embedder)
	} else {
		r.tracker, err = tracker.NewReIDTracker(cfg, nil)
	}

	if err != nil {
		r.Close()
		return nil, errors.Wrap(err, "error creating tracker")
	}

	r.tracker.UseLogger(log)

	switch opts.Solver {
	case "lapjv", "":
	case "munkres":
		r.tracker.UseSolver(tracker.MunkresSolver{})
	default:
		r.Close()
		return nil, errors.Errorf("unknown solver %q", opts.Solver)
	}

	switch opts.Motion {
	case "linear", "":
	case "kalman":
		r.tracker.UseMotion(tracker.NewKalmanMotion)
	default:
		r.Close()
		return nil, errors.Errorf("unknown motion model %q", opts.Motion)
	}

	if opts.LabelFile != "" {
		r.labels, err = loadLabels(opts.LabelFile)

		if err != nil {
			r.Close()
			return nil, err
		}
	}

	if opts.OutFile != "" {
		if r.video == nil {
			r.Close()
			return nil, errors.New("an output video requires an input video")
		}

		r.writer, err = gocv.VideoWriterFile(opts.OutFile, "MJPG",
			r.video.Get(gocv.VideoCaptureFPS),
			int(r.video.Get(gocv.VideoCaptureFrameWidth)),
			int(r.video.Get(gocv.VideoCaptureFrameHeight)), true)

		if err != nil {
			r.Close()
			return nil, errors.Wrap(err, "error opening output video")
		}
	}

	return r, nil
}

// Close releases the video resources
func (r *Replay) Close() {
	if r.writer != nil {
		r.writer.Close()
	}

	if r.video != nil {
		r.video.Close()
	}

	r.frame.Close()
}

// Run replays every record read from in
func (r *Replay) Run(in io.Reader) error {

	records := newRecordReader(in)

	for {
		rec, err := records.Next()

		if err == io.EOF {
			break
		}

		if err != nil {
			return errors.Wrap(err, "error reading detections")
		}

		if err := r.ProcessFrame(rec); err != nil {
			return err
		}
	}

	r.log.WithFields(logrus.Fields{
		"frames": r.tracker.FrameCount(),
		"tracks": r.tracker.TrackCount(),
	}).Info("replay finished")

	return nil
}

// ProcessFrame tracks the detections of one record and writes the result
func (r *Replay) ProcessFrame(rec frameRecord) error {

	dets := rec.toDetections()

	haveFrame := r.readFrame()

	if haveFrame {
		if err := crop.AttachMatCrops(r.frame, dets); err != nil {
			r.log.WithError(err).WithField("frame", rec.Frame).Warn("unable to crop detections")
		}
	}

	results, err := r.tracker.Update(rec.Frame, dets)

	if err != nil {
		return errors.Wrapf(err, "error tracking frame %d", rec.Frame)
	}

	removed := r.tracker.RemovedIDs()
	r.trail.Remove(removed...)
	r.trail.Add(results...)

	if err := r.enc.Encode(newOutputRecord(rec.Frame, results, removed)); err != nil {
		return errors.Wrap(err, "error writing results")
	}

	if haveFrame && r.writer != nil {
		render.TrackerBoxes(&r.frame, results, r.labels, render.DefaultFont(), 2)
		render.Trail(&r.frame, results, r.trail, render.DefaultTrailStyle())

		if err := r.writer.Write(r.frame); err != nil {
			return errors.Wrap(err, "error writing video frame")
		}
	}

	return nil
}

// readFrame reads the next video frame, false is returned when there is no
// video or it has ended
func (r *Replay) readFrame() bool {

	if r.video == nil {
		return false
	}

	if ok := r.video.Read(&r.frame); !ok || r.frame.Empty() {
		return false
	}

	return true
}

func main() {

	var opts Options

	flag.StringVar(&opts.DataFile, "d", "", "JSON lines file of frame detections, reads stdin when empty")
	flag.StringVar(&opts.ConfigFile, "c", "", "JSON tracker config file")
	flag.StringVar(&opts.LabelFile, "l", "", "Text file containing class labels")
	flag.StringVar(&opts.VideoFile, "video", "", "Video the detections were made on")
	flag.StringVar(&opts.OutFile, "out", "", "Write an annotated video to this file")
	flag.StringVar(&opts.Solver, "solver", "lapjv", "Assignment solver [lapjv|munkres]")
	flag.StringVar(&opts.Motion, "motion", "linear", "Track motion model [linear|kalman]")
	flag.IntVar(&opts.TrailSize, "trail", 90, "Number of points kept per track trail")
	flag.BoolVar(&opts.LetterBox, "letterbox", false, "Keep crop aspect ratio when scaling for embedding")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	if *verbose || os.Getenv(debugEnv) != "" {
		log.SetLevel(logrus.DebugLevel)
	}

	in := io.Reader(os.Stdin)

	if opts.DataFile != "" {
		f, err := os.Open(opts.DataFile)

		if err != nil {
			log.WithError(err).Fatal("error opening detections file")
		}

		defer f.Close()
		in = f
	}

	replay, err := NewReplay(opts, os.Stdout, log)

	if err != nil {
		log.WithError(err).Fatal("error creating replay")
	}

	defer replay.Close()

	if err := replay.Run(in); err != nil {
		log.WithError(err).Error("replay failed")
		replay.Close()
		os.Exit(1)
	}
}
