package tracker

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-reidtrack/reid"
)

// ErrFrameOrder is returned by Update when the frame ID does not increase
var ErrFrameOrder = errors.New("frame id must be strictly increasing")

// ReIDTracker is a multi-object tracker that associates detections to tracks
// by IoU first and then by appearance embeddings.  It is not safe for
// concurrent use, calls to Update must be serialized by the caller.
type ReIDTracker struct {
	cfg Config
	// embedder extracts embeddings from detection crops, may be nil when
	// detections carry precomputed features
	embedder reid.Embedder
	solver   Solver
	motion   MotionFactory
	log      logrus.FieldLogger
	// ids allocates track identities
	ids *IDGenerator
	// tracks is the arena of active tracks in creation order
	tracks []*Track
	// frameCount is the number of frames processed
	frameCount int
	// lastFrameID is the frame ID of the previous Update
	lastFrameID uint64
	// removedIDs are the identities removed during the last Update
	removedIDs []uint64
	// featDim is the embedding length, set by the first embedding seen
	featDim int
}

// NewReIDTracker initializes and returns a new ReIDTracker.  The embedder is
// called lazily for detections that carry a Crop but no Feature.
func NewReIDTracker(cfg Config, embedder reid.Embedder) (*ReIDTracker, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &ReIDTracker{
		cfg:      cfg,
		embedder: embedder,
		solver:   LAPJVSolver{},
		motion:   NewLinearMotion,
		log:      logrus.StandardLogger(),
		ids:      NewIDGenerator(),
	}, nil
}

// UseSolver sets the assignment solver used for all association stages
func (rt *ReIDTracker) UseSolver(solver Solver) {
	rt.solver = solver
}

// UseMotion sets the motion model used for tracks created from now on
func (rt *ReIDTracker) UseMotion(motion MotionFactory) {
	rt.motion = motion
}

// UseLogger sets the logger debug output is written to
func (rt *ReIDTracker) UseLogger(log logrus.FieldLogger) {
	rt.log = log
}

// Reset clears all tracks and restarts frame counting and identity
// allocation
func (rt *ReIDTracker) Reset() {
	rt.tracks = nil
	rt.frameCount = 0
	rt.lastFrameID = 0
	rt.removedIDs = nil
	rt.featDim = 0
	rt.ids.Reset()
}

// Config returns the tracker tuning
func (rt *ReIDTracker) Config() Config {
	return rt.cfg
}

// FrameCount returns the number of frames processed since creation or Reset
func (rt *ReIDTracker) FrameCount() int {
	return rt.frameCount
}

// TrackCount returns the number of active tracks, visible or not
func (rt *ReIDTracker) TrackCount() int {
	return len(rt.tracks)
}

// RemovedIDs returns the identities removed during the last Update, either
// because their prediction degenerated or they exceeded MaxAge
func (rt *ReIDTracker) RemovedIDs() []uint64 {
	ids := make([]uint64, len(rt.removedIDs))
	copy(ids, rt.removedIDs)
	return ids
}

// matching accumulates matched (track, detection) index pairs
type matching struct {
	tracks []int
	dets   []int
}

func (m *matching) add(track, det int) {
	m.tracks = append(m.tracks, track)
	m.dets = append(m.dets, det)
}

// Update runs the tracker for one frame of detections and returns the
// visible tracks.  An error is only returned for a frame ID that does not
// increase, which leaves the tracker untouched, or when an internal
// consistency check fails.  After any other error the tracker is part way
// through the frame and must be Reset before further use.
func (rt *ReIDTracker) Update(frameID uint64, detections []Detection) ([]TrackResult, error) {

	if rt.frameCount > 0 && frameID <= rt.lastFrameID {
		return nil, fmt.Errorf("%w: got %d after %d", ErrFrameOrder, frameID, rt.lastFrameID)
	}

	rt.frameCount++
	rt.lastFrameID = frameID
	rt.removedIDs = nil

	log := rt.log.WithField("frame", frameID)

	// Step 1: predict current position of every track
	rt.predictTracks(log)

	// Step 2: nothing detected, age every track
	if len(detections) == 0 {
		for _, track := range rt.tracks {
			track.UpdateWithoutDetect()
		}

		results := rt.output()

		log.WithFields(logrus.Fields{
			"tracks":  len(rt.tracks),
			"removed": rt.removedIDs,
		}).Debug("frame without detections")

		return results, nil
	}

	// Step 3: drop malformed and low scoring detections
	dets := rt.filterDetections(log, detections)

	nTracks := len(rt.tracks)
	nDets := len(dets)

	// Step 4: first association, with IoU
	matched, err := rt.associateIoU(dets)

	if err != nil {
		return nil, err
	}

	unmatchTracks, err := findRemain(matched.tracks, nTracks)

	if err != nil {
		return nil, fmt.Errorf("fatal error after IoU association, tracks: %w", err)
	}

	unmatchDets, err := findRemain(matched.dets, nDets)

	if err != nil {
		return nil, fmt.Errorf("fatal error after IoU association, detections: %w", err)
	}

	// Step 5: embeddings are only extracted for detections IoU could not
	// place, plus every detection on refresh frames
	feats := make([][]float32, nDets)

	for _, j := range unmatchDets {
		feats[j] = rt.embed(log, &dets[j])
	}

	refresh := frameID%uint64(rt.cfg.RefreshInterval) == 0
	var allFeats [][]float32

	if refresh {
		allFeats = make([][]float32, nDets)

		for j := range dets {
			allFeats[j] = rt.embed(log, &dets[j])
		}
	}

	// Step 6 and 7: second and third association, with appearance
	if len(unmatchTracks) > 0 && len(unmatchDets) > 0 {

		err = rt.associateFeatures(dets, feats, unmatchTracks, unmatchDets, &matched)

		if err != nil {
			return nil, err
		}

		if unmatchTracks, err = findRemain(matched.tracks, nTracks); err != nil {
			return nil, fmt.Errorf("fatal error after feature association, tracks: %w", err)
		}

		if unmatchDets, err = findRemain(matched.dets, nDets); err != nil {
			return nil, fmt.Errorf("fatal error after feature association, detections: %w", err)
		}
	}

	// Step 8: init new tracks seeded with their embedding
	for _, j := range unmatchDets {
		track := newTrack(&dets[j], rt.ids, rt.motion, rt.cfg.FeatureCapacity)
		track.UpdateFeature(feats[j])
		rt.tracks = append(rt.tracks, track)
	}

	// Step 9: update matched tracks, age the rest
	for k, i := range matched.tracks {
		j := matched.dets[k]
		rt.tracks[i].UpdateDetect(&dets[j])

		if refresh {
			rt.tracks[i].UpdateFeature(allFeats[j])
		}
	}

	for _, i := range unmatchTracks {
		rt.tracks[i].UpdateWithoutDetect()
	}

	// Step 10: emit and evict
	results := rt.output()

	log.WithFields(logrus.Fields{
		"tracks":     len(rt.tracks),
		"detections": nDets,
		"matched":    len(matched.tracks),
		"born":       len(unmatchDets),
		"removed":    rt.removedIDs,
		"refresh":    refresh,
	}).Debug("frame tracked")

	return results, nil
}

// predictTracks advances every track and removes those whose predicted box
// degenerated
func (rt *ReIDTracker) predictTracks(log logrus.FieldLogger) {

	kept := rt.tracks[:0]

	for _, track := range rt.tracks {
		if !track.Predict() {
			log.WithField("track", track.GetTrackID()).Debug("prediction failed, removing track")
			rt.removedIDs = append(rt.removedIDs, track.GetTrackID())
			continue
		}

		kept = append(kept, track)
	}

	rt.compact(kept)
}

// filterDetections returns a copy of the detections with a positive size
// and a score at or above the threshold
func (rt *ReIDTracker) filterDetections(log logrus.FieldLogger, detections []Detection) []Detection {

	dets := make([]Detection, 0, len(detections))

	for _, det := range detections {
		if det.Rect.IsEmpty() || det.Prob < rt.cfg.ScoreThreshold {
			log.WithFields(logrus.Fields{
				"rect":  det.Rect.Tlwh,
				"score": det.Prob,
			}).Debug("dropping detection")
			continue
		}

		dets = append(dets, det)
	}

	return dets
}

// associateIoU matches tracks to detections on 1-IoU cost, pairs of
// different label are never matched
func (rt *ReIDTracker) associateIoU(dets []Detection) (matching, error) {

	var matched matching

	cost := make([][]float32, len(rt.tracks))

	for i, track := range rt.tracks {
		cost[i] = make([]float32, len(dets))

		for j := range dets {
			if track.GetLabel() != dets[j].Label {
				cost[i][j] = 1
				continue
			}

			cost[i][j] = 1 - track.GetRect().CalcIoU(dets[j].Rect)
		}
	}

	assign, err := rt.solve(cost, len(dets))

	if err != nil {
		return matched, fmt.Errorf("fatal error in IoU assignment: %w", err)
	}

	for i, j := range assign {
		if j < 0 || rt.tracks[i].GetLabel() != dets[j].Label {
			continue
		}

		if 1-cost[i][j] >= rt.cfg.IoUThreshold {
			matched.add(i, j)
		}
	}

	return matched, nil
}

// associateFeatures matches the remaining tracks and detections on
// appearance.  The first pass is ungated and accepts distances below
// FeatDistanceLow.  The second pass only allows pairs of the same label
// whose detection center lies inside the predicted track box and accepts
// distances below FeatDistanceHigh.
func (rt *ReIDTracker) associateFeatures(dets []Detection, feats [][]float32,
	unmatchTracks, unmatchDets []int, matched *matching) error {

	blocked := rt.cfg.FeatDistanceHigh + 1

	cost := make([][]float32, len(unmatchTracks))

	for i, ti := range unmatchTracks {
		cost[i] = make([]float32, len(unmatchDets))

		for j, dj := range unmatchDets {
			cost[i][j] = minf(rt.tracks[ti].BestMatchDistance(feats[dj]), blocked)
		}
	}

	assign, err := rt.solve(cost, len(unmatchDets))

	if err != nil {
		return fmt.Errorf("fatal error in feature assignment: %w", err)
	}

	for i, j := range assign {
		if j < 0 || cost[i][j] >= rt.cfg.FeatDistanceLow {
			continue
		}

		matched.add(unmatchTracks[i], unmatchDets[j])

		// consume the row and column for the gated pass
		for r := range cost {
			cost[r][j] = blocked
		}

		for c := range cost[i] {
			cost[i][c] = blocked
		}
	}

	for i, ti := range unmatchTracks {
		track := rt.tracks[ti]

		for j, dj := range unmatchDets {
			cx, cy := dets[dj].Rect.Center()

			if track.GetLabel() != dets[dj].Label || !track.GetRect().ContainsPoint(cx, cy) {
				cost[i][j] = blocked
			}
		}
	}

	assign, err = rt.solve(cost, len(unmatchDets))

	if err != nil {
		return fmt.Errorf("fatal error in gated feature assignment: %w", err)
	}

	for i, j := range assign {
		if j >= 0 && cost[i][j] < rt.cfg.FeatDistanceHigh {
			matched.add(unmatchTracks[i], unmatchDets[j])
		}
	}

	return nil
}

// solve runs the solver and checks the assignment is well formed
func (rt *ReIDTracker) solve(cost [][]float32, nCols int) ([]int, error) {

	assign, err := rt.solver.Solve(cost)

	if err != nil {
		return nil, err
	}

	if len(assign) != len(cost) {
		return nil, fmt.Errorf("assignment has %d rows, cost matrix has %d",
			len(assign), len(cost))
	}

	for i, j := range assign {
		if j >= nCols {
			return nil, fmt.Errorf("row %d assigned to column %d of %d", i, j, nCols)
		}
	}

	return assign, nil
}

// embed returns the detection's embedding, running the embedder on its crop
// when no precomputed feature is present.  Embedder failures and embeddings
// that are empty or of a different length than earlier ones are logged and
// leave the detection without an embedding.
func (rt *ReIDTracker) embed(log logrus.FieldLogger, det *Detection) []float32 {

	feat := det.Feature

	if feat == nil {
		if det.Crop == nil || rt.embedder == nil {
			return nil
		}

		var err error
		feat, err = rt.embedder.Embed(det.Crop)

		if err != nil {
			log.WithError(err).WithField("detection", det.Index).Warn("embedding extraction failed")
			return nil
		}
	}

	switch {
	case len(feat) == 0:
		log.WithField("detection", det.Index).Warn("empty embedding")
		return nil
	case rt.featDim == 0:
		rt.featDim = len(feat)
	case len(feat) != rt.featDim:
		log.WithFields(logrus.Fields{
			"detection": det.Index,
			"length":    len(feat),
			"expected":  rt.featDim,
		}).Warn("embedding length mismatch")
		return nil
	}

	return feat
}

// output collects the visible tracks and evicts those unmatched for longer
// than MaxAge
func (rt *ReIDTracker) output() []TrackResult {

	results := make([]TrackResult, 0, len(rt.tracks))
	kept := rt.tracks[:0]

	for _, track := range rt.tracks {
		if track.IsVisible(rt.frameCount, rt.cfg.MinHits) {
			results = append(results, track.Result())
		}

		if track.GetTimeSinceUpdate() > rt.cfg.MaxAge {
			rt.removedIDs = append(rt.removedIDs, track.GetTrackID())
			continue
		}

		kept = append(kept, track)
	}

	rt.compact(kept)

	return results
}

// compact replaces the arena with kept, a prefix-filtered view of it,
// releasing dropped tracks
func (rt *ReIDTracker) compact(kept []*Track) {

	for i := len(kept); i < len(rt.tracks); i++ {
		rt.tracks[i] = nil
	}

	rt.tracks = kept
}

// findRemain returns the indices in [0,n) not present in matched.  It fails
// when matched holds duplicates or out of range indices, so matched and the
// result always partition the range exactly once.
func findRemain(matched []int, n int) ([]int, error) {

	seen := make([]bool, n)

	for _, idx := range matched {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("matched index %d outside [0,%d)", idx, n)
		}

		if seen[idx] {
			return nil, fmt.Errorf("index %d matched twice", idx)
		}

		seen[idx] = true
	}

	remain := make([]int, 0, n-len(matched))

	for i, s := range seen {
		if !s {
			remain = append(remain, i)
		}
	}

	return remain, nil
}
