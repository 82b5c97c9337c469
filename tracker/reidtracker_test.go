package tracker

import (
	"errors"
	"image"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed embedding per crop and counts calls
type stubEmbedder struct {
	feats map[image.Image][]float32
	err   error
	calls int
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{feats: make(map[image.Image][]float32)}
}

func (s *stubEmbedder) Embed(crop image.Image) ([]float32, error) {
	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	return s.feats[crop], nil
}

// crop returns a new crop image the embedder maps to feat
func (s *stubEmbedder) crop(feat []float32) image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	s.feats[img] = feat
	return img
}

func det(x, y, w, h float32, label int, feat []float32) Detection {
	d := NewDetection(NewRect(x, y, w, h), label, 0.9, 0)
	d.Feature = feat
	return d
}

// indexed sets each detection's Index to its position
func indexed(dets ...Detection) []Detection {
	for i := range dets {
		dets[i].Index = i
	}
	return dets
}

func newTestTracker(t *testing.T, cfg Config) *ReIDTracker {
	t.Helper()

	rt, err := NewReIDTracker(cfg, nil)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	rt.UseLogger(logger)

	return rt
}

func resultIDs(results []TrackResult) []uint64 {
	ids := make([]uint64, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids
}

func TestNewReIDTrackerInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeatureCapacity = 0

	_, err := NewReIDTracker(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func runIoUScenario(t *testing.T, rt *ReIDTracker) {

	results, err := rt.Update(1, indexed(
		det(0, 0, 50, 50, 0, nil),
		det(100, 100, 50, 50, 0, nil),
	))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, resultIDs(results))

	results, err = rt.Update(2, indexed(
		det(2, 2, 50, 50, 0, nil),
		det(300, 300, 50, 50, 0, nil),
	))
	require.NoError(t, err)

	// detection 0 continues track 1, detection 1 starts track 3
	require.Equal(t, []uint64{1, 3}, resultIDs(results))
	assert.Equal(t, 0, results[0].DetectionIndex)
	assert.Equal(t, 1, results[1].DetectionIndex)

	// track 2 aged without update
	require.Equal(t, 3, rt.TrackCount())
	assert.Equal(t, uint64(2), rt.tracks[1].GetTrackID())
	assert.Equal(t, 1, rt.tracks[1].GetTimeSinceUpdate())
	assert.Equal(t, 0, rt.tracks[1].GetHitStreak())
}

func TestUpdateIoUAssociation(t *testing.T) {
	runIoUScenario(t, newTestTracker(t, DefaultConfig()))
}

func TestUpdateWithMunkresAndKalman(t *testing.T) {
	rt := newTestTracker(t, DefaultConfig())
	rt.UseSolver(MunkresSolver{})
	rt.UseMotion(NewKalmanMotion)

	runIoUScenario(t, rt)
}

func TestUpdateLabelMismatch(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(1, indexed(det(0, 0, 50, 50, 0, nil)))
	require.NoError(t, err)

	results, err := rt.Update(2, indexed(det(0, 0, 50, 50, 1, nil)))
	require.NoError(t, err)

	assert.Equal(t, []uint64{2}, resultIDs(results))
	assert.Equal(t, 2, rt.TrackCount())
}

func TestUpdateEmptyHistoryNeverMatches(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	// track created without an embedding
	_, err := rt.Update(1, indexed(det(0, 0, 100, 100, 0, nil)))
	require.NoError(t, err)
	require.Equal(t, 0, rt.tracks[0].Features().Len())

	// low IoU, center inside the track box, but nothing to compare against
	results, err := rt.Update(2, indexed(det(40, 40, 100, 30, 0, []float32{1, 0})))
	require.NoError(t, err)

	assert.Equal(t, []uint64{2}, resultIDs(results))
	assert.Equal(t, 1, rt.tracks[0].GetTimeSinceUpdate())
}

func TestUpdateUngatedFeatureMatch(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(1, indexed(det(0, 0, 50, 50, 0, []float32{1, 0})))
	require.NoError(t, err)

	// far away but a close appearance
	results, err := rt.Update(2, indexed(det(400, 400, 50, 50, 0, []float32{0.995, 0.0998})))
	require.NoError(t, err)

	require.Equal(t, []uint64{1}, resultIDs(results))
	assert.Equal(t, NewRect(400, 400, 50, 50), results[0].Rect)
	assert.Equal(t, 1, rt.TrackCount())
}

func TestUpdateGatedFeatureMatch(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(1, indexed(det(0, 0, 100, 100, 0, []float32{1, 0})))
	require.NoError(t, err)

	// distance 0.894 is above the ungated threshold, the center lies
	// inside the track so the gated pass accepts it
	results, err := rt.Update(2, indexed(det(40, 40, 100, 30, 0, []float32{0.6, 0.8})))
	require.NoError(t, err)

	assert.Equal(t, []uint64{1}, resultIDs(results))
	assert.Equal(t, 1, rt.TrackCount())
}

func TestUpdateGatedFeatureRequiresCenter(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(1, indexed(det(0, 0, 100, 100, 0, []float32{1, 0})))
	require.NoError(t, err)

	// same appearance distance as the gated match but the center is outside
	results, err := rt.Update(2, indexed(det(150, 150, 100, 30, 0, []float32{0.6, 0.8})))
	require.NoError(t, err)

	assert.Equal(t, []uint64{2}, resultIDs(results))
	assert.Equal(t, 2, rt.TrackCount())
}

func TestUpdateGatedFeatureRequiresLabel(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(1, indexed(det(0, 0, 100, 100, 0, []float32{1, 0})))
	require.NoError(t, err)

	results, err := rt.Update(2, indexed(det(40, 40, 100, 30, 1, []float32{0.6, 0.8})))
	require.NoError(t, err)

	assert.Equal(t, []uint64{2}, resultIDs(results))
}

func TestUpdateLazyEmbedding(t *testing.T) {

	emb := newStubEmbedder()

	rt, err := NewReIDTracker(DefaultConfig(), emb)
	require.NoError(t, err)

	cropA := emb.crop([]float32{1, 0})
	cropB := emb.crop([]float32{0, 1})

	frame := func() []Detection {
		a := det(0, 0, 50, 50, 0, nil)
		a.Crop = cropA
		b := det(200, 0, 50, 50, 0, nil)
		b.Crop = cropB
		return indexed(a, b)
	}

	// both detections start tracks and need an embedding
	_, err = rt.Update(1, frame())
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)

	// both matched on IoU, no embedding needed
	_, err = rt.Update(2, frame())
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)

	for _, track := range rt.tracks {
		assert.Equal(t, 1, track.Features().Len())
	}

	// refresh frame embeds every detection
	_, err = rt.Update(5, frame())
	require.NoError(t, err)
	assert.Equal(t, 4, emb.calls)

	for _, track := range rt.tracks {
		assert.Equal(t, 2, track.Features().Len())
	}
}

func TestUpdateRefreshFrame(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(1, indexed(
		det(0, 0, 50, 50, 0, []float32{1, 0}),
		det(200, 0, 50, 50, 0, []float32{0, 1}),
	))
	require.NoError(t, err)

	_, err = rt.Update(5, indexed(
		det(1, 0, 50, 50, 0, []float32{1, 0}),
		det(201, 0, 50, 50, 0, []float32{0, 1}),
		det(600, 600, 50, 50, 0, []float32{-1, 0}),
	))
	require.NoError(t, err)

	require.Equal(t, 3, rt.TrackCount())
	assert.Equal(t, 2, rt.tracks[0].Features().Len())
	assert.Equal(t, 2, rt.tracks[1].Features().Len())
	assert.Equal(t, 1, rt.tracks[2].Features().Len())
}

func TestUpdateAgingAndEviction(t *testing.T) {

	cfg := DefaultConfig()
	cfg.MaxAge = 2

	rt := newTestTracker(t, cfg)

	_, err := rt.Update(1, indexed(det(0, 0, 50, 50, 0, nil)))
	require.NoError(t, err)

	for frame := uint64(2); frame <= 3; frame++ {
		results, err := rt.Update(frame, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Empty(t, rt.RemovedIDs())
		assert.Equal(t, 1, rt.TrackCount())
	}

	assert.Equal(t, 2, rt.tracks[0].GetTimeSinceUpdate())

	_, err = rt.Update(4, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, rt.RemovedIDs())
	assert.Equal(t, 0, rt.TrackCount())

	// identities are never reused
	results, err := rt.Update(5, indexed(det(0, 0, 50, 50, 0, nil)))
	require.NoError(t, err)
	assert.Empty(t, rt.RemovedIDs())
	assert.Equal(t, 1, rt.TrackCount())
	assert.Equal(t, uint64(2), rt.tracks[0].GetTrackID())
	assert.Empty(t, results, "new track past warm up is not yet visible")
}

func TestUpdateUnmatchedTracksAgeOnDetectionFrames(t *testing.T) {

	cfg := DefaultConfig()
	cfg.MaxAge = 1

	rt := newTestTracker(t, cfg)

	_, err := rt.Update(1, indexed(det(0, 0, 50, 50, 0, nil)))
	require.NoError(t, err)

	for frame := uint64(2); frame <= 3; frame++ {
		_, err = rt.Update(frame, indexed(det(500, 500, 50, 50, 0, nil)))
		require.NoError(t, err)
	}

	assert.Equal(t, []uint64{1}, rt.RemovedIDs())
	assert.Equal(t, 1, rt.TrackCount())
}

func TestUpdateWarmUpVisibility(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	a := det(0, 0, 50, 50, 0, nil)
	b := det(300, 0, 50, 50, 0, nil)

	for frame := uint64(1); frame <= 3; frame++ {
		results, err := rt.Update(frame, indexed(a))
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, resultIDs(results), "frame %d", frame)
	}

	// past warm up, the new track needs MinHits consecutive matches
	expect := [][]uint64{{1}, {1}, {1}, {1, 2}}

	for i, ids := range expect {
		frame := uint64(4 + i)
		results, err := rt.Update(frame, indexed(a, b))
		require.NoError(t, err)
		assert.Equal(t, ids, resultIDs(results), "frame %d", frame)
	}
}

func TestUpdateFiltersDetections(t *testing.T) {

	cfg := DefaultConfig()
	cfg.ScoreThreshold = 0.5

	rt := newTestTracker(t, cfg)

	low := det(0, 0, 50, 50, 0, nil)
	low.Prob = 0.3

	results, err := rt.Update(1, indexed(
		low,
		det(100, 100, 0, 50, 0, nil),
		det(200, 200, 50, 50, 0, nil),
	))
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].DetectionIndex)
	assert.Equal(t, 1, rt.TrackCount())
}

func TestUpdateFrameOrder(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(5, nil)
	require.NoError(t, err)

	_, err = rt.Update(5, nil)
	assert.ErrorIs(t, err, ErrFrameOrder)

	_, err = rt.Update(3, nil)
	assert.ErrorIs(t, err, ErrFrameOrder)

	assert.Equal(t, 1, rt.FrameCount())
}

func TestUpdateEmbedderError(t *testing.T) {

	emb := newStubEmbedder()
	emb.err = errors.New("npu busy")

	rt, err := NewReIDTracker(DefaultConfig(), emb)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	rt.UseLogger(logger)

	d := det(0, 0, 50, 50, 0, nil)
	d.Crop = emb.crop([]float32{1, 0})

	results, err := rt.Update(1, indexed(d))
	require.NoError(t, err)

	assert.Len(t, results, 1)
	assert.Equal(t, 0, rt.tracks[0].Features().Len())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestReset(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(10, indexed(det(0, 0, 50, 50, 0, nil)))
	require.NoError(t, err)

	rt.Reset()

	assert.Equal(t, 0, rt.FrameCount())
	assert.Equal(t, 0, rt.TrackCount())

	// frame ids may start over and identities restart at 1
	results, err := rt.Update(1, indexed(det(0, 0, 50, 50, 0, nil)))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, resultIDs(results))
}

// failingSolver returns an assignment with a repeated column
type failingSolver struct{}

func (failingSolver) Solve(cost [][]float32) ([]int, error) {
	assign := make([]int, len(cost))
	return assign, nil
}

func TestUpdateRejectsInvalidAssignment(t *testing.T) {

	rt := newTestTracker(t, DefaultConfig())

	_, err := rt.Update(1, indexed(
		det(0, 0, 50, 50, 0, nil),
		det(5, 0, 50, 50, 0, nil),
	))
	require.NoError(t, err)

	rt.UseSolver(failingSolver{})

	_, err = rt.Update(2, indexed(
		det(0, 0, 50, 50, 0, nil),
		det(5, 0, 50, 50, 0, nil),
	))
	require.Error(t, err)

	// usable again once reset
	rt.UseSolver(LAPJVSolver{})
	rt.Reset()

	results, err := rt.Update(1, indexed(det(0, 0, 50, 50, 0, nil)))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, resultIDs(results))
}

func TestUpdateIgnoresMalformedEmbeddings(t *testing.T) {

	tests := []struct {
		name string
		feat []float32
	}{
		{"empty", []float32{}},
		{"longer", []float32{1, 0, 9, 9, 9}},
		{"shorter", []float32{1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			rt, err := NewReIDTracker(DefaultConfig(), nil)
			require.NoError(t, err)

			logger, hook := test.NewNullLogger()
			rt.UseLogger(logger)

			_, err = rt.Update(1, indexed(det(0, 0, 50, 50, 0, []float32{1, 0})))
			require.NoError(t, err)

			// far away so only appearance could match it to track 1
			results, err := rt.Update(2, indexed(det(400, 400, 50, 50, 0, tc.feat)))
			require.NoError(t, err)

			assert.Equal(t, []uint64{2}, resultIDs(results))
			require.Equal(t, 2, rt.TrackCount())
			assert.Equal(t, 0, rt.tracks[1].Features().Len())

			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		})
	}
}

func TestUpdateLargeFeatureDistance(t *testing.T) {

	cfg := DefaultConfig()
	cfg.FeatDistanceHigh = 2.0

	rt := newTestTracker(t, cfg)

	_, err := rt.Update(1, indexed(det(0, 0, 50, 50, 0, []float32{0, 0})))
	require.NoError(t, err)

	// unnormalized embeddings far beyond any threshold
	results, err := rt.Update(2, indexed(det(400, 400, 50, 50, 0, []float32{1e7, 0})))
	require.NoError(t, err)

	assert.Equal(t, []uint64{2}, resultIDs(results))
	assert.Equal(t, 2, rt.TrackCount())
}
