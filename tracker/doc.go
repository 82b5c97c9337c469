/*
Package tracker implements a multi-object tracker with appearance
re-identification.

ReIDTracker is called once per frame with the frame's detections.  Every
track's box is predicted forward with its MotionModel, then detections are
associated to tracks in stages.  The first stage pairs tracks and detections
of the same label on IoU.  Detections left over are embedded through a
reid.Embedder (or use their precomputed Feature) and matched to the left over
tracks on the Euclidean distance to each track's feature history, first
ungated with a tight threshold, then with a looser threshold restricted to
detections whose center lies inside the predicted track box.

Unmatched detections start new tracks with fresh identities, identities are
never reused.  A track is emitted while it keeps being matched and is evicted
once it goes unmatched for more than MaxAge frames.

	rt, err := tracker.NewReIDTracker(tracker.DefaultConfig(), embedder)

	for frameID, dets := range frames {
		results, err := rt.Update(frameID, dets)
		...
	}
*/
package tracker
