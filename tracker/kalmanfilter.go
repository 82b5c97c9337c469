package tracker

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// kalmanFilter is a constant velocity Kalman filter over the 8 dimensional
// state (cx, cy, aspect, h, vx, vy, va, vh) observing (cx, cy, aspect, h)
type kalmanFilter struct {
	stdWeightPosition float64
	stdWeightVelocity float64
	motionMat         *mat.Dense
	updateMat         *mat.Dense
}

// newKalmanFilter initializes and returns a new kalmanFilter
func newKalmanFilter(stdWeightPosition, stdWeightVelocity float64) *kalmanFilter {

	const ndim = 4
	const dt = 1.0

	// identity with the velocity coupled into position
	motionMat := mat.NewDense(2*ndim, 2*ndim, nil)

	for i := 0; i < 2*ndim; i++ {
		motionMat.Set(i, i, 1)
	}

	for i := 0; i < ndim; i++ {
		motionMat.Set(i, ndim+i, dt)
	}

	// observation picks the first four state components
	updateMat := mat.NewDense(ndim, 2*ndim, nil)

	for i := 0; i < ndim; i++ {
		updateMat.Set(i, i, 1)
	}

	return &kalmanFilter{
		stdWeightPosition: stdWeightPosition,
		stdWeightVelocity: stdWeightVelocity,
		motionMat:         motionMat,
		updateMat:         updateMat,
	}
}

// diagSquared returns a diagonal matrix holding the squares of std
func diagSquared(std []float64) *mat.DiagDense {
	vars := make([]float64, len(std))

	for i, s := range std {
		vars[i] = s * s
	}

	return mat.NewDiagDense(len(std), vars)
}

// initiate creates the state mean and covariance from an unassociated
// measurement, velocities start at zero
func (kf *kalmanFilter) initiate(measurement Xyah) (*mat.VecDense, *mat.Dense) {

	mean := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		mean.SetVec(i, float64(measurement[i]))
	}

	h := float64(measurement[3])
	pos := 2 * kf.stdWeightPosition * h
	vel := 10 * kf.stdWeightVelocity * h

	cov := mat.NewDense(8, 8, nil)
	cov.Copy(diagSquared([]float64{pos, pos, 1e-2, pos, vel, vel, 1e-5, vel}))

	return mean, cov
}

// predict runs the prediction step in place on mean and covariance
func (kf *kalmanFilter) predict(mean *mat.VecDense, cov *mat.Dense) {

	h := mean.AtVec(3)
	pos := kf.stdWeightPosition * h
	vel := kf.stdWeightVelocity * h
	motionCov := diagSquared([]float64{pos, pos, 1e-2, pos, vel, vel, 1e-5, vel})

	var next mat.VecDense
	next.MulVec(kf.motionMat, mean)
	mean.CopyVec(&next)

	var tmp mat.Dense
	tmp.Mul(kf.motionMat, cov)
	cov.Mul(&tmp, kf.motionMat.T())
	cov.Add(cov, motionCov)
}

// project maps the state distribution into measurement space
func (kf *kalmanFilter) project(mean *mat.VecDense, cov *mat.Dense) (*mat.VecDense, *mat.SymDense) {

	h := mean.AtVec(3)
	pos := kf.stdWeightPosition * h
	innovation := []float64{pos, pos, 1e-1, pos}

	projMean := mat.NewVecDense(4, nil)
	projMean.MulVec(kf.updateMat, mean)

	var tmp, full mat.Dense
	tmp.Mul(kf.updateMat, cov)
	full.Mul(&tmp, kf.updateMat.T())

	projCov := mat.NewSymDense(4, nil)

	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			projCov.SetSym(i, j, full.At(i, j))
		}
		projCov.SetSym(i, i, projCov.At(i, i)+innovation[i]*innovation[i])
	}

	return projMean, projCov
}

// update runs the correction step in place on mean and covariance
func (kf *kalmanFilter) update(mean *mat.VecDense, cov *mat.Dense, measurement Xyah) error {

	projMean, projCov := kf.project(mean, cov)

	var chol mat.Cholesky

	if ok := chol.Factorize(projCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// kalman gain (4x8) solves projCov * K = (P * H^T)^T
	var b mat.Dense
	b.Mul(cov, kf.updateMat.T())

	var gain mat.Dense

	if err := chol.SolveTo(&gain, b.T()); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	residual := mat.NewVecDense(4, nil)

	for i := 0; i < 4; i++ {
		residual.SetVec(i, float64(measurement[i])-projMean.AtVec(i))
	}

	var delta mat.VecDense
	delta.MulVec(gain.T(), residual)
	mean.AddVec(mean, &delta)

	var kp, kpk mat.Dense
	kp.Mul(gain.T(), projCov)
	kpk.Mul(&kp, &gain)
	cov.Sub(cov, &kpk)

	return nil
}

// KalmanMotion is a MotionModel backed by a constant velocity Kalman filter
// in (center x, center y, aspect ratio, height) space
type KalmanMotion struct {
	kf   *kalmanFilter
	mean *mat.VecDense
	cov  *mat.Dense
	rect Rect
	// lost is set while the track goes without a measurement
	lost bool
}

// NewKalmanMotion is a MotionFactory creating a KalmanMotion seeded from the
// initial box
func NewKalmanMotion(initial Rect) MotionModel {
	kf := newKalmanFilter(1.0/20, 1.0/160)
	mean, cov := kf.initiate(initial.GetXyah())

	return &KalmanMotion{
		kf:   kf,
		mean: mean,
		cov:  cov,
		rect: initial,
	}
}

// Predict implements MotionModel
func (k *KalmanMotion) Predict() (Rect, bool) {

	if k.lost {
		k.mean.SetVec(7, 0)
	}

	k.kf.predict(k.mean, k.cov)
	k.rect = k.meanRect()

	return k.rect, !k.rect.IsEmpty()
}

// Update implements MotionModel.  When the projected covariance can not be
// factorized the state is re-initiated from the measurement.
func (k *KalmanMotion) Update(measured Rect) {

	xyah := measured.GetXyah()

	if err := k.kf.update(k.mean, k.cov, xyah); err != nil {
		k.mean, k.cov = k.kf.initiate(xyah)
	}

	k.lost = false
	k.rect = k.meanRect()
}

// AgeWithoutMeasurement implements MotionModel
func (k *KalmanMotion) AgeWithoutMeasurement() {
	k.lost = true
}

// Rect implements MotionModel
func (k *KalmanMotion) Rect() Rect {
	return k.rect
}

// meanRect converts the state mean to a Rect
func (k *KalmanMotion) meanRect() Rect {
	return GenerateRectByXyah(Xyah{
		float32(k.mean.AtVec(0)),
		float32(k.mean.AtVec(1)),
		float32(k.mean.AtVec(2)),
		float32(k.mean.AtVec(3)),
	})
}
