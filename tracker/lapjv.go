package tracker

import (
	"errors"
	"fmt"
	"math"
)

// lapjvLarge is an upper bound on any cost handled by the dense solver
const lapjvLarge = 1000000.0

// Solver computes a minimum total cost one-to-one pairing between the rows
// and columns of a cost matrix.  The returned assignment has one entry per
// row holding the paired column, or -1 when the row is left unmatched.
// Implementations must accept empty and rectangular matrices.
type Solver interface {
	Solve(cost [][]float32) ([]int, error)
}

// LAPJVSolver solves the linear assignment problem with the Jonker-Volgenant
// algorithm.  Rectangular matrices are extended to a square matrix so every
// real pairing is preferred over leaving a row unmatched.
type LAPJVSolver struct {
	// CostLimit when greater than zero leaves any pair costing more than
	// the limit unmatched
	CostLimit float32
}

// Solve implements Solver
func (s LAPJVSolver) Solve(cost [][]float32) ([]int, error) {

	nRows, nCols, err := costDims(cost)

	if err != nil {
		return nil, err
	}

	rowsol := unmatchedRows(nRows)

	if nRows == 0 || nCols == 0 {
		return rowsol, nil
	}

	// cost of leaving a row or column unmatched
	var pad float64

	if s.CostLimit > 0 {
		pad = float64(s.CostLimit) / 2
	} else {
		pad = costMax(cost) + 1
	}

	if pad >= lapjvLarge {
		return nil, fmt.Errorf("cost matrix values must be below %v", lapjvLarge)
	}

	n := nRows + nCols
	extended := make([][]float64, n)

	for i := range extended {
		extended[i] = make([]float64, n)

		for j := range extended[i] {
			switch {
			case i < nRows && j < nCols:
				extended[i][j] = float64(cost[i][j])
			case i >= nRows && j >= nCols:
				extended[i][j] = 0
			default:
				extended[i][j] = pad
			}
		}
	}

	x, _, err := solveDense(extended)

	if err != nil {
		return nil, err
	}

	for i := 0; i < nRows; i++ {
		if x[i] >= 0 && x[i] < nCols {
			rowsol[i] = x[i]
		}
	}

	return rowsol, nil
}

// costDims validates the cost matrix shape and returns its dimensions
func costDims(cost [][]float32) (int, int, error) {

	if len(cost) == 0 {
		return 0, 0, nil
	}

	nCols := len(cost[0])

	for i, row := range cost {
		if len(row) != nCols {
			return 0, 0, fmt.Errorf("cost matrix row %d has %d columns, expected %d",
				i, len(row), nCols)
		}

		for _, c := range row {
			if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
				return 0, 0, errors.New("cost matrix contains a non finite value")
			}
		}
	}

	return len(cost), nCols, nil
}

// costMax returns the largest entry of a non-empty cost matrix
func costMax(cost [][]float32) float64 {
	m := math.Inf(-1)

	for _, row := range cost {
		for _, c := range row {
			if float64(c) > m {
				m = float64(c)
			}
		}
	}

	return m
}

// unmatchedRows returns an assignment with every row unmatched
func unmatchedRows(n int) []int {
	rowsol := make([]int, n)

	for i := range rowsol {
		rowsol[i] = -1
	}

	return rowsol
}

// lapjv holds the working state of the dense Jonker-Volgenant solver
type lapjv struct {
	n    int
	cost [][]float64
	// x is the column assigned to each row, y the row assigned to each column
	x, y []int
	// v is the column dual
	v        []float64
	freeRows []int
}

// solveDense solves the square assignment problem for the n x n cost matrix
// returning the row and column solutions
func solveDense(cost [][]float64) ([]int, []int, error) {

	n := len(cost)

	l := &lapjv{
		n:        n,
		cost:     cost,
		x:        make([]int, n),
		y:        make([]int, n),
		v:        make([]float64, n),
		freeRows: make([]int, n),
	}

	if n == 0 {
		return l.x, l.y, nil
	}

	nFree := l.columnReduction()

	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = l.augmentingRowReduction(nFree)
	}

	if nFree > 0 {
		if err := l.augment(nFree); err != nil {
			return nil, nil, fmt.Errorf("lapjv augmentation failed: %w", err)
		}
	}

	return l.x, l.y, nil
}

// columnReduction performs column-reduction and reduction transfer, returning
// the number of rows left free
func (l *lapjv) columnReduction() int {

	n := l.n
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		l.x[i] = -1
		l.v[i] = lapjvLarge
		l.y[i] = 0
		unique[i] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := l.cost[i][j]; c < l.v[j] {
				l.v[j] = c
				l.y[j] = i
			}
		}
	}

	for j := n - 1; j >= 0; j-- {
		i := l.y[j]

		if l.x[i] < 0 {
			l.x[i] = j
		} else {
			unique[i] = false
			l.y[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if l.x[i] < 0 {
			l.freeRows[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := l.x[i]
		minVal := lapjvLarge

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}

			if c := l.cost[i][j2] - l.v[j2]; c < minVal {
				minVal = c
			}
		}

		l.v[j] -= minVal
	}

	return nFree
}

// augmentingRowReduction tries to assign free rows by lowering column duals,
// returning the number of rows still free
func (l *lapjv) augmentingRowReduction(nFree int) int {

	n := l.n
	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := l.freeRows[current]
		current++

		// find the lowest and second lowest reduced cost in the row
		j1 := 0
		v1 := l.cost[freeI][0] - l.v[0]
		j2 := -1
		v2 := lapjvLarge

		for j := 1; j < n; j++ {
			c := l.cost[freeI][j] - l.v[j]

			if c >= v2 {
				continue
			}

			if c >= v1 {
				v2 = c
				j2 = j
			} else {
				v2, j2 = v1, j1
				v1, j1 = c, j
			}
		}

		i0 := l.y[j1]
		v1New := l.v[j1] - (v2 - v1)
		v1Lowers := v1New < l.v[j1]

		switch {
		case rrCnt < current*n:
			if v1Lowers {
				l.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = l.y[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					l.freeRows[current] = i0
				} else {
					l.freeRows[newFree] = i0
					newFree++
				}
			}

		case i0 >= 0:
			l.freeRows[newFree] = i0
			newFree++
		}

		l.x[freeI] = j1
		l.y[j1] = freeI
	}

	return newFree
}

// findMinCols moves the columns with minimum d[j] onto the SCAN list
// starting at lo and returns the new end of the list
func (l *lapjv) findMinCols(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < l.n; k++ {

		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scan uses the columns on the SCAN list to lower d of the TODO columns.
// Returns a free column when one is reached at minimum distance, or -1.
func (l *lapjv) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := l.y[j]
		mind := d[j]
		h := l.cost[i][j] - l.v[j] - mind

		for k := *hi; k < l.n; k++ {
			j = cols[k]
			credIJ := l.cost[i][j] - l.v[j] - h

			if credIJ >= d[j] {
				continue
			}

			d[j] = credIJ
			pred[j] = i

			if credIJ == mind {
				if l.y[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				*hi++
			}
		}
	}

	return -1
}

// shortestPath runs one iteration of the modified Dijkstra search from the
// free row startI and returns the free column ending the augmenting path
func (l *lapjv) shortestPath(startI int, pred []int) int {

	n := l.n
	lo, hi, nReady := 0, 0, 0
	finalJ := -1
	cols := make([]int, n)
	d := make([]float64, n)

	for j := 0; j < n; j++ {
		cols[j] = j
		pred[j] = startI
		d[j] = l.cost[startI][j] - l.v[j]
	}

	for finalJ == -1 {
		// no columns left on the SCAN list
		if lo == hi {
			nReady = lo
			hi = l.findMinCols(lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; l.y[j] < 0 {
					finalJ = j
				}
			}
		}

		if finalJ == -1 {
			finalJ = l.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for _, j := range cols[:nReady] {
		l.v[j] += d[j] - mind
	}

	return finalJ
}

// augment assigns each remaining free row along its shortest augmenting path
func (l *lapjv) augment(nFree int) error {

	pred := make([]int, l.n)

	for _, freeI := range l.freeRows[:nFree] {

		j := l.shortestPath(freeI, pred)

		if j < 0 || j >= l.n {
			return fmt.Errorf("augmenting path ended at invalid column %d", j)
		}

		i := -1

		for k := 0; i != freeI; k++ {
			if k >= l.n {
				return errors.New("augmenting path longer than matrix size")
			}

			i = pred[j]
			l.y[j] = i
			j, l.x[i] = l.x[i], j
		}
	}

	return nil
}
