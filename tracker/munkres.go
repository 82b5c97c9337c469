package tracker

import (
	"fmt"

	hg "github.com/charles-haynes/munkres"
)

// MunkresSolver solves the assignment with the Kuhn-Munkres (Hungarian)
// algorithm.  It gives the same pairings as LAPJVSolver but is slower on
// large matrices, use it to cross check results.
type MunkresSolver struct{}

// Solve implements Solver
func (MunkresSolver) Solve(cost [][]float32) ([]int, error) {

	nRows, nCols, err := costDims(cost)

	if err != nil {
		return nil, err
	}

	rowsol := unmatchedRows(nRows)

	if nRows == 0 || nCols == 0 {
		return rowsol, nil
	}

	// pad to a square matrix, padded cells cost more than any real pair
	dim := nRows
	if nCols > dim {
		dim = nCols
	}

	pad := costMax(cost) + 1
	square := make([][]float64, dim)

	for i := range square {
		square[i] = make([]float64, dim)

		for j := range square[i] {
			if i < nRows && j < nCols {
				square[i][j] = float64(cost[i][j])
			} else {
				square[i][j] = pad
			}
		}
	}

	ha, err := hg.NewHungarianAlgorithm(square)

	if err != nil {
		return nil, fmt.Errorf("failed to create hungarian solver: %w", err)
	}

	matches := ha.Execute()

	for i := 0; i < nRows && i < len(matches); i++ {
		if matches[i] >= 0 && matches[i] < nCols {
			rowsol[i] = matches[i]
		}
	}

	return rowsol, nil
}
