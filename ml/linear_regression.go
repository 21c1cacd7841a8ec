package ml

import (
	"errors"
	"fmt"
	"math"
)

// LinearRegression is an ordinary least squares model with an intercept.
type LinearRegression struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (lr *LinearRegression) Train(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("features have no columns")
	}

	// Normal equations over [1, x...].
	n := width + 1
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n+1)
	}
	for r, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, expected %d", r, len(row), width)
		}
		for i := 0; i < n; i++ {
			xi := 1.0
			if i > 0 {
				xi = row[i-1]
			}
			for j := 0; j < n; j++ {
				xj := 1.0
				if j > 0 {
					xj = row[j-1]
				}
				a[i][j] += xi * xj
			}
			a[i][n] += xi * targets[r]
		}
	}

	solution, err := solveAugmented(a)
	if err != nil {
		return err
	}
	lr.Intercept = solution[0]
	lr.Coefficients = solution[1:]
	return nil
}

func (lr *LinearRegression) Predict(row []float64) (float64, error) {
	if len(lr.Coefficients) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(row) != len(lr.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(lr.Coefficients), len(row))
	}
	result := lr.Intercept
	for i, x := range row {
		result += lr.Coefficients[i] * x
	}
	return result, nil
}

// solveAugmented runs Gaussian elimination with partial pivoting on an n x (n+1) matrix.
func solveAugmented(a [][]float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errors.New("singular design matrix")
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c <= n; c++ {
				a[r][c] -= factor * a[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := a[i][n]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, nil
}
