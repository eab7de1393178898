// Package stats provides the scalar statistics the base-calling core needs
// outside the dense matrix kernel: sample mean/variance, the Cauchy
// robustness weight used by the MPN estimator's per-cluster weighting step,
// ordinary linear regression, and the Weibull distribution used to model
// quality-score tail behaviour.
//
// Accumulate-then-finalize: each statistic walks its sample once building
// running sums, then derives the result in a second, allocation-free pass,
// the same shape the covariance package uses for its per-cycle sweep.
package stats

import "math"

// Mean returns the arithmetic mean of x.
// Returns ErrEmptySample if x has zero length. Complexity: O(n).
func Mean(x []float64) (float64, error) {
	n := len(x)
	if n == 0 {
		return 0, ErrEmptySample
	}
	var sum float64
	var i int
	for i = 0; i < n; i++ {
		sum += x[i]
	}

	return sum / float64(n), nil
}

// Variance returns the population variance of x (divisor n, not n-1):
// the MPN estimator weights clusters relative to the full observed
// population, not a sample drawn from it.
// Returns ErrEmptySample if x has zero length. Complexity: O(n).
func Variance(x []float64) (float64, error) {
	mean, err := Mean(x)
	if err != nil {
		return 0, err
	}
	n := len(x)
	var sumSq float64
	var i int
	var d float64
	for i = 0; i < n; i++ {
		d = x[i] - mean
		sumSq += d * d
	}

	return sumSq / float64(n), nil
}

// Cauchy returns the Cauchy-style robustness weight s/(xSquared+s), used by
// the MPN estimator to down-weight clusters whose residual sum of squares
// lies far from the population centre. Degenerates to 1 at xSquared==0 and
// decays toward 0 as xSquared grows; s<=0 (a degenerate, zero-variance
// population) yields weight 1 for every cluster, since there is no spread
// to discriminate against.
// Complexity: O(1).
func Cauchy(xSquared, s float64) float64 {
	if s <= 0 {
		return 1.0
	}

	return s / (xSquared + s)
}

// LinearRegressionResult holds the fitted slope/intercept of an ordinary
// least-squares line y = slope*x + intercept.
type LinearRegressionResult struct {
	Slope     float64
	Intercept float64
}

// LinearRegression fits y = slope*x + intercept by ordinary least squares.
// Returns ErrEmptySample if x or y is empty, stats.ErrInvalidParam if their
// lengths differ. A degenerate x (zero variance) yields slope 0 and
// intercept equal to mean(y).
// Complexity: O(n).
func LinearRegression(x, y []float64) (LinearRegressionResult, error) {
	if len(x) == 0 || len(y) == 0 {
		return LinearRegressionResult{}, ErrEmptySample
	}
	if len(x) != len(y) {
		return LinearRegressionResult{}, ErrInvalidParam
	}
	n := len(x)
	mx, _ := Mean(x)
	my, _ := Mean(y)

	var sxy, sxx float64
	var i int
	var dx, dy float64
	for i = 0; i < n; i++ {
		dx = x[i] - mx
		dy = y[i] - my
		sxy += dx * dy
		sxx += dx * dx
	}
	if sxx == 0 {
		return LinearRegressionResult{Slope: 0, Intercept: my}, nil
	}
	slope := sxy / sxx
	intercept := my - slope*mx

	return LinearRegressionResult{Slope: slope, Intercept: intercept}, nil
}

// WeibullP returns the CDF of the two-parameter Weibull distribution
// (shape k, scale lambda) at x. Returns 0 for x<0.
// Returns ErrInvalidParam if k<=0 or lambda<=0. Complexity: O(1).
func WeibullP(x, k, lambda float64) (float64, error) {
	if k <= 0 || lambda <= 0 {
		return 0, ErrInvalidParam
	}
	if x < 0 {
		return 0, nil
	}

	return 1.0 - math.Exp(-math.Pow(x/lambda, k)), nil
}

// WeibullQ returns the quantile function (inverse CDF) of the Weibull
// distribution at probability p in [0,1).
// Returns ErrInvalidParam if k<=0, lambda<=0, or p outside [0,1).
// Complexity: O(1).
func WeibullQ(p, k, lambda float64) (float64, error) {
	if k <= 0 || lambda <= 0 || p < 0 || p >= 1 {
		return 0, ErrInvalidParam
	}

	return lambda * math.Pow(-math.Log(1-p), 1.0/k), nil
}

// WeibullD returns the probability density of the Weibull distribution at x.
// Returns 0 for x<0. Returns ErrInvalidParam if k<=0 or lambda<=0.
// Complexity: O(1).
func WeibullD(x, k, lambda float64) (float64, error) {
	if k <= 0 || lambda <= 0 {
		return 0, ErrInvalidParam
	}
	if x < 0 {
		return 0, nil
	}
	xl := x / lambda

	return (k / lambda) * math.Pow(xl, k-1) * math.Exp(-math.Pow(xl, k)), nil
}

// WeibullFit estimates (shape, scale) maximizing the Weibull likelihood of
// the non-negative sample x via Newton-Raphson on the shape's profile
// log-likelihood, then closes the scale in terms of the converged shape.
// Returns ErrEmptySample if x is empty, ErrFitFailed if Newton-Raphson does
// not converge within maxIter.
// Complexity: O(maxIter * n).
func WeibullFit(x []float64, maxIter int, tol float64) (k, lambda float64, err error) {
	n := len(x)
	if n == 0 {
		return 0, 0, ErrEmptySample
	}

	// Stage 1: initial shape guess from the coefficient of variation
	// (method-of-moments style seed), clamped away from 0.
	mean, _ := Mean(x)
	variance, _ := Variance(x)
	k = 1.2
	if mean > 0 && variance > 0 {
		cv := math.Sqrt(variance) / mean
		if cv > 0 {
			k = 1.0 / cv
		}
	}
	if k <= 0 {
		k = 1.0
	}

	// Stage 2: Newton-Raphson on g(k) = 0 where g is the shape's
	// profile-likelihood stationarity condition:
	//   g(k) = [Σ xᵢ^k ln(xᵢ)] / [Σ xᵢ^k] − 1/k − mean(ln xᵢ)
	var lnx []float64
	lnx = make([]float64, 0, n)
	var i int
	for i = 0; i < n; i++ {
		if x[i] > 0 {
			lnx = append(lnx, math.Log(x[i]))
		}
	}
	if len(lnx) == 0 {
		return 0, 0, ErrFitFailed
	}
	meanLnX, _ := Mean(lnx)

	var iter int
	for iter = 0; iter < maxIter; iter++ {
		var sumXk, sumXkLnX, sumXkLnX2 float64
		for i = 0; i < n; i++ {
			if x[i] <= 0 {
				continue
			}
			xk := math.Pow(x[i], k)
			lx := math.Log(x[i])
			sumXk += xk
			sumXkLnX += xk * lx
			sumXkLnX2 += xk * lx * lx
		}
		if sumXk == 0 {
			return 0, 0, ErrFitFailed
		}
		g := sumXkLnX/sumXk - 1.0/k - meanLnX
		// derivative of g with respect to k
		dg := (sumXkLnX2*sumXk-sumXkLnX*sumXkLnX)/(sumXk*sumXk) + 1.0/(k*k)
		if dg == 0 {
			return 0, 0, ErrFitFailed
		}
		step := g / dg
		k -= step
		if k <= 0 {
			k = 1e-6
		}
		if math.Abs(step) < tol {
			break
		}
	}
	if iter == maxIter {
		return 0, 0, ErrFitFailed
	}

	// Stage 3: close the scale given the converged shape.
	var sumXk float64
	for i = 0; i < n; i++ {
		sumXk += math.Pow(x[i], k)
	}
	lambda = math.Pow(sumXk/float64(n), 1.0/k)

	return k, lambda, nil
}
