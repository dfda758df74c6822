package model

import "math"

// MAE is the mean absolute error. It is NaN for empty input.
func MAE(actual, predicted []float64) float64 {
    n := min(len(actual), len(predicted))
    if n == 0 {
        return math.NaN()
    }
    var s float64
    for i := 0; i < n; i++ {
        s += math.Abs(predicted[i] - actual[i])
    }
    return s / float64(n)
}

// RMSE is the root mean squared error. It is NaN for empty input.
func RMSE(actual, predicted []float64) float64 {
    n := min(len(actual), len(predicted))
    if n == 0 {
        return math.NaN()
    }
    var s float64
    for i := 0; i < n; i++ {
        d := predicted[i] - actual[i]
        s += d * d
    }
    return math.Sqrt(s / float64(n))
}
