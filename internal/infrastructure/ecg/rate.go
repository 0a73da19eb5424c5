package ecg

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// RateSeries мгновенная ЧСС для каждого отсчёта сигнала длины length.
// Период каждого пика равен интервалу до предыдущего, у первого пика это
// средний интервал. Между пиками период интерполируется монотонным
// кубическим сплайном, за крайними пиками держится постоянным.
func RateSeries(peaks []int, fs, length int) ([]float64, error) {
	if len(peaks) < 2 {
		return nil, errors.New("at least two peaks required")
	}

	xs := make([]float64, len(peaks))
	periods := make([]float64, len(peaks))
	for i, p := range peaks {
		xs[i] = float64(p)
		if i > 0 {
			periods[i] = float64(p-peaks[i-1]) / float64(fs)
		}
	}
	periods[0] = stat.Mean(periods[1:], nil)

	var predictor interp.FittablePredictor = &interp.FritschButland{}
	if len(peaks) < 3 {
		predictor = &interp.PiecewiseLinear{}
	}
	if err := predictor.Fit(xs, periods); err != nil {
		return nil, err
	}

	first, last := xs[0], xs[len(xs)-1]
	rate := make([]float64, length)
	for i := range rate {
		x := math.Max(first, math.Min(last, float64(i)))
		rate[i] = 60 / predictor.Predict(x)
	}
	return rate, nil
}

// SDNN стандартное отклонение интервалов между пиками, мс.
func SDNN(peaks []int, fs int) float64 {
	if len(peaks) < 3 {
		return math.NaN()
	}
	rr := make([]float64, len(peaks)-1)
	for i := range rr {
		rr[i] = float64(peaks[i+1]-peaks[i]) / float64(fs) * 1000
	}
	return stat.StdDev(rr, nil)
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
