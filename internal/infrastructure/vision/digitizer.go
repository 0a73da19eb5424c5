package vision

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"radiology-bot/internal/domain/entity"
)

const (
	// DefaultSamplingRate принятая развёртка ленты; из изображения не вычисляется
	DefaultSamplingRate = 250

	minInkColumns   = 10
	smoothingWindow = 5
)

// Digitize извлекает одномерный сигнал из скана ЭКГ-ленты: для каждого столбца
// берётся средняя строка тёмных пикселей, пропуски интерполируются, сигнал
// центрируется и сглаживается скользящим средним.
func Digitize(raw []byte, samplingRate int) (entity.ECGTrace, error) {
	mask, err := extractInk(raw)
	if err != nil {
		return entity.ECGTrace{}, err
	}

	signal := make([]float64, mask.width)
	valid := make([]bool, mask.width)
	count := 0
	for x := 0; x < mask.width; x++ {
		sum, n := 0.0, 0
		for y := 0; y < mask.height; y++ {
			if mask.at(x, y) {
				sum += float64(y)
				n++
			}
		}
		if n > 0 {
			signal[x] = float64(mask.height) - sum/float64(n)
			valid[x] = true
			count++
		}
	}
	if count < minInkColumns {
		return entity.ECGTrace{}, fmt.Errorf("%w: %d ink columns found", entity.ErrSignalExtraction, count)
	}

	fillGaps(signal, valid)
	floats.AddConst(-stat.Mean(signal, nil), signal)

	return entity.ECGTrace{
		Samples:      movingAverage(signal, smoothingWindow),
		SamplingRate: samplingRate,
	}, nil
}

// fillGaps линейно интерполирует пропуски между ближайшими валидными столбцами;
// за краями повторяется крайнее валидное значение.
func fillGaps(signal []float64, valid []bool) {
	prev := -1
	for i := range signal {
		if !valid[i] {
			continue
		}
		if prev == -1 {
			for j := 0; j < i; j++ {
				signal[j] = signal[i]
			}
		} else if i-prev > 1 {
			step := (signal[i] - signal[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				signal[j] = signal[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	for j := prev + 1; j < len(signal); j++ {
		signal[j] = signal[prev]
	}
}

// movingAverage центрированное скользящее среднее той же длины, за краями нули.
func movingAverage(signal []float64, window int) []float64 {
	out := make([]float64, len(signal))
	half := (window - 1) / 2
	for i := range signal {
		sum := 0.0
		for k := 0; k < window; k++ {
			j := i + half - k
			if j >= 0 && j < len(signal) {
				sum += signal[j]
			}
		}
		out[i] = sum / float64(window)
	}
	return out
}
