package ecg

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Параметры детектора QRS по градиенту.
const (
	smoothWindow     = 0.1  // с, сглаживание модуля градиента
	averageWindow    = 0.75 // с, окно среднего уровня градиента
	gradThreshWeight = 1.5
	minLenWeight     = 0.4
	minDelay         = 0.3 // с, минимальный интервал между R-зубцами
	// нижняя граница градиента QRS относительно 99-го перцентиля:
	// отсекает пульсации изолинии на участках без комплексов
	gradFloorWeight = 0.1
	gradFloorQuant  = 0.99

	extraBeatRatio  = 0.5
	missedBeatRatio = 1.7
)

// DetectPeaks находит R-зубцы: участки, где сглаженный модуль градиента
// превышает свой средний уровень, считаются комплексами QRS, в каждом
// берётся самый выраженный локальный максимум.
func DetectPeaks(signal []float64, fs int) []int {
	n := len(signal)
	if n < 3 || fs <= 0 {
		return nil
	}

	grad := gradient(signal)
	for i, v := range grad {
		grad[i] = math.Abs(v)
	}
	smooth := boxcar(grad, int(math.RoundToEven(smoothWindow*float64(fs))))
	avg := boxcar(smooth, int(math.RoundToEven(averageWindow*float64(fs))))
	delay := int(math.RoundToEven(minDelay * float64(fs)))

	sorted := append([]float64(nil), smooth...)
	sort.Float64s(sorted)
	floor := gradFloorWeight * stat.Quantile(gradFloorQuant, stat.Empirical, sorted, nil)

	qrs := make([]bool, n)
	for i := range qrs {
		qrs[i] = smooth[i] > gradThreshWeight*avg[i] && smooth[i] > floor
	}

	var begins, ends []int
	for i := 0; i < n-1; i++ {
		if !qrs[i] && qrs[i+1] {
			begins = append(begins, i)
		}
		if qrs[i] && !qrs[i+1] {
			ends = append(ends, i)
		}
	}
	if len(begins) == 0 {
		return nil
	}
	// концы, предшествующие первому началу, отбрасываются
	for len(ends) > 0 && ends[0] <= begins[0] {
		ends = ends[1:]
	}

	count := min(len(begins), len(ends))
	if count == 0 {
		return nil
	}
	lengths := make([]float64, count)
	for i := range lengths {
		lengths[i] = float64(ends[i] - begins[i])
	}
	minLen := stat.Mean(lengths, nil) * minLenWeight

	peaks := []int{0}
	for i := 0; i < count; i++ {
		if lengths[i] < minLen {
			continue
		}
		idx, ok := mostProminentPeak(signal[begins[i]:ends[i]])
		if !ok {
			continue
		}
		peak := begins[i] + idx
		if peak-peaks[len(peaks)-1] > delay {
			peaks = append(peaks, peak)
		}
	}
	return peaks[1:]
}

// gradient центральные разности внутри и односторонние на краях.
func gradient(x []float64) []float64 {
	n := len(x)
	g := make([]float64, n)
	g[0] = x[1] - x[0]
	g[n-1] = x[n-1] - x[n-2]
	for i := 1; i < n-1; i++ {
		g[i] = (x[i+1] - x[i-1]) / 2
	}
	return g
}

// boxcar центрированное скользящее среднее, края продолжаются крайними значениями.
func boxcar(x []float64, size int) []float64 {
	n := len(x)
	out := make([]float64, n)
	if size <= 1 {
		copy(out, x)
		return out
	}
	half := (size - 1) / 2
	for j := range out {
		sum := 0.0
		for k := 0; k < size; k++ {
			i := min(max(j+half-k, 0), n-1)
			sum += x[i]
		}
		out[j] = sum / float64(size)
	}
	return out
}

// mostProminentPeak индекс локального максимума с наибольшей выраженностью.
// Плато считается одним максимумом с индексом в его середине; крайние
// отсчёты максимумами не бывают.
func mostProminentPeak(x []float64) (int, bool) {
	best, bestProminence := -1, math.Inf(-1)
	for i := 1; i < len(x)-1; i++ {
		if !(x[i-1] < x[i]) {
			continue
		}
		ahead := i + 1
		for ahead < len(x)-1 && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] >= x[i] {
			continue
		}
		peak := (i + ahead - 1) / 2
		if p := prominence(x, peak); p > bestProminence {
			best, bestProminence = peak, p
		}
		i = ahead
	}
	return best, best >= 0
}

// prominence высота пика над более высоким из двух оснований.
func prominence(x []float64, peak int) float64 {
	leftMin := x[peak]
	for i := peak; i >= 0 && x[i] <= x[peak]; i-- {
		leftMin = math.Min(leftMin, x[i])
	}
	rightMin := x[peak]
	for i := peak; i < len(x) && x[i] <= x[peak]; i++ {
		rightMin = math.Min(rightMin, x[i])
	}
	return x[peak] - math.Max(leftMin, rightMin)
}

// CorrectArtifacts убирает лишние удары (интервал короче половины медианного)
// и вставляет пропущенные (интервал длиннее 1.7 медианного) равномерно.
func CorrectArtifacts(peaks []int) []int {
	if len(peaks) < 3 {
		return peaks
	}

	med := medianInterval(peaks)
	kept := []int{peaks[0]}
	for _, p := range peaks[1:] {
		if float64(p-kept[len(kept)-1]) < extraBeatRatio*med {
			continue
		}
		kept = append(kept, p)
	}

	corrected := []int{kept[0]}
	for _, p := range kept[1:] {
		prev := corrected[len(corrected)-1]
		gap := float64(p - prev)
		if gap > missedBeatRatio*med {
			beats := int(math.Round(gap / med))
			for k := 1; k < beats; k++ {
				corrected = append(corrected, prev+int(math.Round(gap*float64(k)/float64(beats))))
			}
		}
		corrected = append(corrected, p)
	}
	return corrected
}

func medianInterval(peaks []int) float64 {
	rr := make([]float64, len(peaks)-1)
	for i := range rr {
		rr[i] = float64(peaks[i+1] - peaks[i])
	}
	sort.Float64s(rr)
	mid := len(rr) / 2
	if len(rr)%2 == 0 {
		return (rr[mid-1] + rr[mid]) / 2
	}
	return rr[mid]
}
