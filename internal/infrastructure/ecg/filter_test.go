package ecg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func sine(n int, fs, freq, amp float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return x
}

func rms(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s / float64(len(x)))
}

func TestButterworthHighpass_Gains(t *testing.T) {
	sections, err := butterworthHighpass(5, 0.5, 250)
	require.NoError(t, err)
	require.Len(t, sections, 3)

	for _, s := range sections {
		require.InDelta(t, 0, s.dcGain(), 1e-12)
		// на частоте Найквиста z = -1
		nyq := (s.b[0] - s.b[1] + s.b[2]) / (s.a[0] - s.a[1] + s.a[2])
		require.InDelta(t, 1, nyq, 1e-9)
	}

	_, err = butterworthHighpass(5, 200, 250)
	require.Error(t, err)
	_, err = butterworthHighpass(0, 0.5, 250)
	require.Error(t, err)
}

func TestClean_RemovesBaselineKeepsBand(t *testing.T) {
	const fs = 250
	n := 10 * fs

	offset := make([]float64, n)
	for i := range offset {
		offset[i] = 42
	}
	out, err := Clean(offset, fs)
	require.NoError(t, err)
	require.Len(t, out, n)
	for _, v := range out {
		require.InDelta(t, 0, v, 1e-6)
	}

	// 2 Гц проходит почти без изменений
	band := sine(n, fs, 2, 1)
	out, err = Clean(band, fs)
	require.NoError(t, err)
	mid := out[fs : n-fs]
	require.InDelta(t, rms(band[fs:n-fs]), rms(mid), 0.05)
}

// Окно скользящего среднего при 250 Гц ровно один период сети.
func TestSuppressPowerline_CancelsMainsHum(t *testing.T) {
	const fs = 250
	n := 10 * fs

	out := suppressPowerline(sine(n, fs, 50, 1), fs)
	require.Len(t, out, n)
	require.Less(t, rms(out[fs:n-fs]), 1e-9)

	slow := suppressPowerline(sine(n, fs, 2, 1), fs)
	require.InDelta(t, 1/math.Sqrt2, rms(slow[fs:n-fs]), 0.01)
}

func TestMovingAverageFilter_HoldsFirstValue(t *testing.T) {
	out := movingAverageFilter(2, []float64{4, 6, 8})
	require.Equal(t, []float64{4, 5, 7}, out)
}

func TestFiltfilt_ZeroPhase(t *testing.T) {
	x := make([]float64, 101)
	x[50] = 1
	out := filtfilt(func(v []float64) []float64 { return movingAverageFilter(5, v) }, x, 15)
	require.Len(t, out, 101)
	// симметричный отклик с центром в исходном импульсе
	for k := 1; k < 10; k++ {
		require.InDelta(t, out[50-k], out[50+k], 1e-12)
	}
	require.Equal(t, 50, argmax(out))
}

func argmax(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}
