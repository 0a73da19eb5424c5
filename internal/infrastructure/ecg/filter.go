package ecg

import (
	"errors"
	"math"
	"math/cmplx"
)

// section звено второго порядка, a[0] == 1.
type section struct {
	b [3]float64
	a [3]float64
}

func (s section) dcGain() float64 {
	return (s.b[0] + s.b[1] + s.b[2]) / (s.a[0] + s.a[1] + s.a[2])
}

// butterworthHighpass каскад звеньев фильтра Баттерворта верхних частот.
// Полюса аналогового прототипа переносятся в цифровую область билинейным
// преобразованием с предыскажением частоты среза; каждое звено имеет
// единичное усиление на частоте Найквиста.
func butterworthHighpass(order int, cutoff, fs float64) ([]section, error) {
	if order < 1 {
		return nil, errors.New("filter order must be positive")
	}
	if cutoff <= 0 || cutoff >= fs/2 {
		return nil, errors.New("cutoff must lie between 0 and Nyquist")
	}

	fs2 := 2 * fs
	wc := fs2 * math.Tan(math.Pi*cutoff/fs)
	digital := func(p complex128) complex128 {
		q := complex(wc, 0) / p
		return (complex(fs2, 0) + q) / (complex(fs2, 0) - q)
	}

	var sections []section
	// полюса в верхней полуплоскости, пары сопряжённые
	for k := 0; k < order/2; k++ {
		theta := math.Pi * float64(2*k+order+1) / float64(2*order)
		z := digital(cmplx.Exp(complex(0, theta)))
		a1 := -2 * real(z)
		a2 := real(z)*real(z) + imag(z)*imag(z)
		g := (1 - a1 + a2) / 4
		sections = append(sections, section{
			b: [3]float64{g, -2 * g, g},
			a: [3]float64{1, a1, a2},
		})
	}
	if order%2 == 1 {
		z := real(digital(complex(-1, 0)))
		g := (1 + z) / 2
		sections = append(sections, section{
			b: [3]float64{g, -g, 0},
			a: [3]float64{1, -z, 0},
		})
	}
	return sections, nil
}

// sosFilter прогоняет сигнал через каскад. Начальное состояние равно
// установившемуся для постоянного входа x[0].
func sosFilter(sections []section, x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	x0 := x[0]
	gain := 1.0
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = v - x0
	}
	for _, s := range sections {
		var z1, z2 float64
		for i, v := range y {
			out := s.b[0]*v + z1
			z1 = s.b[1]*v - s.a[1]*out + z2
			z2 = s.b[2]*v - s.a[2]*out
			y[i] = out
		}
		gain *= s.dcGain()
	}
	for i := range y {
		y[i] += x0 * gain
	}
	return y
}

// movingAverageFilter причинное скользящее среднее; до начала сигнала
// повторяется x[0].
func movingAverageFilter(window int, x []float64) []float64 {
	y := make([]float64, len(x))
	if len(x) == 0 {
		return y
	}
	sum := float64(window) * x[0]
	for i, v := range x {
		old := x[0]
		if i-window >= 0 {
			old = x[i-window]
		}
		sum += v - old
		y[i] = sum / float64(window)
	}
	return y
}

// filtfilt фильтрует вперёд и назад с нечётным продолжением краёв,
// фазовый сдвиг компенсируется.
func filtfilt(filter func([]float64) []float64, x []float64, padlen int) []float64 {
	n := len(x)
	if n < 2 {
		return append([]float64(nil), x...)
	}
	padlen = min(padlen, n-1)

	ext := make([]float64, 0, n+2*padlen)
	for i := padlen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := n - 2; i >= n-1-padlen; i-- {
		ext = append(ext, 2*x[n-1]-x[i])
	}

	y := filter(ext)
	reverse(y)
	y = filter(y)
	reverse(y)
	return y[padlen : padlen+n]
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

const (
	highpassOrder  = 5
	highpassCutoff = 0.5
	powerline      = 50.0
)

// Clean убирает дрейф изолинии фильтром верхних частот 0.5 Гц и подавляет
// сетевую наводку 50 Гц скользящим средним. Обе ступени без фазового сдвига.
func Clean(samples []float64, fs int) ([]float64, error) {
	highpassed, err := removeBaseline(samples, fs)
	if err != nil {
		return nil, err
	}
	return suppressPowerline(highpassed, fs), nil
}

func removeBaseline(samples []float64, fs int) ([]float64, error) {
	sections, err := butterworthHighpass(highpassOrder, highpassCutoff, float64(fs))
	if err != nil {
		return nil, err
	}
	return filtfilt(func(x []float64) []float64 {
		return sosFilter(sections, x)
	}, samples, 3*(2*len(sections)+1-highpassOrder%2)), nil
}

// suppressPowerline усредняет по одному периоду сети.
func suppressPowerline(samples []float64, fs int) []float64 {
	window := 2
	if fs >= 100 {
		window = int(float64(fs) / powerline)
	}
	return filtfilt(func(x []float64) []float64 {
		return movingAverageFilter(window, x)
	}, samples, 3*window)
}
