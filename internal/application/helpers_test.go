package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// chestLike градиентный снимок заданного размера.
func chestLike(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + 2*y) % 256)})
		}
	}
	return encodePNG(t, img)
}

// ecgStrip белая лента с тёмной кривой: гауссовы зубцы через каждые interval столбцов.
func ecgStrip(t *testing.T, width, interval int) []byte {
	t.Helper()
	const height, baseline = 150, 110
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for x := 0; x < width; x++ {
		v := 0.0
		for c := interval / 2; c < width; c += interval {
			d := float64(x - c)
			v += 80 * math.Exp(-d*d/(2*4*4))
		}
		img.Set(x, baseline-int(math.Round(v)), color.Black)
	}
	return encodePNG(t, img)
}

type fakeClassifier struct {
	name   string
	size   int
	labels []string
	logits []float64
	err    error
	calls  atomic.Int32
}

func (f *fakeClassifier) Name() string     { return f.name }
func (f *fakeClassifier) InputSize() int   { return f.size }
func (f *fakeClassifier) Labels() []string { return f.labels }

func (f *fakeClassifier) Logits(_ context.Context, input entity.Tensor) ([]float64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if input.Len() != f.size*f.size {
		return nil, errors.New("unexpected input size")
	}
	return append([]float64(nil), f.logits...), nil
}

// fakeAutoencoder сдвигает каждый элемент на offset: MSE равна offset².
type fakeAutoencoder struct {
	offset float32
}

func (f *fakeAutoencoder) Reconstruct(_ context.Context, input entity.Tensor) (entity.Tensor, error) {
	out := entity.NewTensor(input.Shape...)
	for i, v := range input.Data {
		out.Data[i] = v + f.offset
	}
	return out, nil
}

// peakStrategy отдаёт карту размера исходного снимка с единственным пиком.
type peakStrategy struct {
	x, y float64
	err  error
}

func (s *peakStrategy) Name() string { return "peak" }

func (s *peakStrategy) Saliency(_ context.Context, req port.SaliencyRequest) (*entity.SaliencyMap, error) {
	if s.err != nil {
		return nil, s.err
	}
	b := req.Image.Bounds()
	m := entity.NewSaliencyMap(b.Dx(), b.Dy())
	m.Set(int(s.x*float64(b.Dx())), int(s.y*float64(b.Dy())), 1)
	return m, nil
}
