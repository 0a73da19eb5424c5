package vision

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"radiology-bot/internal/domain/entity"
)

// Waveform рисует оцифрованную кривую в PNG.
func Waveform(trace entity.ECGTrace) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Digitized ECG Waveform"
	p.X.Label.Text = "Samples"
	p.Y.Label.Text = "Normalized Amplitude"

	grid := plotter.NewGrid()
	grid.Vertical.Color = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 0x1a}
	grid.Horizontal.Color = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 0x1a}
	p.Add(grid)

	pts := make(plotter.XYs, len(trace.Samples))
	for i, v := range trace.Samples {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = color.RGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}
	line.LineStyle.Width = vg.Points(1.2)
	p.Add(line)

	w, err := p.WriterTo(12*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
