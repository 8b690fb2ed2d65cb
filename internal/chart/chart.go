// Package chart draws the sizes of a set of records as a scatter plot on a
// logarithmic scale, with the mean and median marked.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"filecensus/internal/inventory"
)

// ErrTooFewRecords is returned when there are fewer than two records to plot.
var ErrTooFewRecords = errors.New("at least two files are needed for a plot")

var (
	pointColor  = color.RGBA{R: 65, G: 105, B: 225, A: 255}
	meanColor   = color.RGBA{R: 220, A: 255}
	medianColor = color.RGBA{G: 150, A: 255}
)

// Size of the rendered image.
const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// WriteSVG plots the size of every record against its position. Sizes below
// one byte are drawn at one byte since the scale is logarithmic.
func WriteSVG(w io.Writer, records []inventory.FileRecord) error {
	p, err := New(records)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "svg")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

// New builds the plot for records.
func New(records []inventory.FileRecord) (*plot.Plot, error) {
	if len(records) < 2 {
		return nil, ErrTooFewRecords
	}
	stats := inventory.Summarize(records)

	points := make(plotter.XYs, len(records))
	for i, record := range records {
		points[i].X = float64(i)
		points[i].Y = atLeastOne(float64(record.Size))
	}

	p := plot.New()
	p.Title.Text = "Search Results"
	p.X.Label.Text = "File"
	p.Y.Label.Text = "Bytes"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Color = pointColor
	scatter.GlyphStyle.Radius = vg.Points(1.5)

	mean := horizontal(stats.Mean, meanColor)
	median := horizontal(stats.Median, medianColor)

	p.Add(scatter, mean, median)
	if p.Y.Min == p.Y.Max {
		// A flat range would be widened to include zero.
		p.Y.Min /= 10
		p.Y.Max *= 10
	}
	p.Legend.Add("Mean = "+stats.MeanSize(), mean)
	p.Legend.Add("Median = "+stats.MedianSize(), median)
	p.Legend.Top = true
	return p, nil
}

func horizontal(y float64, c color.Color) *plotter.Function {
	y = atLeastOne(y)
	line := plotter.NewFunction(func(float64) float64 { return y })
	line.Color = c
	line.Width = vg.Points(1)
	return line
}

func atLeastOne(v float64) float64 {
	return max(v, 1)
}
