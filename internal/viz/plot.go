package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/indmach/internal/dynamo"
)

// Plot draws one series as an ASCII chart. Long series are averaged down
// to the requested width by asciigraph.
func Plot(data []float64, caption string, width, height int) string {
	if len(data) == 0 {
		return Subtle.Render("(no data: " + caption + ")")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotSeries plots the named series of samples.
func PlotSeries(samples []dynamo.Sample, name, caption string, width, height int) (string, error) {
	r := &dynamo.Result{Samples: samples}
	data, err := r.Series(name)
	if err != nil {
		return "", err
	}
	return Plot(data, caption, width, height), nil
}

type Stats struct {
	Min, Max, Mean, StdDev float64
}

func SeriesStats(data []float64) Stats {
	if len(data) == 0 {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(data, nil)
	if len(data) == 1 {
		std = 0
	}
	return Stats{
		Min:    floats.Min(data),
		Max:    floats.Max(data),
		Mean:   mean,
		StdDev: std,
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("min %.6g  max %.6g  mean %.6g  sd %.3g", s.Min, s.Max, s.Mean, s.StdDev)
}

// Summary renders per-series statistics for the given series names.
func Summary(samples []dynamo.Sample, names []string) (string, error) {
	r := &dynamo.Result{Samples: samples}
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}

	out := Title.Render("series") + "\n"
	for _, name := range names {
		data, err := r.Series(name)
		if err != nil {
			return "", err
		}
		out += row(name, SeriesStats(data).String(), "", width+2) + "\n"
	}
	return out, nil
}
