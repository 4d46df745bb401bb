// Package export renders stored run series to image and HTML files.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/indmach/internal/dynamo"
)

var (
	plotWidth  = 8 * vg.Inch
	plotHeight = 4 * vg.Inch
)

var captions = map[string]string{
	"slip":   "slip",
	"speed":  "speed deviation (rad/s)",
	"v1":     "V1 (pu)",
	"is1":    "|Is1| (A)",
	"is2":    "|Is2| (A)",
	"e1":     "|E1| (pu)",
	"p":      "P (W)",
	"q":      "Q (var)",
	"losses": "losses (W)",
}

func Caption(name string) string {
	if c, ok := captions[name]; ok {
		return c
	}
	return name
}

func series(samples []dynamo.Sample, name string) (plotter.XYs, error) {
	r := &dynamo.Result{Samples: samples}
	t, err := r.Series("t")
	if err != nil {
		return nil, err
	}
	y, err := r.Series(name)
	if err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, len(t))
	for i := range t {
		pts[i].X = t[i]
		pts[i].Y = y[i]
	}
	return pts, nil
}

// Plot builds a time plot of the named series.
func Plot(title string, samples []dynamo.Sample, names ...string) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t (s)"
	if len(names) == 1 {
		p.Y.Label.Text = Caption(names[0])
	}
	p.Add(plotter.NewGrid())

	for i, name := range names {
		pts, err := series(samples, name)
		if err != nil {
			return nil, err
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		if len(names) > 1 {
			p.Legend.Add(Caption(name), line)
		}
	}
	return p, nil
}

// WritePNG renders the named series as one PNG image to w.
func WritePNG(w io.Writer, title string, samples []dynamo.Sample, names ...string) error {
	p, err := Plot(title, samples, names...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNGs writes one <name>.png per series into dir and returns the paths.
func SavePNGs(dir, title string, samples []dynamo.Sample, names []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p, err := Plot(title, samples, name)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name+".png")
		if err := p.Save(plotWidth, plotHeight, path); err != nil {
			return nil, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
