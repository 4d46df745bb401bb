package export

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/san-kum/indmach/internal/dynamo"
)

func lineChart(title string, times []string, name string, values []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: Caption(name), Subtitle: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	line.SetXAxis(times).AddSeries(name, data)
	return line
}

// WriteHTML renders an interactive page with one chart per series.
func WriteHTML(w io.Writer, title string, samples []dynamo.Sample, names []string) error {
	r := &dynamo.Result{Samples: samples}
	t, err := r.Series("t")
	if err != nil {
		return err
	}
	times := make([]string, len(t))
	for i, v := range t {
		times[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}

	page := components.NewPage()
	page.PageTitle = title
	for _, name := range names {
		values, err := r.Series(name)
		if err != nil {
			return err
		}
		page.AddCharts(lineChart(title, times, name, values))
	}
	return page.Render(w)
}
