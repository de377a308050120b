package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/feather-lang/vmbench/harness"
)

// GenerateChart renders an HTML page with one bar chart of mean ns/op per
// workload. The y axis is logarithmic since runtimes differ by orders of
// magnitude.
func GenerateChart(w io.Writer, results []harness.BenchmarkResult) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	page := components.NewPage()
	page.PageTitle = "vmbench"

	for _, g := range Groups(results) {
		page.AddCharts(groupChart(g))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func groupChart(g Group) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    g.Name,
			Subtitle: "mean time per call",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ns/op", Type: "log"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)

	runtimes := make([]string, 0, len(g.Results))
	data := make([]opts.BarData, 0, len(g.Results))
	for _, r := range g.Results {
		runtimes = append(runtimes, r.Runtime)
		data = append(data, opts.BarData{
			Name:  r.Name,
			Value: r.Mean,
			Tooltip: &opts.Tooltip{
				Show:      opts.Bool(true),
				Formatter: types.FuncStr(fmt.Sprintf("%s: %.2fx", r.Runtime, g.Slowdown(r))),
			},
		})
	}

	bar.SetXAxis(runtimes).
		AddSeries("mean", data).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}
