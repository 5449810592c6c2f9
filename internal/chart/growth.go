// Package chart renders the growth chart shown on the results screen.
package chart

import (
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/matsimonsen7/tid-er-penge/internal/model"
)

// MaxPoints bounds how many points are plotted per line.
const MaxPoints = 50

// Sample keeps every ceil(len/limit)th element and always the last one.
func Sample[T any](data []T, limit int) []T {
	if limit <= 0 || len(data) <= limit {
		return data
	}
	step := (len(data) + limit - 1) / limit
	out := make([]T, 0, limit+1)
	for i := 0; i < len(data); i += step {
		out = append(out, data[i])
	}
	if (len(data)-1)%step != 0 {
		out = append(out, data[len(data)-1])
	}
	return out
}

// Options names the lines of a growth chart.
type Options struct {
	Name          string
	BenchmarkName string
	Width         int
	Height        int
}

// Growth renders a PNG comparing the value of result over time against
// the benchmark (if any) and the invested amount.
func Growth(result, benchmark *model.BacktestResult, opts Options) ([]byte, error) {
	if result == nil || len(result.History) == 0 {
		return nil, fmt.Errorf("no history to chart")
	}
	if opts.Name == "" {
		opts.Name = result.Symbol
	}
	if opts.BenchmarkName == "" && benchmark != nil {
		opts.BenchmarkName = benchmark.Symbol
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 400
	}

	points := Sample(result.History, MaxPoints)
	labels := make([]string, len(points))
	values := make([]float64, len(points))
	invested := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Date.Format("Jan '06")
		values[i] = p.Value
		invested[i] = result.Amount
	}

	lines := [][]float64{values}
	names := []string{opts.Name}
	if benchmark != nil && len(benchmark.History) > 0 {
		bench := Sample(benchmark.History, MaxPoints)
		bv := make([]float64, len(points))
		for i := range bv {
			// histories can differ in length; hold the last benchmark value
			j := min(i, len(bench)-1)
			bv[i] = bench[j].Value
		}
		lines = append(lines, bv)
		names = append(names, opts.BenchmarkName)
	}
	lines = append(lines, invested)
	names = append(names, "Invested")

	yMin, yMax := bounds(lines)
	split := 6
	if len(labels) <= 30 {
		split = max(3, len(labels)/3)
	}

	p, err := charts.LineRender(
		lines,
		charts.TitleTextOptionFunc(fmt.Sprintf("%s • %s", opts.Name, result.Badge())),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: split,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(opts.Width),
		charts.HeightOptionFunc(opts.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// bounds returns a y-axis range with 5% padding.
func bounds(lines [][]float64) (float64, float64) {
	lo, hi := lines[0][0], lines[0][0]
	for _, l := range lines {
		for _, v := range l {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = hi * 0.05
	}
	return lo - pad, hi + pad
}
