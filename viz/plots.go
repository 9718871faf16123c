// Package viz renders the workflow's diagnostic plots: the target
// histogram, feature-importance bars, tuning profiles and the
// predicted-versus-actual scatter. Plots are written as PNG files.
package viz

import (
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/tune"
)

var (
	pointColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	identityColor = color.RGBA{R: 214, G: 39, B: 39, A: 255}
	barColor      = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

const plotSize = 5 * vg.Inch

// TargetHistogram renders the inspector's target histogram to filename.
func TargetHistogram(bins []dataset.HistogramBin, target, filename string) error {
	if len(bins) == 0 {
		return errors.NewDataShapeError(target, "no histogram bins to plot")
	}

	p := plot.New()
	p.Title.Text = "Distribution of " + target
	p.X.Label.Text = target
	p.Y.Label.Text = "count"

	// plotter.Histogram wants raw values; the inspector already binned
	// them, so draw the bins as a bar chart over the bin centers.
	values := make(plotter.Values, len(bins))
	labels := make([]string, len(bins))
	for i, b := range bins {
		values[i] = float64(b.Count)
		labels[i] = formatEdge(b.Lower)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return errors.Wrap(err, "histogram bars")
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)

	if err := p.Save(plotSize, plotSize, filename); err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	return nil
}

// ImportanceBars renders a horizontal view of per-feature importances,
// most important feature first.
func ImportanceBars(entries []tune.ImportanceEntry, title, filename string) error {
	if len(entries) == 0 {
		return errors.NewDataShapeError("importance", "no importance entries to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "importance"

	values := make(plotter.Values, len(entries))
	labels := make([]string, len(entries))
	for i, e := range entries {
		values[i] = e.Importance
		labels[i] = e.Feature
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return errors.Wrap(err, "importance bars")
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -0.9
	p.X.Tick.Label.YAlign = -0.5

	if err := p.Save(plotSize, plotSize, filename); err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	return nil
}

// PredictedVsActual renders the held-out predictions against the observed
// values with the identity line for reference.
func PredictedVsActual(ev *tune.Evaluation, target, filename string) error {
	if len(ev.Predicted) == 0 || len(ev.Predicted) != len(ev.Actual) {
		return errors.NewDataShapeError(target, "predicted and actual lengths differ or are empty")
	}

	p := plot.New()
	p.Title.Text = string(ev.Family) + ": predicted vs actual"
	p.X.Label.Text = "actual " + target
	p.Y.Label.Text = "predicted " + target

	pts := make(plotter.XYs, len(ev.Actual))
	lo, hi := ev.Actual[0], ev.Actual[0]
	for i := range ev.Actual {
		pts[i].X = ev.Actual[i]
		pts[i].Y = ev.Predicted[i]
		lo = math.Min(lo, math.Min(ev.Actual[i], ev.Predicted[i]))
		hi = math.Max(hi, math.Max(ev.Actual[i], ev.Predicted[i]))
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "prediction scatter")
	}
	scatter.Color = pointColor
	scatter.Radius = vg.Points(2)
	p.Add(scatter)

	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "identity line")
	}
	identity.Color = identityColor
	identity.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(identity)

	if err := p.Save(plotSize, plotSize, filename); err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	return nil
}

// SweepProfile renders mean score against the swept parameter value, one
// point per configuration in sweep order.
func SweepProfile(sw *tune.SweepResult, metric tune.Metric, filename string) error {
	if len(sw.Results) == 0 {
		return errors.NewDataShapeError(sw.Parameter, "no sweep results to plot")
	}

	p := plot.New()
	p.Title.Text = string(sw.Family) + ": " + sw.Parameter + " profile"
	p.X.Label.Text = sw.Parameter
	p.Y.Label.Text = "mean " + string(metric)

	pts := make(plotter.XYs, len(sw.Results))
	for i, r := range sw.Results {
		pts[i].X = sw.Values[i]
		if metric == tune.MetricR2 {
			pts[i].Y = r.MeanR2()
		} else {
			pts[i].Y = r.MeanRMSE()
		}
	}
	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrap(err, "sweep profile")
	}
	line.Color = pointColor
	scatter.Color = pointColor
	p.Add(line, scatter)

	if err := p.Save(plotSize, plotSize, filename); err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	return nil
}

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}
