package report

import (
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// WriteEquityChart renders the daily equity curve as equity.png, with a
// dashed baseline at the initial capital.
func (r *Reporter) WriteEquityChart(equity []types.EquityPoint, initialCapital float64) error {
	p := plot.New()
	p.Title.Text = "Equity Curve"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Equity"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	points := make(plotter.XYs, len(equity))
	for i, point := range equity {
		points[i].X = float64(point.Date.Unix())
		points[i].Y = point.Equity
	}

	line, err := plotter.NewLine(points)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to build equity line", err)
	}

	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}

	baseline := make(plotter.XYs, len(equity))
	for i, point := range equity {
		baseline[i].X = float64(point.Date.Unix())
		baseline[i].Y = initialCapital
	}

	baseLine, err := plotter.NewLine(baseline)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to build baseline", err)
	}

	baseLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	baseLine.LineStyle.Color = color.Gray{Y: 80}

	p.Add(line, baseLine)
	p.Legend.Add("equity", line)
	p.Legend.Add("initial capital", baseLine)
	p.Legend.Top = true

	path := filepath.Join(r.dir, chartFileName)
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to save %s", path)
	}

	return nil
}
