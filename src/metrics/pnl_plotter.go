package metrics

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

var ErrNothingToPlot = errors.Sentinel("no transactions to plot")

// PnlPlotter renders cumulative realized pnl over time to an image file.
// The format follows the file extension.
type PnlPlotter struct {
	filename string
	width    vg.Length
	height   vg.Length
	title    string
}

func NewPnlPlotter(filename string) *PnlPlotter {
	return &PnlPlotter{
		filename: filename,
		width:    10 * vg.Inch,
		height:   6 * vg.Inch,
		title:    "Realized PnL",
	}
}

func (pp *PnlPlotter) WithSize(width vg.Length, height vg.Length) *PnlPlotter {
	pp.width = width
	pp.height = height
	return pp
}

func (pp *PnlPlotter) WithTitle(title string) *PnlPlotter {
	pp.title = title
	return pp
}

// CumulativePnl returns one point per transaction: unix seconds against the
// running sum of realized pnl.
func CumulativePnl(records []datamodels.TransactionRecord) plotter.XYs {
	points := make(plotter.XYs, len(records))
	total := 0.0
	for i, record := range records {
		total += record.Pnl
		points[i].X = unixSeconds(record.Timestamp)
		points[i].Y = total
	}
	return points
}

func (pp *PnlPlotter) Plot(records []datamodels.TransactionRecord) error {
	if len(records) == 0 {
		return ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = pp.title
	p.X.Label.Text = "Time (UTC)"
	p.Y.Label.Text = "Cumulative PnL"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLinePoints(p, "realized pnl", CumulativePnl(records)); err != nil {
		return errors.Wrap(err, "failed to add pnl line")
	}

	if err := os.MkdirAll(filepath.Dir(pp.filename), 0755); err != nil {
		return errors.Wrap(err, "failed to create chart directory")
	}
	if err := p.Save(pp.width, pp.height, pp.filename); err != nil {
		return errors.Wrap(err, "failed to save pnl chart")
	}
	slog.Info(fmt.Sprintf("Saved pnl chart with %d transactions", len(records)), "filename", pp.filename)
	return nil
}
