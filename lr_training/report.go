package lr

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotHistory draws training accuracy and cost per iteration and saves the
// figure; the format follows the file extension.
func PlotHistory(path string, history []IterationStats) error {
	if len(history) == 0 {
		return fmt.Errorf("plot: empty history")
	}

	acc := make(plotter.XYs, len(history))
	cost := make(plotter.XYs, len(history))
	for i, h := range history {
		acc[i].X, acc[i].Y = float64(h.Iteration), h.Accuracy
		cost[i].X, cost[i].Y = float64(h.Iteration), h.Cost
	}

	p := plot.New()
	p.Title.Text = "Encrypted logistic regression"
	p.X.Label.Text = "iteration"
	p.Add(plotter.NewGrid())

	accLine, err := plotter.NewLine(acc)
	if err != nil {
		return err
	}
	costLine, err := plotter.NewLine(cost)
	if err != nil {
		return err
	}
	costLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(accLine, costLine)
	p.Legend.Add("accuracy", accLine)
	p.Legend.Add("cost", costLine)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	return nil
}
