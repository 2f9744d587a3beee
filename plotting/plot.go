// Package plotting renders the rate and time-series figures from the
// compiled statistics.
package plotting

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"coastline/stats"
	"coastline/transect"
)

var (
	eprColor  = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	lrrColor  = color.RGBA{R: 200, G: 0, B: 0, A: 255}
	zeroColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	fitColor  = color.RGBA{R: 200, G: 0, B: 0, A: 255}
	obsColor  = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

func newFigure(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func dashedLine(pts plotter.XYs, c color.Color) (*plotter.Line, error) {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	line.Color = c
	return line, nil
}

// SaveRates draws EPR and LRR against baseline chainage, one point per
// transect, with a dashed zero line separating erosion from accretion.
// Transects missing from either input are simply absent from that
// series.
func SaveRates(transects []transect.Transect, movements []stats.Movement, rates []stats.Rate, path string) error {
	if len(transects) == 0 {
		return fmt.Errorf("no transects to plot")
	}
	if len(movements) == 0 && len(rates) == 0 {
		return fmt.Errorf("nothing to plot: no movements and no rates")
	}

	chainage := make(map[string]float64, len(transects))
	minCh, maxCh := transects[0].Chainage, transects[0].Chainage
	for _, tr := range transects {
		chainage[tr.ID] = tr.Chainage
		if tr.Chainage < minCh {
			minCh = tr.Chainage
		}
		if tr.Chainage > maxCh {
			maxCh = tr.Chainage
		}
	}

	p := newFigure("Shoreline change rates", "chainage (m)", "rate (m/yr)")

	eprPts := make(plotter.XYs, 0, len(movements))
	for _, m := range movements {
		if ch, ok := chainage[m.TransectID]; ok {
			eprPts = append(eprPts, plotter.XY{X: ch, Y: m.EPR})
		}
	}
	if len(eprPts) > 0 {
		line, points, err := plotter.NewLinePoints(eprPts)
		if err != nil {
			return err
		}
		line.Color = eprColor
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(2)
		points.Color = eprColor
		p.Add(line, points)
		p.Legend.Add("EPR", line)
	}

	lrrPts := make(plotter.XYs, 0, len(rates))
	for _, r := range rates {
		if ch, ok := chainage[r.TransectID]; ok {
			lrrPts = append(lrrPts, plotter.XY{X: ch, Y: r.LRR})
		}
	}
	if len(lrrPts) > 0 {
		line, points, err := plotter.NewLinePoints(lrrPts)
		if err != nil {
			return err
		}
		line.Color = lrrColor
		points.Shape = draw.BoxGlyph{}
		points.Radius = vg.Points(2)
		points.Color = lrrColor
		p.Add(line, points)
		p.Legend.Add("LRR", line)
	}

	zero, err := dashedLine(plotter.XYs{{X: minCh, Y: 0}, {X: maxCh, Y: 0}}, zeroColor)
	if err != nil {
		return err
	}
	p.Add(zero)

	p.Legend.Top = true

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// SaveTimeSeries draws one transect's shoreline positions over decimal
// year as a scatter, with the fitted regression line dashed on top.
func SaveTimeSeries(transectID string, obs []transect.Observation, rate stats.Rate, path string) error {
	if len(obs) == 0 {
		return fmt.Errorf("transect %s: no observations to plot", transectID)
	}

	p := newFigure(
		fmt.Sprintf("Transect %s shoreline position", transectID),
		"year", "distance along transect (m)")

	pts := make(plotter.XYs, len(obs))
	for i, o := range obs {
		pts[i].X = transect.DecimalYear(o.Date)
		pts[i].Y = o.Distance
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.Shape = draw.CircleGlyph{}
	scatter.Radius = vg.Points(3)
	scatter.Color = obsColor
	p.Add(scatter)
	p.Legend.Add("surveys", scatter)

	if rate.N >= 2 {
		x0, x1 := pts[0].X, pts[len(pts)-1].X
		fit, err := dashedLine(plotter.XYs{
			{X: x0, Y: rate.Intercept + rate.LRR*x0},
			{X: x1, Y: rate.Intercept + rate.LRR*x1},
		}, fitColor)
		if err != nil {
			return err
		}
		p.Add(fit)
		p.Legend.Add(fmt.Sprintf("fit %.2f m/yr", rate.LRR), fit)
	}

	p.Legend.Top = true

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
