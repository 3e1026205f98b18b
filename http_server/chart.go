package http_server

import "github.com/danthegoodman1/credittree/predictor"

const (
	chartLabelWidth = 180
	chartPlotWidth  = 420
	chartBarHeight  = 18
	chartRowHeight  = 26
	chartTop        = 30
)

type (
	// barChart is a horizontal bar chart laid out for the importance SVG.
	barChart struct {
		Width, Height int
		LabelWidth    int
		LabelPad      int
		BarHeight     int
		Bars          []bar
	}

	bar struct {
		Label  string
		Value  float64
		Y      int
		TextY  int
		Width  float64
		ValueX float64
	}
)

// newBarChart keeps feature order, matching the model's feature index, and
// scales bars so the largest importance fills the plot.
func newBarChart(importances []predictor.FeatureImportance) barChart {
	maxV := 0.0
	for _, fi := range importances {
		if fi.Importance > maxV {
			maxV = fi.Importance
		}
	}
	c := barChart{
		Width:      chartLabelWidth + chartPlotWidth + 60,
		Height:     chartTop + len(importances)*chartRowHeight + 10,
		LabelWidth: chartLabelWidth,
		LabelPad:   chartLabelWidth - 8,
		BarHeight:  chartBarHeight,
	}
	for i, fi := range importances {
		w := 0.0
		if maxV > 0 {
			w = fi.Importance / maxV * chartPlotWidth
		}
		y := chartTop + i*chartRowHeight
		c.Bars = append(c.Bars, bar{
			Label:  fi.Feature,
			Value:  fi.Importance,
			Y:      y,
			TextY:  y + chartBarHeight - 4,
			Width:  w,
			ValueX: float64(chartLabelWidth) + w + 6,
		})
	}
	return c
}
