// Package chart rasterizes a candlestick chart with indicator overlays.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fogleman/gg"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// Options controls the output image.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions matches the dashboard's wide layout.
var DefaultOptions = Options{Width: 1200, Height: 700}

const (
	marginLeft   = 80.0
	marginRight  = 20.0
	marginTop    = 50.0
	marginBottom = 40.0
	yTicks       = 6
	xTicks       = 8
)

var overlayPalette = []string{"#1f77b4", "#ff7f0e", "#9467bd", "#8c564b", "#e377c2", "#17becf"}

// Render draws the series as candlesticks with every overlay as a line and
// returns PNG bytes. Overlay lines break at undefined points.
func Render(series model.PriceSeries, overlays []model.Overlay, opts Options) ([]byte, error) {
	if series.Len() == 0 {
		return nil, errors.New("chart: empty price series")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultOptions
	}

	lo, hi := priceRange(series, overlays)
	plotW := float64(opts.Width) - marginLeft - marginRight
	plotH := float64(opts.Height) - marginTop - marginBottom
	if plotW <= 0 || plotH <= 0 {
		return nil, fmt.Errorf("chart: %dx%d leaves no room to plot", opts.Width, opts.Height)
	}

	n := series.Len()
	slot := plotW / float64(n)
	xAt := func(i int) float64 { return marginLeft + slot*(float64(i)+0.5) }
	yAt := func(p float64) float64 { return marginTop + (hi-p)/(hi-lo)*plotH }

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	drawAxes(dc, series, lo, hi, plotW, plotH, xAt, yAt)

	bodyW := math.Max(1, slot*0.7)
	for i, b := range series.Bars {
		if b.Close >= b.Open {
			dc.SetHexColor("#26a69a")
		} else {
			dc.SetHexColor("#ef5350")
		}
		x := xAt(i)
		dc.SetLineWidth(1)
		dc.DrawLine(x, yAt(b.High), x, yAt(b.Low))
		dc.Stroke()

		top, bottom := yAt(math.Max(b.Open, b.Close)), yAt(math.Min(b.Open, b.Close))
		dc.DrawRectangle(x-bodyW/2, top, bodyW, math.Max(1, bottom-top))
		dc.Fill()
	}

	for j, ov := range overlays {
		dc.SetHexColor(overlayPalette[j%len(overlayPalette)])
		dc.SetLineWidth(1.5)
		pen := false
		for i, p := range ov.Points {
			if i >= n || !p.Defined() {
				pen = false
				continue
			}
			if pen {
				dc.LineTo(xAt(i), yAt(p.Value))
			} else {
				dc.MoveTo(xAt(i), yAt(p.Value))
				pen = true
			}
		}
		dc.Stroke()
	}

	drawLegend(dc, series, overlays)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("chart: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// priceRange spans every low/high and defined overlay value, padded by 5%.
func priceRange(series model.PriceSeries, overlays []model.Overlay) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, b := range series.Bars {
		lo = math.Min(lo, b.Low)
		hi = math.Max(hi, b.High)
	}
	for _, ov := range overlays {
		for _, p := range ov.Points {
			if p.Defined() {
				lo = math.Min(lo, p.Value)
				hi = math.Max(hi, p.Value)
			}
		}
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.01, 1)
	}
	return lo - pad, hi + pad
}

func drawAxes(dc *gg.Context, series model.PriceSeries, lo, hi, plotW, plotH float64,
	xAt func(int) float64, yAt func(float64) float64) {
	dc.SetLineWidth(1)
	for k := 0; k <= yTicks; k++ {
		p := lo + (hi-lo)*float64(k)/yTicks
		y := yAt(p)
		dc.SetHexColor("#e6e6e6")
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
		dc.SetHexColor("#444444")
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", p), marginLeft-8, y, 1, 0.5)
	}

	n := series.Len()
	step := n / xTicks
	if step < 1 {
		step = 1
	}
	for i := 0; i < n; i += step {
		dc.SetHexColor("#444444")
		dc.DrawStringAnchored(series.Bars[i].Time.Format(time.DateOnly), xAt(i), marginTop+plotH+18, 0.5, 0.5)
	}

	dc.SetHexColor("#888888")
	dc.DrawRectangle(marginLeft, marginTop, plotW, plotH)
	dc.Stroke()
}

func drawLegend(dc *gg.Context, series model.PriceSeries, overlays []model.Overlay) {
	dc.SetHexColor("#222222")
	title := series.Symbol
	if title == "" {
		title = "Candlestick"
	}
	dc.DrawString(fmt.Sprintf("%s  %s .. %s", title,
		series.First().Format(time.DateOnly), series.Last().Format(time.DateOnly)), marginLeft, 22)

	x := marginLeft
	for j, ov := range overlays {
		dc.SetHexColor(overlayPalette[j%len(overlayPalette)])
		dc.DrawRectangle(x, 32, 14, 4)
		dc.Fill()
		dc.SetHexColor("#222222")
		dc.DrawString(ov.Name, x+18, 38)
		w, _ := dc.MeasureString(ov.Name)
		x += w + 40
	}
}
