package chart

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Config describes the chart to render.
type Config struct {
	Width  int
	Height int
	Title  string
	// Authors labels the series columns in order; missing entries
	// fall back to a column placeholder.
	Authors []string
}

// DefaultConfig returns the rendering defaults.
func DefaultConfig() Config {
	return Config{Width: 640, Height: 240, Title: "Lines of code per author"}
}

// ErrNoRoom reports a canvas too small for the plot area.
var ErrNoRoom = errors.New("chart dimensions leave no plot area")

// seriesPalette colors the author polylines, in column order,
// wrapping when there are more series than colors.
var seriesPalette = []color.RGBA{
	{0xd0, 0x30, 0x30, 0xff}, // red
	{0x30, 0x70, 0xd0, 0xff}, // blue
	{0x30, 0xa0, 0x40, 0xff}, // green
	{0xc0, 0x90, 0x20, 0xff}, // amber
	{0x90, 0x40, 0xc0, 0xff}, // purple
	{0x20, 0xa0, 0xa0, 0xff}, // teal
	{0x80, 0x80, 0x80, 0xff}, // gray
}

var (
	axisColor  = color.RGBA{0x60, 0x60, 0x60, 0xff}
	labelColor = color.RGBA{0x30, 0x30, 0x30, 0xff}
)

const (
	marginLeft   = 56
	marginRight  = 12
	marginTop    = 20
	marginBottom = 32
	legendStep   = 14
)

// Render draws the stats as a time-series chart on a transparent
// canvas.
func Render(stats *Stats, cfg Config) (*image.RGBA, error) {
	if stats == nil || stats.Rows() == 0 {
		return nil, ErrNoData
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultConfig()
	}

	plotW := cfg.Width - marginLeft - marginRight
	plotH := cfg.Height - marginTop - marginBottom
	if plotW < 10 || plotH < 10 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoRoom, cfg.Width, cfg.Height)
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))

	tMin := stats.Times[0].Unix()
	tMax := stats.Times[len(stats.Times)-1].Unix()
	if tMax == tMin {
		tMax = tMin + 1
	}
	vMax := 0.0
	for _, series := range stats.Series {
		for _, v := range series {
			if v > vMax {
				vMax = v
			}
		}
	}
	if vMax == 0 {
		vMax = 1
	}

	toX := func(ts int64) int {
		return marginLeft + int(float64(plotW)*float64(ts-tMin)/float64(tMax-tMin))
	}
	toY := func(v float64) int {
		return marginTop + plotH - int(float64(plotH)*v/vMax)
	}

	drawAxes(img, cfg, stats, vMax, toX)

	for col, series := range stats.Series {
		c := seriesPalette[col%len(seriesPalette)]
		for i := 1; i < len(series); i++ {
			drawLine(img,
				toX(stats.Times[i-1].Unix()), toY(series[i-1]),
				toX(stats.Times[i].Unix()), toY(series[i]), c)
		}
	}

	drawLegend(img, cfg, stats.Columns())

	if cfg.Title != "" {
		drawText(img, marginLeft, marginTop-6, cfg.Title, labelColor)
	}

	return img, nil
}

// WritePNG encodes the chart image as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode chart png: %w", err)
	}
	return nil
}

// label returns the legend label for a series column.
func (c Config) label(col int) string {
	if col < len(c.Authors) && c.Authors[col] != "" {
		return c.Authors[col]
	}
	return fmt.Sprintf("author %d", col+1)
}

func drawAxes(img *image.RGBA, cfg Config, stats *Stats, vMax float64, toX func(int64) int) {
	x0, y0 := marginLeft, marginTop
	x1, y1 := cfg.Width-marginRight, cfg.Height-marginBottom

	drawLine(img, x0, y1, x1, y1, axisColor) // x axis
	drawLine(img, x0, y0, x0, y1, axisColor) // y axis

	// Y ticks at 0, half, max.
	for _, frac := range []float64{0, 0.5, 1} {
		v := vMax * frac
		y := y1 - int(float64(y1-y0)*frac)
		drawLine(img, x0-3, y, x0, y, axisColor)
		drawText(img, 4, y+4, fmt.Sprintf("%.0f", v), labelColor)
	}

	// X ticks at first and last timestamp.
	first, last := stats.Times[0], stats.Times[len(stats.Times)-1]
	for _, t := range []struct {
		ts    int64
		label string
	}{
		{first.Unix(), first.Format("2006-01-02")},
		{last.Unix(), last.Format("2006-01-02")},
	} {
		x := toX(t.ts)
		drawLine(img, x, y1, x, y1+3, axisColor)
		tx := x - 30
		if tx < 0 {
			tx = 0
		}
		drawText(img, tx, y1+16, t.label, labelColor)
	}
}

func drawLegend(img *image.RGBA, cfg Config, columns int) {
	x := marginLeft + 8
	y := marginTop + 12
	for col := 0; col < columns; col++ {
		c := seriesPalette[col%len(seriesPalette)]
		for dx := 0; dx < 12; dx++ {
			img.SetRGBA(x+dx, y-4, c)
			img.SetRGBA(x+dx, y-3, c)
		}
		drawText(img, x+16, y, cfg.label(col), labelColor)
		y += legendStep
	}
}

// drawLine draws a 1px Bresenham segment.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
