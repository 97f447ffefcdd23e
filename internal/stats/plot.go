package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is a named sequence of values, one per session.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight = 10
	defaultPlotWidth  = 60
	minPlotWidth      = 10
	axisLabelTop      = "max"
	axisLabelMid      = "mid"
	axisLabelBottom   = "min"
	axisSeparator     = " │ "
	scaleNote         = "Each series is scaled to its own min/max."
	colorReset        = "\x1b[0m"
)

// dash patterns: a dot at column x is drawn when x%period < on.
var dashes = []struct {
	name      string
	period    int
	on        int
	colorCode string
}{
	{name: "solid", period: 1, on: 1, colorCode: "\x1b[36m"},
	{name: "dashed", period: 6, on: 3, colorCode: "\x1b[35m"},
	{name: "dotted", period: 4, on: 1, colorCode: "\x1b[33m"},
	{name: "dashdot", period: 8, on: 3, colorCode: "\x1b[32m"},
}

// PlotWidthFor returns the plot area width that fits in totalWidth cells
// next to the axis labels.
func PlotWidthFor(totalWidth int) int {
	axis := utf8.RuneCountInString(axisLabelTop) + utf8.RuneCountInString(axisSeparator)
	return max(minPlotWidth, totalWidth-axis)
}

// layer is one series rasterized into braille cells.
type layer struct {
	name     string
	min, max float64
	cells    [][]uint8
}

// PlotSeries draws the series as braille line charts sharing one grid.
// A non-positive width or height falls back to defaults.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	nonEmpty := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	width = max(width, minPlotWidth)

	layers := make([]layer, len(nonEmpty))
	for i, s := range nonEmpty {
		layers[i] = rasterize(s, width, height, i)
	}

	lines := make([]string, 0, height+len(layers)+4)
	if title != "" {
		lines = append(lines, title)
	}
	lines = append(lines, scaleNote)
	for _, l := range layers {
		lines = append(lines, fmt.Sprintf("%s: min=%.1f max=%.1f", l.name, l.min, l.max))
	}
	labelWidth := utf8.RuneCountInString(axisLabelTop)
	for y := 0; y < height; y++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", labelWidth, axisLabel(y, height), axisSeparator)
		for x := 0; x < width; x++ {
			mask, owner := mergeCell(layers, x, y)
			ch := string(rune(0x2800 + int(mask)))
			if useColor && owner >= 0 {
				ch = dashes[owner%len(dashes)].colorCode + ch + colorReset
			}
			row.WriteString(ch)
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, legend(layers, useColor), "")

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func rasterize(s Series, width, height, index int) layer {
	values := resample(s.Values, width)
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		lo--
		hi++
	}
	l := layer{name: s.Name, min: lo, max: hi, cells: make([][]uint8, height)}
	for y := range l.cells {
		l.cells[y] = make([]uint8, width)
	}

	dash := dashes[index%len(dashes)]
	rows := height * 4
	prevX, prevY := -1, -1
	for x, v := range values {
		py := int(math.Round((1 - (v-lo)/(hi-lo)) * float64(rows-1)))
		py = min(max(py, 0), rows-1)
		px := x * 2
		if prevX < 0 {
			prevX, prevY = px, py
		}
		bresenham(prevX, prevY, px, py, func(dx, dy int) {
			if dash.period <= 1 || dx%dash.period < dash.on {
				l.setDot(dx, dy)
			}
		})
		prevX, prevY = px, py
	}
	return l
}

// setDot sets the braille dot at sub-cell position (x, y); each cell is 2x4 dots.
func (l layer) setDot(x, y int) {
	cy, cx := y/4, x/2
	if y < 0 || x < 0 || cy >= len(l.cells) || cx >= len(l.cells[cy]) {
		return
	}
	// Braille dot bits by [column][row].
	bits := [2][4]uint8{{0x01, 0x02, 0x04, 0x40}, {0x08, 0x10, 0x20, 0x80}}
	l.cells[cy][cx] |= bits[x%2][y%4]
}

// mergeCell ORs every layer's dots at (x, y) and reports the first layer that drew there.
func mergeCell(layers []layer, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, l := range layers {
		if m := l.cells[y][x]; m != 0 {
			if owner < 0 {
				owner = i
			}
			mask |= m
		}
	}
	return mask, owner
}

func axisLabel(y, height int) string {
	switch {
	case y == 0:
		return axisLabelTop
	case y == height-1:
		return axisLabelBottom
	case height > 2 && y == height/2:
		return axisLabelMid
	}
	return ""
}

func legend(layers []layer, useColor bool) string {
	parts := make([]string, len(layers))
	for i, l := range layers {
		dash := dashes[i%len(dashes)]
		label := fmt.Sprintf("⠁ %s (%s)", l.name, dash.name)
		if useColor {
			label = dash.colorCode + label + colorReset
		}
		parts[i] = label
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// resample stretches or averages values to exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n == 1:
		for i := range out {
			out[i] = values[0]
		}
	case n > width:
		for i := range out {
			start := i * n / width
			end := max((i+1)*n/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(max(width-1, 1))
			idx := min(int(pos), n-2)
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		e2 := 2 * e
		if e2 >= dy {
			if x0 == x1 {
				return
			}
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				return
			}
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
