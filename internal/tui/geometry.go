package tui

import (
	"math"

	"github.com/theakshaypant/gridcal/internal/gesture"
	"github.com/theakshaypant/gridcal/internal/grid"
	"github.com/theakshaypant/gridcal/internal/placement"
	"github.com/theakshaypant/gridcal/internal/timegrid"
)

// The surface works in pixels. A terminal cell maps to a fixed pixel box so
// one row is exactly a quarter hour of the grid.
const (
	cellWidth  = 8.0
	cellHeight = timegrid.PixelsPerMinute * 15

	headerRows     = 2
	footerRows     = 1
	gutterCells    = 6
	minColumnCells = 10

	// wheelRows is how far one wheel notch scrolls.
	wheelRows = 4
)

// layoutFor fits columns into a width x height terminal.
func layoutFor(width, height, columns int) grid.Layout {
	if columns < 1 {
		columns = 1
	}
	colCells := (width - gutterCells - (columns - 1)) / columns
	if colCells < minColumnCells {
		colCells = minColumnCells
	}
	bodyBottom := height - footerRows
	if bodyBottom < headerRows+1 {
		bodyBottom = headerRows + 1
	}
	return grid.Layout{
		Left:        gutterCells * cellWidth,
		Top:         headerRows * cellHeight,
		ColumnWidth: float64(colCells) * cellWidth,
		ColumnGap:   cellWidth,
		HandleSize:  cellHeight,
		Viewport: placement.Size{
			Width:  float64(width) * cellWidth,
			Height: float64(bodyBottom) * cellHeight,
		},
	}
}

// toPoint maps a terminal cell to its horizontal centre and to the top of
// its row, so a click lands on the quarter hour the row is labelled with.
// The small inset keeps the point inside the row despite float rounding.
func toPoint(x, y int) gesture.Point {
	return gesture.Point{
		X: (float64(x) + 0.5) * cellWidth,
		Y: (float64(y) + rowInset) * cellHeight,
	}
}

const rowInset = 0.01

const epsilon = 1e-6

func colOf(px float64) int { return int(math.Floor(px/cellWidth + epsilon)) }
func rowOf(px float64) int { return int(math.Floor(px/cellHeight + epsilon)) }

// cellBox converts a pixel rect to a half-open cell box.
func cellBox(r gesture.Rect) (x0, y0, x1, y1 int) {
	x0 = colOf(r.Left)
	y0 = rowOf(r.Top)
	x1 = int(math.Ceil(r.Right()/cellWidth - epsilon))
	y1 = int(math.Ceil(r.Bottom()/cellHeight - epsilon))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

// cellsOf is the number of whole cells a pixel width or height covers.
func cellsOf(px, unit float64) int {
	return int(math.Floor(px/unit + epsilon))
}

// alignedScroll rounds a scroll offset to whole rows.
func alignedScroll(scrollTop float64) float64 {
	return math.Round(scrollTop/cellHeight) * cellHeight
}

// rowMinutes returns the minute of day at the top of screen row y for a
// column whose midnight sits at colTop pixels.
func rowMinutes(y int, colTop float64) float64 {
	return timegrid.MinutesAt(float64(y)*cellHeight - colTop)
}
