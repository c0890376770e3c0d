package motion

import "github.com/tauraamui/mvflow/pkg/video/videoframe"

const (
	// CellSize is the width and height in pixels of one grid cell.
	CellSize = 16
	// MaxGridDim caps the number of rows and of columns.
	MaxGridDim = 512
)

type Shape struct {
	Rows, Cols int
}

// ShapeFor computes the grid shape for a stream. It depends on nothing but
// the stream's dimensions.
func ShapeFor(d videoframe.Dimensions) Shape {
	return Shape{
		Rows: min(d.H/CellSize, MaxGridDim),
		Cols: min(d.W/CellSize, MaxGridDim),
	}
}

// GridFrame holds one frame's motion bucketed into CellSize cells. Cells
// no vector landed in stay 0, which cannot be told apart from a vector
// with zero displacement.
type GridFrame struct {
	Pts      int64
	Index    int
	PictType byte
	Shape    Shape
	DX, DY   [][]int

	empty        bool
	interpolated bool
}

func newGridFrame(shape Shape) *GridFrame {
	g := GridFrame{Shape: shape, empty: true}
	g.DX = newMatrix(shape)
	g.DY = newMatrix(shape)
	return &g
}

func newMatrix(shape Shape) [][]int {
	cells := make([]int, shape.Rows*shape.Cols)
	m := make([][]int, shape.Rows)
	for r := range m {
		m[r] = cells[r*shape.Cols : (r+1)*shape.Cols : (r+1)*shape.Cols]
	}
	return m
}

// Empty reports whether no vector was ever assigned to the frame.
func (g *GridFrame) Empty() bool { return g.empty }

// Interpolated reports whether the frame's values were synthesised from
// its neighbours.
func (g *GridFrame) Interpolated() bool { return g.interpolated }

// interpolate overwrites the grid with the per-cell floor of the mean of
// prev and next. Timestamp, index and picture type are kept.
func (g *GridFrame) interpolate(prev, next *GridFrame) {
	for r := 0; r < g.Shape.Rows; r++ {
		for c := 0; c < g.Shape.Cols; c++ {
			g.DX[r][c] = floorMean(prev.DX[r][c], next.DX[r][c])
			g.DY[r][c] = floorMean(prev.DY[r][c], next.DY[r][c])
		}
	}
	g.empty = false
	g.interpolated = true
}

// floorMean rounds towards negative infinity, unlike integer division.
func floorMean(a, b int) int {
	return (a + b) >> 1
}

type Aggregator struct {
	shape Shape
}

func NewAggregator(d videoframe.Dimensions) *Aggregator {
	return &Aggregator{shape: ShapeFor(d)}
}

func (a *Aggregator) Shape() Shape { return a.shape }

// Aggregate buckets the frame's vectors by source position. Positions
// outside the picture are clipped to the nearest edge cell, and when
// several vectors share a cell the last one in list order wins.
func (a *Aggregator) Aggregate(f DecodedFrame) *GridFrame {
	g := newGridFrame(a.shape)
	g.Pts = f.Pts
	g.Index = f.Index
	g.PictType = f.PictType

	for _, mv := range f.Vectors {
		g.empty = false
		if a.shape.Rows == 0 || a.shape.Cols == 0 {
			continue
		}
		row := clip(mv.SrcY/CellSize, 0, a.shape.Rows-1)
		col := clip(mv.SrcX/CellSize, 0, a.shape.Cols-1)
		g.DX[row][col] = mv.DX
		g.DY[row][col] = mv.DY
	}
	return g
}

// clip bounds v to [lo, hi]. Truncating division only differs from floor
// for negative coordinates, all of which clip to lo anyway.
func clip(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
