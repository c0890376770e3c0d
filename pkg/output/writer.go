package output

import (
	"bufio"
	"io"
	"strconv"

	"github.com/tauraamui/mvflow/pkg/motion"
	"github.com/tauraamui/xerror"
)

const KindOutput = xerror.Kind("output")

type Mode int

const (
	ModeGrid Mode = iota
	ModeRaw
)

// String returns the output_type tag written in frame headers.
func (m Mode) String() string {
	if m == ModeRaw {
		return "raw"
	}
	return "arranged"
}

// Writer serialises frames as text. Every frame starts with a header line
// beginning with '#' and carrying key=value fields, numeric columns are
// tab separated. Output is buffered until Flush.
type Writer struct {
	w   *bufio.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), buf: make([]byte, 0, 256)}
}

// WriteRaw writes a header followed by one src_x, src_y, dx, dy line per
// vector.
func (w *Writer) WriteRaw(f motion.DecodedFrame) error {
	b := w.header(f.Pts, f.Index, f.PictType, ModeRaw, len(f.Vectors), 4)
	for _, mv := range f.Vectors {
		b = strconv.AppendInt(b, int64(mv.SrcX), 10)
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(mv.SrcY), 10)
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(mv.DX), 10)
		b = append(b, '\t')
		b = strconv.AppendInt(b, int64(mv.DY), 10)
		b = append(b, '\n')
	}
	return w.write(b)
}

// WriteGrid writes a header followed by the dx matrix and then the dy
// matrix, one grid row per line.
func (w *Writer) WriteGrid(g *motion.GridFrame) error {
	b := w.header(g.Pts, g.Index, g.PictType, ModeGrid, g.Shape.Rows, g.Shape.Cols)
	b = appendMatrix(b, g.DX)
	b = appendMatrix(b, g.DY)
	return w.write(b)
}

func (w *Writer) header(pts int64, index int, pictType byte, mode Mode, rows, cols int) []byte {
	b := append(w.buf[:0], "# pts="...)
	b = strconv.AppendInt(b, pts, 10)
	b = append(b, " frame_index="...)
	b = strconv.AppendInt(b, int64(index), 10)
	b = append(b, " pict_type="...)
	b = append(b, pictType)
	b = append(b, " output_type="...)
	b = append(b, mode.String()...)
	b = append(b, " shape="...)
	b = strconv.AppendInt(b, int64(rows), 10)
	b = append(b, 'x')
	b = strconv.AppendInt(b, int64(cols), 10)
	return append(b, '\n')
}

func appendMatrix(b []byte, m [][]int) []byte {
	for _, row := range m {
		for c, v := range row {
			if c > 0 {
				b = append(b, '\t')
			}
			b = strconv.AppendInt(b, int64(v), 10)
		}
		b = append(b, '\n')
	}
	return b
}

func (w *Writer) write(b []byte) error {
	w.buf = b[:0]
	if _, err := w.w.Write(b); err != nil {
		return xerror.Errorf("unable to write frame: %w", err).AsKind(KindOutput)
	}
	return nil
}

func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return xerror.Errorf("unable to flush output: %w", err).AsKind(KindOutput)
	}
	return nil
}
