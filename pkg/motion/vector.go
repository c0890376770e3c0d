// Package motion turns decoded video frames into per-frame motion vector
// lists and fixed-size dx/dy grids.
package motion

// MotionVector is a block's source position with its displacement, where
// DX = src_x - dst_x and DY = src_y - dst_y.
type MotionVector struct {
	SrcX, SrcY int
	DX, DY     int
}

// DecodedFrame is what the pipeline keeps of a decoded picture. Index is
// 1-based and counts successfully decoded frames.
type DecodedFrame struct {
	Pts      int64
	Index    int
	PictType byte
	Vectors  []MotionVector
}
