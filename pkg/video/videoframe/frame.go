package videoframe

import "math"

// NoTimestamp marks a timestamp field the container or decoder left unset.
// It matches libav's AV_NOPTS_VALUE.
const NoTimestamp int64 = math.MinInt64

type Dimensions struct {
	W, H int
}

// Packet is one compressed unit read from the container. Data is the part
// of the payload the decoder has not consumed yet; DataRef holds the
// backend's own handle for the packet.
type Packet struct {
	StreamIndex int
	Data        []byte
	DataRef     interface{}
}

// Remaining reports how many payload bytes are still to be decoded.
func (p *Packet) Remaining() int {
	return len(p.Data)
}

// Advance drops n consumed bytes from the front of the payload, clamped to
// what is left.
func (p *Packet) Advance(n int) {
	if n <= 0 {
		return
	}
	if n > len(p.Data) {
		n = len(p.Data)
	}
	p.Data = p.Data[n:]
}

// MotionVectorRecord is one entry of a decoder's motion vector side data.
// Positions are absolute pixel coordinates; Src is where the block is
// predicted from, Dst where it lands in the current picture.
type MotionVectorRecord struct {
	Source     int32
	W, H       uint8
	SrcX, SrcY int16
	DstX, DstY int16
	Flags      uint64
}

// Frame is a fully decoded picture as reported by a backend. Everything the
// pipeline needs is copied out of the backend's own frame, so a Frame stays
// valid after the backend reuses its buffers.
type Frame struct {
	Pts              int64
	PktDts           int64
	PictureType      PictureType
	HasMotionVectors bool
	MotionVectors    []MotionVectorRecord
}
