package motion

import "github.com/tauraamui/mvflow/pkg/video/videoframe"

// Extractor resolves timestamps and motion vectors for a run of frames. It
// carries the last resolved timestamp between frames, so one Extractor
// belongs to one stream.
type Extractor struct {
	lastPts int64
}

func NewExtractor() *Extractor {
	e := Extractor{}
	e.Reset()
	return &e
}

// Reset forgets the last resolved timestamp. The first frame after a reset
// that carries no timestamp at all resolves to 0.
func (e *Extractor) Reset() {
	e.lastPts = -1
}

func (e *Extractor) Extract(frame *videoframe.Frame, index int) DecodedFrame {
	df := DecodedFrame{
		Pts:      e.resolvePts(frame),
		Index:    index,
		PictType: frame.PictureType.Char(),
	}
	if frame.HasMotionVectors {
		df.Vectors = make([]MotionVector, 0, len(frame.MotionVectors))
		for _, r := range frame.MotionVectors {
			df.Vectors = append(df.Vectors, MotionVector{
				SrcX: int(r.SrcX),
				SrcY: int(r.SrcY),
				DX:   int(r.SrcX) - int(r.DstX),
				DY:   int(r.SrcY) - int(r.DstY),
			})
		}
	}
	return df
}

// resolvePts prefers the frame's own timestamp, then the packet's decode
// timestamp, then one past the previous frame. The last case only keeps
// timestamps increasing; it says nothing about true presentation time.
func (e *Extractor) resolvePts(frame *videoframe.Frame) int64 {
	switch {
	case frame.Pts != videoframe.NoTimestamp:
		e.lastPts = frame.Pts
	case frame.PktDts != videoframe.NoTimestamp:
		e.lastPts = frame.PktDts
	default:
		e.lastPts++
	}
	return e.lastPts
}
