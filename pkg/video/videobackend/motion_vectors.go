package videobackend

import (
	"encoding/binary"

	"github.com/tauraamui/mvflow/pkg/video/videoframe"
)

// Layout of libav's AVMotionVector, as packed by the C compiler:
//
//	int32_t  source        0
//	uint8_t  w, h          4, 5
//	int16_t  src_x, src_y  6, 8
//	int16_t  dst_x, dst_y  10, 12
//	uint64_t flags         16
//	int32_t  motion_x/y    24, 28
//	uint16_t motion_scale  32
const avMotionVectorSize = 40

// parseMotionVectors decodes AV_FRAME_DATA_MOTION_VECTORS side data. A
// trailing partial record is ignored.
func parseMotionVectors(data []byte) []videoframe.MotionVectorRecord {
	n := len(data) / avMotionVectorSize
	mvs := make([]videoframe.MotionVectorRecord, 0, n)
	le := binary.LittleEndian
	for i := 0; i < n; i++ {
		r := data[i*avMotionVectorSize : (i+1)*avMotionVectorSize]
		mvs = append(mvs, videoframe.MotionVectorRecord{
			Source: int32(le.Uint32(r[0:4])),
			W:      r[4],
			H:      r[5],
			SrcX:   int16(le.Uint16(r[6:8])),
			SrcY:   int16(le.Uint16(r[8:10])),
			DstX:   int16(le.Uint16(r[10:12])),
			DstY:   int16(le.Uint16(r[12:14])),
			Flags:  le.Uint64(r[16:24]),
		})
	}
	return mvs
}
