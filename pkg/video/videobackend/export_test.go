package videobackend

import (
	"github.com/asticode/go-astiav"
	"github.com/spf13/afero"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
)

func OverloadFS(overload afero.Fs) func() {
	fsRef := fs
	fs = overload
	return func() { fs = fsRef }
}

func ParseMotionVectors(data []byte) []videoframe.MotionVectorRecord {
	return parseMotionVectors(data)
}

func SampleFlow(rows, cols int, at func(row, col int) (float32, float32)) []videoframe.MotionVectorRecord {
	return sampleFlow(rows, cols, at)
}

func OverloadReadTraceFile(overload func(string) ([]byte, error)) func() {
	readTraceFileRef := readTraceFile
	readTraceFile = overload
	return func() { readTraceFile = readTraceFileRef }
}

func PictureTypeFromLibAV(t astiav.PictureType) videoframe.PictureType {
	return pictureTypeFromLibAV(t)
}
