package videobackend

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/afero"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var fs = afero.NewOsFs()

const (
	KindSetup  = xerror.Kind("setup")
	KindDecode = xerror.Kind("decode")
)

var (
	ErrUnknownBackend = errors.New("unknown video backend")
	ErrNoVideoStream  = errors.New("video stream not found")
)

// Container is an opened media file with a decoder ready for its first
// video stream.
type Container interface {
	UUID() string
	Dimensions() videoframe.Dimensions
	// StreamIndex is the index of the selected video stream.
	StreamIndex() int
	// ReadPacket returns the next compressed packet of any stream, or io.EOF
	// once the container has no more. The returned packet is only valid
	// until the next call.
	ReadPacket() (*videoframe.Packet, error)
	// Decode feeds the packet's remaining bytes to the decoder and reports
	// how many were consumed and the frame completed by this attempt, if
	// any. A nil packet asks the decoder to flush a buffered frame.
	Decode(*videoframe.Packet) (int, *videoframe.Frame, error)
	Close() error
}

type Backend interface {
	Open(context.Context, string) (Container, error)
}

func Default() Backend {
	return LibAV()
}

func LibAV() Backend {
	return &libavBackend{}
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockVideoBackend{}
}

func Resolve(t string) (Backend, error) {
	switch t {
	case "", "libav":
		return LibAV(), nil
	case "opencv":
		return OpenCV(), nil
	case "mock":
		return Mock(), nil
	default:
		return nil, xerror.Errorf("%s: %w", t, ErrUnknownBackend)
	}
}

func ensureReadable(path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return xerror.NewWithKind(KindSetup, "couldn't open file, possibly it doesn't exist").WithParam("path", path)
		}
		return xerror.Errorf("%s: %w", path, err).AsKind(KindSetup)
	}
	if info.IsDir() {
		return xerror.NewWithKind(KindSetup, "couldn't open file, path is a directory").WithParam("path", path)
	}
	return nil
}
