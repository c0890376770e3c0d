package videobackend

import (
	"context"
	"io"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

// blockSize is the spacing of the sampled flow field, one estimated vector
// per macroblock sized block.
const blockSize = 16

type openCVBackend struct{}

func (b *openCVBackend) Open(cancel context.Context, path string) (Container, error) {
	if err := ensureReadable(path); err != nil {
		return nil, err
	}

	conn := openCVContainer{}
	if err := conn.open(cancel, path); err != nil {
		return nil, err
	}
	return &conn, nil
}

// openCVContainer estimates motion vectors for codecs that export none. The
// capture decodes whole pictures, so every picture is handed out as a
// single token packet which the decoder consumes in one attempt.
type openCVContainer struct {
	uuid       string
	mu         sync.Mutex
	vc         *gocv.VideoCapture
	dimensions videoframe.Dimensions
	pending    gocv.Mat
	gray       gocv.Mat
	prevGray   gocv.Mat
	flow       gocv.Mat
	hasPrev    bool
	pts        int64
	token      videoframe.Packet
}

func (c *openCVContainer) open(cancel context.Context, addr string) error {
	result := make(chan openVideoStreamResult, 1)
	go openVideoStream(addr, result)
	select {
	case r := <-result:
		if r.err != nil {
			return xerror.Errorf("codec not found or cannot open codec: %w", r.err).AsKind(KindSetup)
		}
		c.vc = r.vc
	case <-cancel.Done():
		return xerror.NewWithKind(KindSetup, "open cancelled")
	}

	if !c.vc.IsOpened() {
		c.vc.Close()
		return xerror.Errorf("%s: %w", addr, ErrNoVideoStream)
	}

	c.dimensions = videoframe.Dimensions{
		W: int(c.vc.Get(gocv.VideoCaptureFrameWidth)),
		H: int(c.vc.Get(gocv.VideoCaptureFrameHeight)),
	}
	c.pending = gocv.NewMat()
	c.gray = gocv.NewMat()
	c.prevGray = gocv.NewMat()
	c.flow = gocv.NewMat()
	return nil
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func openVideoStream(addr string, d chan openVideoStreamResult) {
	vc, err := openVideoCapture(addr)
	d <- openVideoStreamResult{vc: vc, err: err}
}

var openVideoCapture = func(addr string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(addr)
}

var readFromVideoCapture = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat)
	}
	return false
}

func (c *openCVContainer) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *openCVContainer) Dimensions() videoframe.Dimensions { return c.dimensions }

func (c *openCVContainer) StreamIndex() int { return 0 }

func (c *openCVContainer) ReadPacket() (*videoframe.Packet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !readFromVideoCapture(c.vc, &c.pending) || c.pending.Empty() {
		return nil, io.EOF
	}
	c.pts = int64(math.Round(c.vc.Get(gocv.VideoCapturePosMsec)))
	c.token = videoframe.Packet{StreamIndex: 0, Data: []byte{0}, DataRef: &c.pending}
	return &c.token, nil
}

func (c *openCVContainer) Decode(pkt *videoframe.Packet) (int, *videoframe.Frame, error) {
	if pkt == nil || pkt.Remaining() == 0 {
		return 0, nil, nil
	}
	mat, ok := pkt.DataRef.(*gocv.Mat)
	if !ok {
		return 0, nil, xerror.New("must pass OpenCV packet to OpenCV decoder")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	gocv.CvtColor(*mat, &c.gray, gocv.ColorBGRToGray)
	frame := videoframe.Frame{Pts: c.pts, PktDts: videoframe.NoTimestamp, PictureType: videoframe.PictureTypeI}
	if c.hasPrev {
		// flow from the current picture back to the previous one gives, for
		// every block centre, where its content came from
		gocv.CalcOpticalFlowFarneback(c.gray, c.prevGray, &c.flow, 0.5, 3, 15, 3, 5, 1.2, 0)
		frame.PictureType = videoframe.PictureTypeP
		frame.HasMotionVectors = true
		frame.MotionVectors = sampleFlow(c.flow.Rows(), c.flow.Cols(), func(row, col int) (float32, float32) {
			v := c.flow.GetVecfAt(row, col)
			return v[0], v[1]
		})
	}
	c.gray.CopyTo(&c.prevGray)
	c.hasPrev = true

	return pkt.Remaining(), &frame, nil
}

// sampleFlow turns a dense flow field into one vector per block, taken at
// the block centre. at returns the flow pointing from the current picture
// into the reference picture.
func sampleFlow(rows, cols int, at func(row, col int) (float32, float32)) []videoframe.MotionVectorRecord {
	var mvs []videoframe.MotionVectorRecord
	for y := blockSize / 2; y < rows; y += blockSize {
		for x := blockSize / 2; x < cols; x += blockSize {
			fx, fy := at(y, x)
			mvs = append(mvs, videoframe.MotionVectorRecord{
				Source: -1,
				W:      blockSize,
				H:      blockSize,
				SrcX:   int16(x + int(math.Round(float64(fx)))),
				SrcY:   int16(y + int(math.Round(float64(fy)))),
				DstX:   int16(x),
				DstY:   int16(y),
			})
		}
	}
	return mvs
}

func (c *openCVContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending.Close()
	c.gray.Close()
	c.prevGray.Close()
	c.flow.Close()
	return c.vc.Close()
}
