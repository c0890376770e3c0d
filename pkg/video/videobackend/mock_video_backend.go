package videobackend

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

// Trace is a scripted container. The mock backend replays it in place of a
// real codec: every packet lists the decode attempts the decoder will make
// on it, in order. Attempts past the end of the script consume whatever is
// left of the packet and produce nothing.
type Trace struct {
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	VideoStream int           `json:"video_stream"`
	Packets     []TracePacket `json:"packets"`
	Flush       []TraceFrame  `json:"flush"`
}

type TracePacket struct {
	Stream   int            `json:"stream"`
	Size     int            `json:"size"`
	Attempts []TraceAttempt `json:"attempts"`
}

type TraceAttempt struct {
	Consumed int         `json:"consumed"`
	Frame    *TraceFrame `json:"frame,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// TraceFrame omits a timestamp by leaving it out, and omits the motion
// vector side channel the same way. Each vector is src_x, src_y, dst_x,
// dst_y.
type TraceFrame struct {
	Pts           *int64      `json:"pts,omitempty"`
	PktDts        *int64      `json:"pkt_dts,omitempty"`
	PictType      string      `json:"pict_type"`
	MotionVectors *[][4]int16 `json:"motion_vectors,omitempty"`
}

type mockVideoBackend struct{}

func (b *mockVideoBackend) Open(cancel context.Context, path string) (Container, error) {
	if err := ensureReadable(path); err != nil {
		return nil, err
	}
	if err := cancel.Err(); err != nil {
		return nil, xerror.NewWithKind(KindSetup, "open cancelled")
	}

	trace, err := loadTrace(path)
	if err != nil {
		return nil, xerror.Errorf("stream information not found: %w", err).AsKind(KindSetup)
	}
	if trace.VideoStream < 0 {
		return nil, xerror.Errorf("%s: %w", path, ErrNoVideoStream)
	}
	return NewTraceContainer(trace), nil
}

var readTraceFile = func(path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func loadTrace(path string) (Trace, error) {
	var trace Trace
	content, err := readTraceFile(path)
	if err != nil {
		return trace, err
	}
	if err := json.Unmarshal(content, &trace); err != nil {
		return trace, errors.Wrap(err, "parsing trace")
	}
	return trace, nil
}

// NewTraceContainer exposes a trace as an opened container.
func NewTraceContainer(trace Trace) Container {
	return &mockVideoContainer{trace: trace}
}

type mockVideoContainer struct {
	uuid    string
	trace   Trace
	next    int
	flushed int
	packet  videoframe.Packet
}

type mockPacketState struct {
	packet  TracePacket
	attempt int
}

func (c *mockVideoContainer) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *mockVideoContainer) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: c.trace.Width, H: c.trace.Height}
}

func (c *mockVideoContainer) StreamIndex() int { return c.trace.VideoStream }

func (c *mockVideoContainer) ReadPacket() (*videoframe.Packet, error) {
	if c.next >= len(c.trace.Packets) {
		return nil, io.EOF
	}
	p := c.trace.Packets[c.next]
	c.next++
	c.packet = videoframe.Packet{
		StreamIndex: p.Stream,
		Data:        make([]byte, p.Size),
		DataRef:     &mockPacketState{packet: p},
	}
	return &c.packet, nil
}

func (c *mockVideoContainer) Decode(pkt *videoframe.Packet) (int, *videoframe.Frame, error) {
	if pkt == nil {
		if c.flushed >= len(c.trace.Flush) {
			return 0, nil, nil
		}
		f := c.trace.Flush[c.flushed]
		c.flushed++
		return 0, f.toFrame(), nil
	}

	state, ok := pkt.DataRef.(*mockPacketState)
	if !ok {
		return 0, nil, xerror.New("must pass mock packet to mock decoder")
	}

	if state.attempt >= len(state.packet.Attempts) {
		return pkt.Remaining(), nil, nil
	}
	a := state.packet.Attempts[state.attempt]
	state.attempt++

	if len(a.Error) > 0 {
		return a.Consumed, nil, xerror.NewWithKind(KindDecode, a.Error)
	}
	if a.Frame == nil {
		return a.Consumed, nil, nil
	}
	return a.Consumed, a.Frame.toFrame(), nil
}

func (c *mockVideoContainer) Close() error {
	return nil
}

func (f TraceFrame) toFrame() *videoframe.Frame {
	frame := videoframe.Frame{
		Pts:         videoframe.NoTimestamp,
		PktDts:      videoframe.NoTimestamp,
		PictureType: pictureTypeFromChar(f.PictType),
	}
	if f.Pts != nil {
		frame.Pts = *f.Pts
	}
	if f.PktDts != nil {
		frame.PktDts = *f.PktDts
	}
	if f.MotionVectors != nil {
		frame.HasMotionVectors = true
		for _, mv := range *f.MotionVectors {
			frame.MotionVectors = append(frame.MotionVectors, videoframe.MotionVectorRecord{
				SrcX: mv[0], SrcY: mv[1], DstX: mv[2], DstY: mv[3],
			})
		}
	}
	return &frame
}

func pictureTypeFromChar(s string) videoframe.PictureType {
	for t := videoframe.PictureTypeI; t <= videoframe.PictureTypeBI; t++ {
		if len(s) == 1 && t.Char() == s[0] {
			return t
		}
	}
	return videoframe.PictureTypeNone
}
