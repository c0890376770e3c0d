package videobackend

import (
	"context"
	"errors"
	"io"

	"github.com/asticode/go-astiav"
	"github.com/google/uuid"
	"github.com/tauraamui/mvflow/pkg/log"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type libavBackend struct{}

func (b *libavBackend) Open(cancel context.Context, path string) (Container, error) {
	if err := ensureReadable(path); err != nil {
		return nil, err
	}

	result := make(chan openLibAVResult, 1)
	go func() {
		c, err := openLibAVContainer(path)
		result <- openLibAVResult{c: c, err: err}
	}()

	select {
	case r := <-result:
		if r.err != nil {
			return nil, r.err
		}
		return r.c, nil
	case <-cancel.Done():
		go func() {
			if r := <-result; r.c != nil {
				r.c.Close()
			}
		}()
		return nil, xerror.NewWithKind(KindSetup, "open cancelled")
	}
}

type openLibAVResult struct {
	c   *libavContainer
	err error
}

type libavContainer struct {
	uuid        string
	fc          *astiav.FormatContext
	cc          *astiav.CodecContext
	pkt         *astiav.Packet
	frame       *astiav.Frame
	streamIndex int
	dimensions  videoframe.Dimensions
	flushed     bool
	packet      videoframe.Packet
}

func openLibAVContainer(path string) (*libavContainer, error) {
	c := libavContainer{streamIndex: -1}

	c.fc = astiav.AllocFormatContext()
	if c.fc == nil {
		return nil, xerror.NewWithKind(KindSetup, "unable to allocate format context")
	}

	if err := c.fc.OpenInput(path, nil, nil); err != nil {
		c.fc.Free()
		return nil, xerror.Errorf("couldn't open file, possibly it doesn't exist: %s: %w", path, err).AsKind(KindSetup)
	}

	if err := c.fc.FindStreamInfo(nil); err != nil {
		c.Close()
		return nil, xerror.Errorf("stream information not found: %w", err).AsKind(KindSetup)
	}

	for _, s := range c.fc.Streams() {
		if s.CodecParameters().MediaType() != astiav.MediaTypeVideo {
			continue
		}
		if err := c.openDecoder(s); err != nil {
			c.Close()
			return nil, err
		}
		break
	}

	if c.streamIndex < 0 {
		c.Close()
		return nil, xerror.Errorf("%s: %w", path, ErrNoVideoStream)
	}

	c.pkt = astiav.AllocPacket()
	c.frame = astiav.AllocFrame()
	return &c, nil
}

func (c *libavContainer) openDecoder(s *astiav.Stream) error {
	codec := astiav.FindDecoder(s.CodecParameters().CodecID())
	if codec == nil {
		return xerror.NewWithKind(KindSetup, "codec not found or cannot open codec")
	}

	c.cc = astiav.AllocCodecContext(codec)
	if c.cc == nil {
		return xerror.NewWithKind(KindSetup, "unable to allocate codec context")
	}

	if err := s.CodecParameters().ToCodecContext(c.cc); err != nil {
		return xerror.Errorf("unable to copy codec parameters: %w", err).AsKind(KindSetup)
	}

	opts := astiav.NewDictionary()
	defer opts.Free()
	if err := opts.Set("flags2", "+export_mvs", 0); err != nil {
		return xerror.Errorf("unable to request motion vector export: %w", err).AsKind(KindSetup)
	}

	if err := c.cc.Open(codec, opts); err != nil {
		return xerror.Errorf("codec not found or cannot open codec: %w", err).AsKind(KindSetup)
	}

	c.streamIndex = s.Index()
	c.dimensions = videoframe.Dimensions{W: s.CodecParameters().Width(), H: s.CodecParameters().Height()}
	return nil
}

func (c *libavContainer) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *libavContainer) Dimensions() videoframe.Dimensions { return c.dimensions }

func (c *libavContainer) StreamIndex() int { return c.streamIndex }

func (c *libavContainer) ReadPacket() (*videoframe.Packet, error) {
	c.pkt.Unref()
	if err := c.fc.ReadFrame(c.pkt); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, xerror.Errorf("unable to read packet: %w", err)
	}
	c.packet = videoframe.Packet{
		StreamIndex: c.pkt.StreamIndex(),
		Data:        c.pkt.Data(),
		DataRef:     c.pkt,
	}
	return &c.packet, nil
}

// Decode maps libav's send/receive API onto the consumed-bytes contract.
// Frames already buffered in the decoder are handed out first without
// consuming anything; otherwise the whole packet is sent, which consumes
// all of its bytes, and one frame is collected if the decoder has one. A
// packet the decoder rejects is reported as consumed so it is dropped
// rather than resent.
func (c *libavContainer) Decode(pkt *videoframe.Packet) (int, *videoframe.Frame, error) {
	frame, err := c.receive()
	if err != nil || frame != nil {
		return 0, frame, err
	}

	if pkt == nil {
		if c.flushed {
			return 0, nil, nil
		}
		c.flushed = true
		if err := c.cc.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
			return 0, nil, xerror.Errorf("unable to flush decoder: %w", err).AsKind(KindDecode)
		}
		frame, err := c.receive()
		return 0, frame, err
	}

	ref, ok := pkt.DataRef.(*astiav.Packet)
	if !ok {
		return 0, nil, xerror.New("must pass libav packet to libav decoder")
	}

	if err := c.cc.SendPacket(ref); err != nil {
		if errors.Is(err, astiav.ErrEagain) {
			return 0, nil, nil
		}
		return pkt.Remaining(), nil, xerror.Errorf("unable to send packet: %w", err).AsKind(KindDecode)
	}

	consumed := pkt.Remaining()
	frame, err = c.receive()
	return consumed, frame, err
}

func (c *libavContainer) receive() (*videoframe.Frame, error) {
	if err := c.cc.ReceiveFrame(c.frame); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return nil, nil
		}
		return nil, xerror.Errorf("unable to receive frame: %w", err).AsKind(KindDecode)
	}
	defer c.frame.Unref()

	frame := videoframe.Frame{
		Pts:         c.frame.Pts(),
		PktDts:      c.frame.PktDts(),
		PictureType: pictureTypeFromLibAV(c.frame.PictureType()),
	}
	if sd := c.frame.SideData(astiav.FrameSideDataTypeMotionVectors); sd != nil {
		frame.HasMotionVectors = true
		frame.MotionVectors = parseMotionVectors(sd.Data())
	}
	return &frame, nil
}

func pictureTypeFromLibAV(t astiav.PictureType) videoframe.PictureType {
	switch t {
	case astiav.PictureTypeI:
		return videoframe.PictureTypeI
	case astiav.PictureTypeP:
		return videoframe.PictureTypeP
	case astiav.PictureTypeB:
		return videoframe.PictureTypeB
	case astiav.PictureTypeS:
		return videoframe.PictureTypeS
	case astiav.PictureTypeSi:
		return videoframe.PictureTypeSI
	case astiav.PictureTypeSp:
		return videoframe.PictureTypeSP
	case astiav.PictureTypeBi:
		return videoframe.PictureTypeBI
	default:
		return videoframe.PictureTypeNone
	}
}

func (c *libavContainer) Close() error {
	if c.frame != nil {
		c.frame.Free()
		c.frame = nil
	}
	if c.pkt != nil {
		c.pkt.Free()
		c.pkt = nil
	}
	if c.cc != nil {
		c.cc.Free()
		c.cc = nil
	}
	if c.fc != nil {
		c.fc.CloseInput()
		c.fc.Free()
		c.fc = nil
	}
	log.Debug("closed libav container %s", c.UUID())
	return nil
}
