package motion

import (
	"context"
	"errors"
	"io"

	"github.com/tauraamui/mvflow/pkg/log"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

// DefaultStallLimit is how many attempts in a row may fail to make progress
// on one packet before the packet counts as stalled.
const DefaultStallLimit = 64

var ErrDecodeStalled = errors.New("decode stalled")

// Decoder is the part of an opened container the frame source drives.
type Decoder interface {
	StreamIndex() int
	ReadPacket() (*videoframe.Packet, error)
	Decode(*videoframe.Packet) (int, *videoframe.Frame, error)
}

type sourceState int

const (
	awaitingPacket sourceState = iota
	drainingPacket
	flushing
	finished
)

type SourceStats struct {
	Packets      int
	Discarded    int
	DecodeErrors int
	Stalls       int
}

// FrameSource yields the decoded frames of one video stream, in decode
// order. It is single pass: once Next has returned io.EOF it keeps doing so.
//
// Every packet of the selected stream is fed to the decoder until all of
// its bytes are consumed, yielding each frame as soon as it completes and
// resuming on the same packet at the next call. When the container runs
// out of packets the decoder is flushed until it stops producing frames.
type FrameSource struct {
	dec        Decoder
	state      sourceState
	pkt        *videoframe.Packet
	failures   int
	lastErr    error
	stallLimit int
	strict     bool
	stats      SourceStats
}

// FrameSourceSettings tunes stall handling. A StallLimit below 1 means
// DefaultStallLimit. With Strict set a stalled packet ends the sequence
// with an error wrapping ErrDecodeStalled instead of being dropped.
type FrameSourceSettings struct {
	StallLimit int
	Strict     bool
}

func NewFrameSource(dec Decoder, settings FrameSourceSettings) *FrameSource {
	s := &FrameSource{dec: dec, stallLimit: settings.StallLimit, strict: settings.Strict}
	if s.stallLimit < 1 {
		s.stallLimit = DefaultStallLimit
	}
	return s
}

func (s *FrameSource) Stats() SourceStats {
	return s.stats
}

// Next returns the next decoded frame, or io.EOF once the stream is
// exhausted.
func (s *FrameSource) Next(ctx context.Context) (*videoframe.Frame, error) {
	for {
		switch s.state {
		case finished:
			return nil, io.EOF
		case awaitingPacket:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s.readPacket()
		case drainingPacket:
			frame, err := s.attempt()
			if err != nil || frame != nil {
				return frame, err
			}
		case flushing:
			if frame := s.flush(); frame != nil {
				return frame, nil
			}
		}
	}
}

func (s *FrameSource) readPacket() {
	pkt, err := s.dec.ReadPacket()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Warn("treating packet read failure as end of stream: %v", err)
		}
		s.state = flushing
		return
	}

	s.stats.Packets++
	if pkt.StreamIndex != s.dec.StreamIndex() {
		s.stats.Discarded++
		log.Debug("discarding packet from stream %d", pkt.StreamIndex)
		return
	}

	s.pkt = pkt
	s.failures = 0
	s.state = drainingPacket
}

func (s *FrameSource) attempt() (*videoframe.Frame, error) {
	consumed, frame, err := s.dec.Decode(s.pkt)
	s.pkt.Advance(consumed)

	if err != nil {
		s.stats.DecodeErrors++
		s.lastErr = err
		log.Debug("decode attempt failed, %d bytes left in packet: %v", s.pkt.Remaining(), err)
	}

	if err != nil || (consumed <= 0 && frame == nil) {
		s.failures++
	} else {
		s.failures = 0
	}

	if s.failures > s.stallLimit {
		s.stats.Stalls++
		remaining, lastErr := s.pkt.Remaining(), s.lastErr
		s.releasePacket()
		if s.strict {
			s.state = finished
			if lastErr != nil {
				return nil, xerror.Errorf("%d bytes undecoded after %d attempts, last error %q: %w", remaining, s.stallLimit, lastErr.Error(), ErrDecodeStalled)
			}
			return nil, xerror.Errorf("%d bytes undecoded after %d attempts: %w", remaining, s.stallLimit, ErrDecodeStalled)
		}
		log.Warn("dropping stalled packet with %d undecoded bytes", remaining)
		return frame, nil
	}

	if s.pkt.Remaining() == 0 {
		s.releasePacket()
	}
	return frame, nil
}

func (s *FrameSource) releasePacket() {
	s.pkt = nil
	s.failures = 0
	s.lastErr = nil
	s.state = awaitingPacket
}

func (s *FrameSource) flush() *videoframe.Frame {
	_, frame, err := s.dec.Decode(nil)
	if err != nil {
		s.stats.DecodeErrors++
		log.Debug("decoder flush failed: %v", err)
	}
	if frame == nil {
		s.state = finished
	}
	return frame
}
