package motion_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/mvflow/pkg/log"
	"github.com/tauraamui/mvflow/pkg/motion"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
)

func overloadWarnLog(overload func(string, ...interface{})) func() {
	logWarnRef := log.Warn
	log.Warn = overload
	return func() { log.Warn = logWarnRef }
}

type step struct {
	consumed int
	pts      int64
	err      error
}

func frameStep(consumed int, pts int64) step { return step{consumed: consumed, pts: pts} }

func emptyStep(consumed int) step { return step{consumed: consumed, pts: -1} }

func errStep(consumed int) step { return step{consumed: consumed, pts: -1, err: errors.New("bad slice")} }

type scriptedPacket struct {
	stream int
	size   int
	steps  []step
}

// scriptedDecoder replays decode attempts per packet. Once a packet's steps
// run out every further attempt makes no progress.
type scriptedDecoder struct {
	packets  []scriptedPacket
	flush    []int64
	next     int
	current  *scriptedPacket
	step     int
	attempts int
	readErr  error
	decoded  [][]int
}

func (d *scriptedDecoder) StreamIndex() int { return 0 }

func (d *scriptedDecoder) ReadPacket() (*videoframe.Packet, error) {
	if d.next >= len(d.packets) {
		if d.readErr != nil {
			return nil, d.readErr
		}
		return nil, io.EOF
	}
	d.current = &d.packets[d.next]
	d.next++
	d.step = 0
	d.decoded = append(d.decoded, nil)
	return &videoframe.Packet{StreamIndex: d.current.stream, Data: make([]byte, d.current.size)}, nil
}

func (d *scriptedDecoder) Decode(pkt *videoframe.Packet) (int, *videoframe.Frame, error) {
	d.attempts++
	if pkt == nil {
		if len(d.flush) == 0 {
			return 0, nil, nil
		}
		pts := d.flush[0]
		d.flush = d.flush[1:]
		return 0, &videoframe.Frame{Pts: pts}, nil
	}

	last := len(d.decoded) - 1
	d.decoded[last] = append(d.decoded[last], pkt.Remaining())

	if d.step >= len(d.current.steps) {
		return 0, nil, nil
	}
	s := d.current.steps[d.step]
	d.step++
	if s.err != nil {
		return s.consumed, nil, s.err
	}
	if s.pts < 0 {
		return s.consumed, nil, nil
	}
	return s.consumed, &videoframe.Frame{Pts: s.pts}, nil
}

func collect(t *testing.T, src *motion.FrameSource) ([]int64, error) {
	t.Helper()
	var pts []int64
	for {
		frame, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return pts, nil
		}
		if err != nil {
			return pts, err
		}
		pts = append(pts, frame.Pts)
	}
}

func TestFrameSourceDrainsEveryFrameFromOnePacket(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 30, steps: []step{frameStep(10, 1), frameStep(10, 2), frameStep(10, 3)}},
		{stream: 0, size: 5, steps: []step{frameStep(5, 4)}},
	}}
	src := motion.NewFrameSource(dec, motion.FrameSourceSettings{})

	pts, err := collect(t, src)
	is.NoErr(err)
	is.Equal(pts, []int64{1, 2, 3, 4})
	is.Equal(dec.decoded[0], []int{30, 20, 10})
	is.Equal(src.Stats().Packets, 2)
}

func TestFrameSourceRetriesUntilPacketConsumed(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 12, steps: []step{emptyStep(4), emptyStep(4), frameStep(4, 9)}},
	}}

	pts, err := collect(t, motion.NewFrameSource(dec, motion.FrameSourceSettings{}))
	is.NoErr(err)
	is.Equal(pts, []int64{9})
	is.Equal(dec.decoded[0], []int{12, 8, 4})
}

func TestFrameSourceDiscardsForeignStreams(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 1, size: 8, steps: []step{frameStep(8, 100)}},
		{stream: 0, size: 8, steps: []step{frameStep(8, 1)}},
		{stream: 2, size: 8, steps: []step{frameStep(8, 200)}},
	}}
	src := motion.NewFrameSource(dec, motion.FrameSourceSettings{})

	pts, err := collect(t, src)
	is.NoErr(err)
	is.Equal(pts, []int64{1})
	is.Equal(src.Stats().Discarded, 2)
	is.Equal(src.Stats().Packets, 3)
	is.Equal(dec.decoded[0], nil)
	is.Equal(dec.decoded[1], []int{8})
	is.Equal(dec.decoded[2], nil)
}

func TestFrameSourceClampsOverReportedConsumption(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 6, steps: []step{frameStep(600, 1)}},
		{stream: 0, size: 6, steps: []step{frameStep(6, 2)}},
	}}

	pts, err := collect(t, motion.NewFrameSource(dec, motion.FrameSourceSettings{}))
	is.NoErr(err)
	is.Equal(pts, []int64{1, 2})
	is.Equal(dec.decoded[0], []int{6})
}

func TestFrameSourceContinuesPastDecodeErrors(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 10, steps: []step{errStep(0), errStep(5), frameStep(5, 3)}},
		{stream: 0, size: 4, steps: []step{errStep(4)}},
		{stream: 0, size: 4, steps: []step{frameStep(4, 5)}},
	}}
	src := motion.NewFrameSource(dec, motion.FrameSourceSettings{})

	pts, err := collect(t, src)
	is.NoErr(err)
	is.Equal(pts, []int64{3, 5})
	is.Equal(src.Stats().DecodeErrors, 3)
	is.Equal(src.Stats().Stalls, 0)
}

func TestFrameSourceFlushesBufferedFramesAtEnd(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{
		packets: []scriptedPacket{{stream: 0, size: 3, steps: []step{emptyStep(3)}}},
		flush:   []int64{7, 8, 9},
	}
	src := motion.NewFrameSource(dec, motion.FrameSourceSettings{})

	pts, err := collect(t, src)
	is.NoErr(err)
	is.Equal(pts, []int64{7, 8, 9})

	attempts := dec.attempts
	frame, err := src.Next(context.Background())
	is.True(frame == nil)
	is.True(errors.Is(err, io.EOF))
	is.Equal(dec.attempts, attempts)
}

func TestFrameSourceTreatsReadFailureAsEndOfStream(t *testing.T) {
	is := is.New(t)
	warned := false
	defer overloadWarnLog(func(string, ...interface{}) { warned = true })()

	dec := &scriptedDecoder{
		packets: []scriptedPacket{{stream: 0, size: 2, steps: []step{frameStep(2, 1)}}},
		flush:   []int64{2},
		readErr: errors.New("truncated container"),
	}

	pts, err := collect(t, motion.NewFrameSource(dec, motion.FrameSourceSettings{}))
	is.NoErr(err)
	is.Equal(pts, []int64{1, 2})
	is.True(warned)
}

func TestFrameSourceDropsStalledPacket(t *testing.T) {
	is := is.New(t)
	var warnings []string
	defer overloadWarnLog(func(format string, a ...interface{}) { warnings = append(warnings, format) })()

	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 10, steps: []step{frameStep(2, 1)}},
		{stream: 0, size: 4, steps: []step{frameStep(4, 2)}},
	}}
	src := motion.NewFrameSource(dec, motion.FrameSourceSettings{StallLimit: 3})

	pts, err := collect(t, src)
	is.NoErr(err)
	is.Equal(pts, []int64{1, 2})
	is.Equal(src.Stats().Stalls, 1)
	is.Equal(len(warnings), 1)
	// one productive attempt then the limit plus one unproductive ones
	is.Equal(len(dec.decoded[0]), 1+3+1)
}

func TestFrameSourceStrictStallIsAnError(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 10, steps: []step{frameStep(2, 1), errStep(0), errStep(0)}},
		{stream: 0, size: 4, steps: []step{frameStep(4, 2)}},
	}}
	src := motion.NewFrameSource(dec, motion.FrameSourceSettings{StallLimit: 2, Strict: true})

	pts, err := collect(t, src)
	is.True(errors.Is(err, motion.ErrDecodeStalled))
	is.True(strings.Contains(err.Error(), `last error "bad slice"`))
	is.Equal(pts, []int64{1})

	_, err = src.Next(context.Background())
	is.True(errors.Is(err, io.EOF))
}

func TestFrameSourceStopsReadingWhenCancelled(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 1, steps: []step{frameStep(1, 1)}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := motion.NewFrameSource(dec, motion.FrameSourceSettings{}).Next(ctx)
	is.True(errors.Is(err, context.Canceled))
	is.Equal(dec.next, 0)
}

func TestFrameSourceDropsRejectedPacketAfterOneAttempt(t *testing.T) {
	is := is.New(t)
	dec := &scriptedDecoder{packets: []scriptedPacket{
		{stream: 0, size: 6, steps: []step{errStep(6)}},
		{stream: 0, size: 2, steps: []step{frameStep(2, 1)}},
	}}
	src := motion.NewFrameSource(dec, motion.FrameSourceSettings{})

	pts, err := collect(t, src)
	is.NoErr(err)
	is.Equal(pts, []int64{1})
	is.Equal(dec.decoded[0], []int{6})
	is.Equal(src.Stats().DecodeErrors, 1)
	is.Equal(src.Stats().Stalls, 0)
}
