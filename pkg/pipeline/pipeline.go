package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/tauraamui/mvflow/pkg/log"
	"github.com/tauraamui/mvflow/pkg/motion"
	"github.com/tauraamui/mvflow/pkg/output"
	"github.com/tauraamui/mvflow/pkg/video/videoframe"
)

// Source is an opened container as the pipeline sees it.
type Source interface {
	motion.Decoder
	UUID() string
	Dimensions() videoframe.Dimensions
}

type Options struct {
	Mode         output.Mode
	StallLimit   int
	StrictDecode bool
}

type Stats struct {
	motion.SourceStats
	Frames       int
	Interpolated int
}

// Run decodes every frame of the source's video stream and writes it to w
// in the chosen mode, one frame at a time and in decode order. Whatever was
// written before an error is flushed to w.
func Run(ctx context.Context, src Source, opts Options, w io.Writer) (stats Stats, err error) {
	frames := motion.NewFrameSource(src, motion.FrameSourceSettings{
		StallLimit: opts.StallLimit,
		Strict:     opts.StrictDecode,
	})
	extractor := motion.NewExtractor()
	out := output.NewWriter(w)

	var emit func(motion.DecodedFrame) error
	var finish func() error
	switch opts.Mode {
	case output.ModeRaw:
		emit = out.WriteRaw
		finish = func() error { return nil }
	default:
		g := newGridStage(src.Dimensions(), out)
		emit = g.push
		finish = g.flush
		defer func() { stats.Interpolated = g.buffer.Interpolated() }()
	}

	log.Info("extracting motion from %s (%dx%d) as %s", src.UUID(), src.Dimensions().W, src.Dimensions().H, opts.Mode)

	defer func() {
		stats.SourceStats = frames.Stats()
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	for index := 1; ; index++ {
		frame, err := frames.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Frames++
		if err := emit(extractor.Extract(frame, index)); err != nil {
			return stats, err
		}
	}

	return stats, finish()
}

type gridStage struct {
	aggregator *motion.Aggregator
	buffer     *motion.InterpolationBuffer
	out        *output.Writer
}

func newGridStage(d videoframe.Dimensions, out *output.Writer) *gridStage {
	return &gridStage{
		aggregator: motion.NewAggregator(d),
		buffer:     motion.NewInterpolationBuffer(),
		out:        out,
	}
}

func (g *gridStage) push(f motion.DecodedFrame) error {
	return g.write(g.buffer.Push(g.aggregator.Aggregate(f)))
}

func (g *gridStage) flush() error {
	return g.write(g.buffer.Flush())
}

func (g *gridStage) write(frames []*motion.GridFrame) error {
	for _, f := range frames {
		if err := g.out.WriteGrid(f); err != nil {
			return err
		}
	}
	return nil
}
