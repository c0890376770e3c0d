package motion

const windowSize = 2

type windowEntry struct {
	frame   *GridFrame
	emitted bool
}

// InterpolationBuffer fills single-frame gaps in a stream of grids. A frame
// with no vectors that sits between two frames with vectors gets the
// per-cell mean of its neighbours; every other frame passes through
// unchanged.
//
// Frames must be pushed in decode order. The buffer looks back at most two
// frames, the last frame with vectors (already emitted, kept as the
// interpolation source) and the frames without vectors that followed it,
// which are held back until the next frame with vectors decides their fate.
// Every pushed frame is emitted exactly once, in push order.
type InterpolationBuffer struct {
	window       []windowEntry
	interpolated int
}

func NewInterpolationBuffer() *InterpolationBuffer {
	return &InterpolationBuffer{window: make([]windowEntry, 0, windowSize+1)}
}

// Push adds the next frame and returns the frames that are now ready to be
// written, in order.
func (b *InterpolationBuffer) Push(cur *GridFrame) []*GridFrame {
	if cur.Empty() {
		return b.hold(cur)
	}

	if len(b.window) == windowSize && !b.window[0].frame.Empty() {
		prev, gap := b.window[0].frame, b.window[1].frame
		gap.interpolate(prev, cur)
		b.interpolated++
	}
	ready := b.appendPending(nil, b.window)
	ready = append(ready, cur)

	b.window = append(b.window[:0], windowEntry{frame: cur, emitted: true})
	return ready
}

func (b *InterpolationBuffer) hold(cur *GridFrame) []*GridFrame {
	var ready []*GridFrame
	if len(b.window) == windowSize {
		ready = b.appendPending(ready, b.window[:1])
		b.window = append(b.window[:0], b.window[1])
	}
	b.window = append(b.window, windowEntry{frame: cur})
	return ready
}

func (b *InterpolationBuffer) appendPending(ready []*GridFrame, entries []windowEntry) []*GridFrame {
	for _, e := range entries {
		if !e.emitted {
			ready = append(ready, e.frame)
		}
	}
	return ready
}

// Flush returns every frame still held back, unchanged, and empties the
// buffer. A trailing gap has no following frame to interpolate against.
func (b *InterpolationBuffer) Flush() []*GridFrame {
	ready := b.appendPending(nil, b.window)
	b.window = b.window[:0]
	return ready
}

// Reset drops all held frames without emitting them.
func (b *InterpolationBuffer) Reset() {
	b.window = b.window[:0]
	b.interpolated = 0
}

// Interpolated counts the gaps filled since the buffer was created or reset.
func (b *InterpolationBuffer) Interpolated() int {
	return b.interpolated
}
