package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes each event as one formatted line. Output is buffered;
// Flush or Close pushes it to the underlying writer.
type StreamTracer struct {
	mu     sync.Mutex
	out    *bufio.Writer
	dst    io.Writer
	level  Level
	format Format
}

// NewStreamTracer returns a tracer writing to w in format.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{out: bufio.NewWriter(w), dst: w, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev == nil || !t.level.ShouldEmit(ev.Scope) {
		return
	}
	ev.Seq = NextSeq()
	line := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	// Trace output is best-effort.
	_, _ = t.out.Write(line)
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Flush()
}

// Close flushes and closes the destination unless it is a shared stream.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if _, shared := t.dst.(nopCloser); shared {
		return nil
	}
	if c, ok := t.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
