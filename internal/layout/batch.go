package layout

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"memlayout/internal/trace"
	"memlayout/internal/types"
)

// Status captures progress state of one batch item.
type Status string

const (
	// StatusQueued indicates the type is waiting to be laid out.
	StatusQueued Status = "queued"
	// StatusWorking indicates the type is being laid out.
	StatusWorking Status = "working"
	// StatusDone indicates the layout succeeded.
	StatusDone Status = "done"
	// StatusError indicates the layout failed.
	StatusError Status = "error"
)

// Event reports progress for one type of a batch.
type Event struct {
	Index   int
	Type    types.TypeID
	Label   string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be goroutine-safe.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Outcome is the result of one batch item.
type Outcome struct {
	Type   types.TypeID
	Result Result
	Err    error
}

// LayoutAll lays out ids in parallel with at most jobs workers (GOMAXPROCS
// when jobs <= 0). Per-type failures are reported in the outcome and do not
// stop the batch; only context cancellation does. Outcomes keep the order of ids.
func (e *Engine) LayoutAll(ctx context.Context, ids []types.TypeID, policy Policy, jobs int, sink ProgressSink) ([]Outcome, error) {
	outcomes := make([]Outcome, len(ids))
	if len(ids) == 0 {
		return outcomes, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	emit := func(evt Event) {
		if sink != nil {
			sink.OnEvent(evt)
		}
	}
	for i, id := range ids {
		emit(Event{Index: i, Type: id, Label: e.label(id), Status: StatusQueued})
	}

	span := trace.Begin(e.tracer, trace.ScopeCommand, "layout batch "+policy.String(), trace.ParentID(ctx))
	defer span.End("")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(ids)))
	for i, id := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			label := e.label(id)
			emit(Event{Index: i, Type: id, Label: label, Status: StatusWorking})
			start := time.Now()
			res, err := e.layoutFrom(id, policy, span.ID())
			outcomes[i] = Outcome{Type: id, Result: res, Err: err}
			status := StatusDone
			if err != nil {
				status = StatusError
			}
			emit(Event{Index: i, Type: id, Label: label, Status: status, Err: err, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
