package audit

import (
	"context"
	"errors"
	"time"
)

// ErrStillPending is returned by Wait when the write has not finished.
var ErrStillPending = errors.New("audit write still in flight")

// Pending is a write running in the background.
type Pending struct {
	done chan struct{}
	ack  Ack
	err  error
}

// Start launches the write on a context that survives cancellation of ctx,
// so a client disconnecting mid-submit cannot abort the record. timeout
// bounds the detached write.
func Start(ctx context.Context, w Writer, rec Record, timeout time.Duration) *Pending {
	p := &Pending{done: make(chan struct{})}
	wctx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc = func() {}
	if timeout > 0 {
		wctx, cancel = context.WithTimeout(wctx, timeout)
	}
	go func() {
		defer close(p.done)
		defer cancel()
		p.ack, p.err = w.Write(wctx, rec)
	}()
	return p
}

// Wait returns the outcome, or ErrStillPending if ctx ends first.
func (p *Pending) Wait(ctx context.Context) (Ack, error) {
	select {
	case <-p.done:
		return p.ack, p.err
	case <-ctx.Done():
		return Ack{}, ErrStillPending
	}
}

// Done is closed when the write has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}
