package dispatch

import "context"

// Pending is the outcome of one invocation. It settles exactly once.
type Pending struct {
	done     chan struct{}
	err      error
	rejected bool
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// rejectedPending is returned for invocations dropped before any host call.
func rejectedPending(err error) *Pending {
	p := &Pending{done: make(chan struct{}), err: err, rejected: true}
	close(p.done)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Rejected reports whether the invocation was dropped without a host call.
func (p *Pending) Rejected() bool { return p.rejected }

// Err returns the settlement error, or nil while still pending.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the invocation settles or ctx is done. Giving up on the
// wait does not cancel the host call.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
