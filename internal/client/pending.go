package client

import (
	"context"
	"sync"

	"github.com/SwissDataScienceCenter/renku-authclient/internal/transport"
)

// Pending is the eventual result of a queued request. It is settled exactly once.
type Pending struct {
	done     chan struct{}
	once     sync.Once
	response *transport.Response
	err      error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(res *transport.Response) bool {
	return p.settle(res, nil)
}

func (p *Pending) reject(err error) bool {
	return p.settle(nil, err)
}

func (p *Pending) settle(res *transport.Response, err error) bool {
	settled := false
	p.once.Do(func() {
		p.response = res
		p.err = err
		settled = true
		close(p.done)
	})
	return settled
}

// Done is closed once the result is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request is settled or the context is done. Giving up on the wait does not
// remove the request from the queue.
func (p *Pending) Wait(ctx context.Context) (*transport.Response, error) {
	select {
	case <-p.done:
		return p.response, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
