package transport

import (
	"context"
	"sync"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

const pipeBuffer = 16

// PipeConn is one end of an in-memory connection pair.
type PipeConn struct {
	peer *PipeConn
	buf  chan protocol.Message
	out  chan protocol.Message
	done chan struct{}
	once sync.Once
}

// Pipe returns two connected in-memory connections. Messages sent on one end
// arrive on the other end's inbound sequence in send order. Closing either
// end ends both inbound sequences.
func Pipe() (*PipeConn, *PipeConn) {
	a := newPipeConn()
	b := newPipeConn()
	a.peer, b.peer = b, a
	return a, b
}

func newPipeConn() *PipeConn {
	c := &PipeConn{
		buf:  make(chan protocol.Message, pipeBuffer),
		out:  make(chan protocol.Message),
		done: make(chan struct{}),
	}
	go c.forward()
	return c
}

// forward owns the exposed inbound channel so it is closed exactly once, even
// when Close races with an in-flight deliver.
func (c *PipeConn) forward() {
	defer close(c.out)
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.buf:
			select {
			case c.out <- msg:
			case <-c.done:
				return
			}
		}
	}
}

// Send implements Connection.
func (c *PipeConn) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-c.done:
		return errors.ConnectionClosed("pipe")
	default:
	}
	return c.peer.deliver(ctx, msg)
}

func (c *PipeConn) deliver(ctx context.Context, msg protocol.Message) error {
	select {
	case c.buf <- msg:
		return nil
	case <-c.done:
		return errors.ConnectionClosed("pipe")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Incoming implements Connection.
func (c *PipeConn) Incoming() <-chan protocol.Message {
	return c.out
}

// Close implements Connection. Both ends stop delivering.
func (c *PipeConn) Close(ctx context.Context) error {
	c.once.Do(func() {
		close(c.done)
		c.peer.once.Do(func() {
			close(c.peer.done)
		})
	})
	return nil
}

// Connector returns a Connector yielding this end, for wiring a pre-built
// pipe into an instantiator.
func (c *PipeConn) Connector() Connector {
	return ConnectorFunc(func(context.Context) (Connection, error) {
		return c, nil
	})
}
