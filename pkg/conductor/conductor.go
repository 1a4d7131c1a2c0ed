// Package conductor implements the central routing engine of a proxy chain.
// The conductor owns every connection, runs the single-consumer event loop,
// correlates forwarded requests with their responses, implements the
// wrap/unwrap sub-protocol proxies use to address their successor, and
// drives the capability-negotiation handshake.
package conductor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/acp-conductor-go/pkg/bridge"
	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/observability"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
	"github.com/ajitpratap0/acp-conductor-go/pkg/transport"
)

// pendingRequest correlates an id the conductor generated when forwarding a
// request with the responder for the original one. Exactly one entry exists
// per in-flight forwarded id; it is created before the send and destroyed
// when the matching response arrives.
type pendingRequest struct {
	originalID interface{}
	responder  protocol.Responder
	source     SourceIndex
}

// Conductor routes messages between a client, an ordered proxy chain, and an
// agent. All mutable routing state is touched only from the event loop; the
// queue's push path and the id counter carry their own synchronization so
// pumps may run on arbitrary goroutines.
type Conductor struct {
	cfg     Config
	logger  logging.Logger
	metrics *observability.ConductorMetrics
	tracer  trace.Tracer

	instantiator transport.Instantiator
	bridge       bridge.Bridge

	queue   *messageQueue
	state   atomic.Int32
	nextID  atomic.Int64
	started atomic.Bool

	// chainGen counts handshake attempts. Chain pumps carry the generation
	// they were started under; a rollback bumps it so abandoned connections
	// go quiet instead of feeding a later chain or requesting shutdown.
	chainGen atomic.Int64

	// connMu guards connection registration against the shutdown snapshot;
	// routing reads happen only on the event-loop goroutine.
	connMu  sync.Mutex
	client  transport.Connection
	proxies []transport.Connection
	agent   transport.Connection

	// pending is touched only from the event loop.
	pending map[string]pendingRequest

	// mcpTransport records the chain's mcp_acp_transport capability from the
	// handshake result; written and read only on the event loop.
	mcpTransport bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures a Conductor.
type Option func(*Conductor)

// WithLogger sets the conductor's logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Conductor) { c.logger = l }
}

// WithMetrics sets the Prometheus instruments the conductor updates.
func WithMetrics(m *observability.ConductorMetrics) Option {
	return func(c *Conductor) { c.metrics = m }
}

// WithTracer sets the tracer used around the handshake and forwards.
func WithTracer(t trace.Tracer) Option {
	return func(c *Conductor) { c.tracer = t }
}

// WithBridge enables MCP bridge assistance for agents lacking native
// transport support.
func WithBridge(b bridge.Bridge) Option {
	return func(c *Conductor) { c.bridge = b }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Conductor) { c.cfg = cfg }
}

// New creates a Conductor. The instantiator is consulted once, during the
// handshake, to create the chain components.
func New(instantiator transport.Instantiator, opts ...Option) *Conductor {
	c := &Conductor{
		cfg:          DefaultConfig(),
		logger:       logging.NewNop(),
		tracer:       noop.NewTracerProvider().Tracer("conductor"),
		instantiator: instantiator,
		queue:        newMessageQueue(),
		pending:      map[string]pendingRequest{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle phase.
func (c *Conductor) State() State {
	return State(c.state.Load())
}

// Connect connects the client, starts its pump, and runs the event loop
// until shutdown. It returns the shutdown result, or the context error if
// the context ended the loop first.
func (c *Conductor) Connect(ctx context.Context, clientConnector transport.Connector) error {
	if c.State() != StateUninitialized {
		return errors.InvalidState("connect", c.State().String())
	}
	if !c.started.CompareAndSwap(false, true) {
		return errors.AlreadyStarted()
	}

	if starter, ok := c.bridge.(interface {
		Start(addr string, sink bridge.EventSink) error
	}); ok {
		if err := starter.Start(c.cfg.Bridge.ListenAddr, c); err != nil {
			return errors.ConnectionFailed("bridge", err)
		}
	}

	conn, err := clientConnector.Connect(ctx)
	if err != nil {
		return errors.ConnectionFailed("client", err)
	}
	c.connMu.Lock()
	c.client = conn
	c.connMu.Unlock()
	if c.metrics != nil {
		c.metrics.LiveConnections.Inc()
	}
	c.startPump(conn, SourceClient())

	return c.run(ctx)
}

// run is the single consumer: conductor messages are handled strictly one at
// a time, and a handler blocks dequeuing of the next item until it returns.
func (c *Conductor) run(ctx context.Context) error {
	for {
		msg, ok := c.queue.Pop(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				_ = c.Shutdown(context.Background())
				return err
			}
			// Queue closed and drained: shutdown completed (or is
			// completing); Do blocks until the first call finished.
			return c.Shutdown(context.Background())
		}
		c.handle(ctx, msg)
	}
}

func (c *Conductor) handle(ctx context.Context, msg conductorMessage) {
	switch ev := msg.(type) {
	case leftToRight:
		c.countDispatch("left_to_right", ev.dispatch)
		c.handleLeftToRight(ctx, ev)
	case rightToLeft:
		c.countDispatch("right_to_left", ev.dispatch)
		c.handleRightToLeft(ctx, ev)
	case shutdownRequested:
		_ = c.Shutdown(ctx)
	case bridgeConnReceived:
		c.handleBridgeConnReceived(ctx, ev)
	case bridgeConnEstablished:
		// Acknowledgement only; nothing to route.
		c.logger.Debug("bridge connection established", logging.String("conn", ev.connID))
	case bridgeClientToServer:
		c.handleBridgeClientToServer(ctx, ev)
	case bridgeConnClosed:
		c.handleBridgeConnClosed(ctx, ev)
	}
}

// Shutdown closes the queue and every live connection concurrently, awaiting
// all closes. It is idempotent and safe to call from any goroutine; repeated
// calls return the first result.
func (c *Conductor) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.performShutdown(ctx)
	})
	return c.shutdownErr
}

func (c *Conductor) performShutdown(ctx context.Context) {
	c.state.Store(int32(StateShutdown))
	c.queue.Close()

	if c.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.ShutdownTimeout))
		defer cancel()
	}

	c.connMu.Lock()
	conns := make([]transport.Connection, 0, len(c.proxies)+2)
	if c.client != nil {
		conns = append(conns, c.client)
	}
	conns = append(conns, c.proxies...)
	if c.agent != nil {
		conns = append(conns, c.agent)
	}
	c.connMu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, conn := range conns {
		conn := conn
		g.Go(func() error { return conn.Close(gctx) })
	}
	if c.bridge != nil {
		g.Go(func() error { return c.bridge.Close(gctx) })
	}
	if err := g.Wait(); err != nil {
		c.shutdownErr = errors.ShutdownFailed(err)
	}

	if c.metrics != nil {
		c.metrics.LiveConnections.Set(0)
	}
	c.logger.Info("conductor shut down", logging.Int("connections", len(conns)))
}

// correlate resolves a response dispatch against the pending-request table.
// An id with no pending entry is logged and dropped, never escalated: it
// covers duplicates and strays.
func (c *Conductor) correlate(d *protocol.ResponseDispatch) {
	key := pendingKey(d.ID)
	p, ok := c.pending[key]
	if !ok {
		c.logger.Warn("dropping response with no pending request", logging.Any("id", d.ID))
		if c.metrics != nil {
			c.metrics.StrayResponses.Inc()
		}
		return
	}
	delete(c.pending, key)
	if c.metrics != nil {
		c.metrics.PendingRequests.Dec()
	}

	if d.Error != nil {
		p.responder.Fail(d.Error)
		return
	}
	p.responder.Succeed(d.Result)
}

// registerPending allocates a fresh outgoing id and registers the pending
// entry. Registration happens before the send on every forwarding path,
// eliminating the send/response race.
func (c *Conductor) registerPending(d *protocol.RequestDispatch, source SourceIndex) (int64, string) {
	id := c.nextID.Add(1)
	key := pendingKey(id)
	c.pending[key] = pendingRequest{
		originalID: d.OriginalID,
		responder:  d.Responder,
		source:     source,
	}
	if c.metrics != nil {
		c.metrics.PendingRequests.Inc()
	}
	return id, key
}

func (c *Conductor) dropPending(key string) {
	delete(c.pending, key)
	if c.metrics != nil {
		c.metrics.PendingRequests.Dec()
	}
}

func (c *Conductor) addProxy(conn transport.Connection) {
	c.connMu.Lock()
	c.proxies = append(c.proxies, conn)
	c.connMu.Unlock()
	if c.metrics != nil {
		c.metrics.LiveConnections.Inc()
	}
}

func (c *Conductor) setAgent(conn transport.Connection) {
	c.connMu.Lock()
	c.agent = conn
	c.connMu.Unlock()
	if c.metrics != nil {
		c.metrics.LiveConnections.Inc()
	}
}

// rollbackChain abandons the chain after a failed handshake: it bumps the
// generation so stale pumps go quiet, closes every chain connection, clears
// the slices and returns the conductor to uninitialized. A retried
// initialize then instantiates a fresh chain from scratch.
func (c *Conductor) rollbackChain() {
	c.chainGen.Add(1)

	c.connMu.Lock()
	stale := make([]transport.Connection, 0, len(c.proxies)+1)
	stale = append(stale, c.proxies...)
	if c.agent != nil {
		stale = append(stale, c.agent)
	}
	c.proxies = nil
	c.agent = nil
	c.connMu.Unlock()

	for _, conn := range stale {
		if err := conn.Close(context.Background()); err != nil {
			c.logger.Warn("failed to close abandoned connection", logging.Err(err))
		}
	}
	if c.metrics != nil {
		c.metrics.LiveConnections.Sub(float64(len(stale)))
	}
	c.state.Store(int32(StateUninitialized))
}

func (c *Conductor) countDispatch(direction string, d protocol.Dispatch) {
	if c.metrics == nil {
		return
	}
	var kind string
	switch d.(type) {
	case *protocol.RequestDispatch:
		kind = "request"
	case *protocol.NotificationDispatch:
		kind = "notification"
	case *protocol.ResponseDispatch:
		kind = "response"
	default:
		kind = "unknown"
	}
	c.metrics.RoutedMessages.WithLabelValues(direction, kind).Inc()
}

// pendingKey stringifies an id for table lookup. Wire ids decode as float64;
// integral floats must render without an exponent so they match the key
// registered for the int64 the counter produced.
func pendingKey(id interface{}) string {
	if f, ok := id.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", id)
}
