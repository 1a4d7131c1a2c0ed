package conductor

import (
	"context"
	"fmt"
	"testing"

	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
	"github.com/ajitpratap0/acp-conductor-go/pkg/transport"
)

func BenchmarkQueuePushPop(b *testing.B) {
	q := newMessageQueue()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(leftToRight{target: 0})
		if _, ok := q.Pop(ctx); !ok {
			b.Fatal("queue closed unexpectedly")
		}
	}
}

func BenchmarkRequestRoundTrip(b *testing.B) {
	h := newChainBench(b)
	defer h.c.Shutdown(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("r-%d", i)
		req, _ := protocol.NewRequest(id, "session/prompt", nil)
		if err := h.client.Send(context.Background(), req); err != nil {
			b.Fatal(err)
		}
		fwd := (<-h.agent.Incoming()).(*protocol.Request)
		resp, _ := protocol.NewResponse(fwd.ID, nil)
		if err := h.agent.Send(context.Background(), resp); err != nil {
			b.Fatal(err)
		}
		back := (<-h.client.Incoming()).(*protocol.Response)
		if back.ID != id {
			b.Fatalf("response id %v, want %s", back.ID, id)
		}
	}
}

// newChainBench is the testing.B flavor of the test harness, initialized
// through a proxyless handshake.
func newChainBench(b *testing.B) *chainHarness {
	b.Helper()
	h := &chainHarness{done: make(chan struct{})}

	agentNear, agentFar := transport.Pipe()
	h.agent = agentFar
	clientNear, clientFar := transport.Pipe()
	h.client = clientFar

	h.c = New(transport.Static(nil, agentNear.Connector()))
	go func() {
		h.connectErr = h.c.Connect(context.Background(), clientNear.Connector())
		close(h.done)
	}()

	init, _ := protocol.NewRequest("init-1", protocol.MethodInitialize, nil)
	if err := h.client.Send(context.Background(), init); err != nil {
		b.Fatal(err)
	}
	fwd := (<-h.agent.Incoming()).(*protocol.Request)
	resp, _ := protocol.NewResponse(fwd.ID, map[string]int{"protocolVersion": 1})
	if err := h.agent.Send(context.Background(), resp); err != nil {
		b.Fatal(err)
	}
	<-h.client.Incoming()
	return h
}
