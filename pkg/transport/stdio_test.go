package transport

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

// stdioHarness wires a process-free stdio connection to in-memory pipes so
// framing can be tested without spawning anything.
type stdioHarness struct {
	conn     *StdioConnection
	toConn   io.WriteCloser
	fromConn *io.PipeReader
}

func newStdioHarness(t *testing.T) *stdioHarness {
	t.Helper()
	inReader, inWriter := io.Pipe()
	outReader, outWriter := io.Pipe()
	conn := newStdioConnection(outWriter, inReader, logging.NewNop())
	go conn.readLoop()
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return &stdioHarness{conn: conn, toConn: inWriter, fromConn: outReader}
}

func TestStdioReceive(t *testing.T) {
	h := newStdioHarness(t)

	go func() {
		_, _ = h.toConn.Write([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"))
	}()

	select {
	case msg := <-h.conn.Incoming():
		req, ok := msg.(*protocol.Request)
		require.True(t, ok)
		assert.Equal(t, "initialize", req.Method)
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestStdioSkipsMalformedLines(t *testing.T) {
	h := newStdioHarness(t)

	go func() {
		_, _ = h.toConn.Write([]byte("not json\n\n" + `{"jsonrpc":"2.0","method":"session/update"}` + "\n"))
	}()

	select {
	case msg := <-h.conn.Incoming():
		_, ok := msg.(*protocol.Notification)
		assert.True(t, ok, "malformed and blank lines should be skipped")
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestStdioSendFrames(t *testing.T) {
	h := newStdioHarness(t)

	note, err := protocol.NewNotification("session/update", map[string]string{"state": "idle"})
	require.NoError(t, err)

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := h.fromConn.Read(buf)
		done <- string(buf[:n])
	}()

	require.NoError(t, h.conn.Send(context.Background(), note))

	select {
	case line := <-done:
		assert.True(t, strings.HasSuffix(line, "\n"), "messages are newline framed")
		msg, err := protocol.Decode([]byte(strings.TrimSpace(line)))
		require.NoError(t, err)
		assert.IsType(t, &protocol.Notification{}, msg)
	case <-time.After(time.Second):
		t.Fatal("nothing written")
	}
}

func TestStdioStreamEndClosesIncoming(t *testing.T) {
	h := newStdioHarness(t)
	require.NoError(t, h.toConn.Close())

	select {
	case _, ok := <-h.conn.Incoming():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("incoming not closed on stream end")
	}
}

func TestStdioSendAfterClose(t *testing.T) {
	h := newStdioHarness(t)
	require.NoError(t, h.conn.Close(context.Background()))

	note, err := protocol.NewNotification("session/update", nil)
	require.NoError(t, err)
	assert.Error(t, h.conn.Send(context.Background(), note))
}
