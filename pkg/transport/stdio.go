package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ajitpratap0/acp-conductor-go/pkg/errors"
	"github.com/ajitpratap0/acp-conductor-go/pkg/logging"
	"github.com/ajitpratap0/acp-conductor-go/pkg/protocol"
)

const (
	// maxLineBytes bounds a single newline-delimited message.
	maxLineBytes = 10 * 1024 * 1024

	// stdioShutdownGrace is how long Close waits for the child to exit on
	// its own before killing it.
	stdioShutdownGrace = 3 * time.Second
)

// StdioConnector spawns a subprocess and speaks newline-delimited JSON over
// its stdin and stdout. The child's stderr is passed through.
type StdioConnector struct {
	// Command is the executable to spawn.
	Command string
	// Args are the arguments passed to the command.
	Args []string
	// Env, when non-nil, replaces the child's environment.
	Env []string
	// Logger receives framing diagnostics. Nil means no logging.
	Logger logging.Logger
}

// Connect implements Connector by starting the subprocess.
func (c *StdioConnector) Connect(ctx context.Context) (Connection, error) {
	cmd := exec.Command(c.Command, c.Args...)
	if c.Env != nil {
		cmd.Env = c.Env
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.ConnectionFailed(c.Command, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.ConnectionFailed(c.Command, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.ConnectionFailed(c.Command, err)
	}

	logger := c.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	conn := newStdioConnection(stdin, stdout, logger)
	conn.cmd = cmd
	go conn.readLoop()
	return conn, nil
}

// NewStdStreamsConnection speaks the newline framing over an arbitrary
// reader/writer pair, typically the current process's own stdin and stdout
// when the conductor itself is the subprocess.
func NewStdStreamsConnection(reader io.ReadCloser, writer io.WriteCloser, logger logging.Logger) (*StdioConnection, error) {
	if reader == nil || writer == nil {
		return nil, errors.ConnectionFailed("std streams", fmt.Errorf("nil stream"))
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	conn := newStdioConnection(writer, reader, logger)
	go conn.readLoop()
	return conn, nil
}

// StdioConnection is a Connection over a newline-delimited JSON byte stream,
// typically a spawned subprocess.
type StdioConnection struct {
	cmd      *exec.Cmd
	writer   io.WriteCloser
	reader   io.ReadCloser
	incoming chan protocol.Message
	logger   logging.Logger

	writeMu sync.Mutex
	once    sync.Once
	closed  chan struct{}
}

func newStdioConnection(writer io.WriteCloser, reader io.ReadCloser, logger logging.Logger) *StdioConnection {
	return &StdioConnection{
		writer:   writer,
		reader:   reader,
		incoming: make(chan protocol.Message, pipeBuffer),
		logger:   logger,
		closed:   make(chan struct{}),
	}
}

// readLoop scans one message per line until the stream ends. Malformed lines
// are logged and skipped; the conductor treats only stream end as fatal.
func (c *StdioConnection) readLoop() {
	defer close(c.incoming)

	scanner := bufio.NewScanner(c.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		msg, err := protocol.Decode(line)
		if err != nil {
			c.logger.Warn("discarding malformed message", logging.Err(err))
			continue
		}
		select {
		case c.incoming <- msg:
		case <-c.closed:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-c.closed:
			// Expected: Close tears down the reader under the scanner.
		default:
			c.logger.Warn("stdio read failed", logging.Err(err))
		}
	}
}

// Send implements Connection. Writes are serialized; each message is one
// line.
func (c *StdioConnection) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-c.closed:
		return errors.ConnectionClosed("stdio")
	default:
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(append(data, '\n')); err != nil {
		return errors.SendFailed("stdio", err)
	}
	return nil
}

// Incoming implements Connection.
func (c *StdioConnection) Incoming() <-chan protocol.Message {
	return c.incoming
}

// Close implements Connection. It closes the child's stdin, waits briefly
// for a voluntary exit, then kills the process.
func (c *StdioConnection) Close(ctx context.Context) error {
	c.once.Do(func() {
		close(c.closed)
		_ = c.writer.Close()
		_ = c.reader.Close()

		if c.cmd == nil {
			return
		}
		waited := make(chan struct{})
		go func() {
			_ = c.cmd.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-time.After(stdioShutdownGrace):
			_ = c.cmd.Process.Kill()
			<-waited
		case <-ctx.Done():
			_ = c.cmd.Process.Kill()
			<-waited
		}
	})
	return nil
}
