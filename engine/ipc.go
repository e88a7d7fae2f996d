package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/projector-cli/projector/log"
)

var (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
)

// ErrIPCClosed is returned when writing to a closed IPC channel.
var ErrIPCClosed = errors.New("ipc channel closed")

// IPC is a newline-delimited command channel over a unix socket.
// Writes made before the socket connects are queued and flushed on connect.
type IPC struct {
	path  string
	lines chan string
	quit  chan struct{}
	log   *log.Logger

	mu      sync.Mutex
	conn    net.Conn
	pending []string
	closed  bool
	once    sync.Once
}

// DialIPC connects to path on its own goroutine, retrying while the engine
// creates the socket. Received lines arrive on Lines, which is closed when the
// connection ends or Close is called.
func DialIPC(ctx context.Context, path string, hello ...string) *IPC {
	c := &IPC{
		path:    path,
		lines:   make(chan string),
		quit:    make(chan struct{}),
		pending: append([]string(nil), hello...),
		log:     log.For("ipc").With("socket", path),
	}

	go c.run(ctx)
	return c
}

func (c *IPC) Lines() <-chan string {
	return c.lines
}

// Write sends one command line.
func (c *IPC) Write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrIPCClosed
	}

	if c.conn == nil {
		c.pending = append(c.pending, line)
		return nil
	}

	return c.writeLocked(line)
}

func (c *IPC) writeLocked(line string) error {
	if _, err := c.conn.Write([]byte(strings.TrimRight(line, "\n") + "\n")); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close ends the connection and stops a dial in progress.
func (c *IPC) Close() error {
	c.once.Do(func() {
		close(c.quit)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *IPC) run(ctx context.Context) {
	defer close(c.lines)

	conn, err := c.waitForSocket(ctx)
	if err != nil {
		c.log.Warnf("%v", err)
		return
	}

	if err = c.attach(conn); err != nil {
		c.log.Warnf("%v", err)
		return
	}
	c.log.Debugf("connected")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLine)
	scanner.Split(truncating(bufio.ScanLines, maxLine))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case c.lines <- line:
		case <-c.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *IPC) attach(conn net.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		_ = conn.Close()
		return ErrIPCClosed
	}

	c.conn = conn
	for _, line := range c.pending {
		if err := c.writeLocked(line); err != nil {
			return err
		}
	}
	c.pending = nil
	return nil
}

// waitForSocket polls until the engine's socket accepts connections.
func (c *IPC) waitForSocket(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer

	for i := 0; i < socketWaitRetries; i++ {
		conn, err := dialer.DialContext(ctx, "unix", c.path)
		if err == nil {
			return conn, nil
		}

		select {
		case <-c.quit:
			return nil, ErrIPCClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(socketWaitDelay):
		}
	}

	return nil, fmt.Errorf("socket %s not ready after %d attempts", c.path, socketWaitRetries)
}
