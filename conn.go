package chat

import (
	"bufio"
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Errors returned by connection operations.
var (
	// ErrInvalidOnMessage is returned when no message handler is provided.
	ErrInvalidOnMessage = errors.New("invalid on message callback")
	// ErrConnClosed is returned when operating on a closed connection.
	ErrConnClosed = errors.New("connection closed")
)

// Conn wraps a stream connection with frame encoding/decoding, a read
// loop that dispatches decoded messages, and an outbound queue drained
// by a single writer goroutine.
type Conn struct {
	rawConn net.Conn
	reader  *bufio.Reader
	logger  Logger

	opts options

	// Outbound queue. Enqueue order is transmission order; the queue
	// is unbounded so fan-out from the room never blocks and no
	// message is dropped short of a connection abort.
	mu      sync.Mutex
	pending [][]byte
	wakeup  chan struct{}

	closed atomic.Bool
	cancel context.CancelFunc
}

// NewConn creates a connection wrapper around conn.
// It applies the provided options and validates them before returning.
// Returns an error if the required onMessage option is missing.
func NewConn(conn net.Conn, opt ...Option) (*Conn, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}

	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	return &Conn{
		rawConn: conn,
		reader:  bufio.NewReaderSize(conn, HeaderLength+MaxBodyLength),
		logger:  opts.logger,
		opts:    opts,
		wakeup:  make(chan struct{}, 1),
	}, nil
}

// Run starts the connection's read and write loops and blocks until
// either loop fails or the context is canceled. Canceling the context
// closes the underlying connection, which aborts any in-flight read or
// write; closure is the only cancellation mechanism.
// The connection is always closed when Run returns.
func (c *Conn) Run(ctx context.Context) error {
	c.logger.Debug("connection running", "addr", c.Addr())

	ctx, c.cancel = context.WithCancel(ctx)
	group, child := errgroup.WithContext(ctx)

	// Unblock reads and writes as soon as either loop fails or the
	// caller cancels.
	go func() {
		<-child.Done()
		c.closeConn()
	}()

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	err := group.Wait()
	c.closeConn()

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Info("connection closed", "addr", c.Addr(), "error", err)
	} else {
		c.logger.Info("connection closed", "addr", c.Addr())
	}

	return err
}

// Close closes the connection, aborting any in-flight read or write.
// Safe to call multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	if c.cancel != nil {
		c.cancel()
	}
	return c.rawConn.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Write encodes message and appends it to the tail of the outbound
// queue, waking the writer pump if it is idle. Write never blocks and
// may be called from any goroutine.
//
// Returns ErrConnClosed if the connection is closed, or the encoding
// error if the codec fails.
func (c *Conn) Write(message *Message) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	data, err := c.opts.codec.Encode(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pending = append(c.pending, data)
	c.mu.Unlock()

	select {
	case c.wakeup <- struct{}{}:
	default:
	}

	return nil
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// readLoop reads frames from the connection and dispatches them to the
// message handler, reissuing the next read immediately after each
// successfully processed message. Returns when the context is canceled
// or an unrecoverable error occurs. Decode errors consult the onError
// policy; the default disconnects.
func (c *Conn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.opts.codec.Decode(c.reader)
			if err != nil {
				c.logger.Debug("read error", "addr", c.Addr(), "error", err)
				if c.opts.onError(err) == Disconnect {
					return err
				}
				continue
			}

			if err = c.opts.onMessage(message); err != nil {
				return err
			}
		}
	}
}

// writeLoop drains the outbound queue one frame at a time, keeping at
// most one transmission in flight. Returns when the context is
// canceled or a write fails.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wakeup:
			for {
				data, ok := c.next()
				if !ok {
					break
				}
				if err := c.write(data); err != nil {
					return err
				}
			}
		}
	}
}

// next pops the head of the outbound queue.
func (c *Conn) next() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil, false
	}
	data := c.pending[0]
	c.pending = c.pending[1:]
	return data, true
}

// write sends one encoded frame to the connection.
// If an error occurs and onError returns Disconnect, the error is
// propagated. Otherwise the error is suppressed and writing continues.
func (c *Conn) write(data []byte) error {
	_, err := c.rawConn.Write(data)
	if err != nil {
		c.logger.Debug("write error", "addr", c.Addr(), "error", err)
		if c.opts.onError(err) == Disconnect {
			return err
		}
	}
	return nil
}

// closeConn marks the connection as closed and closes the underlying
// stream. Idempotent; teardown may race with an explicit Close.
func (c *Conn) closeConn() {
	c.closed.Store(true)
	_ = c.rawConn.Close()
}
