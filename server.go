package chat

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Server accepts chat connections on one or more TCP endpoints. All
// listeners share a single Room, so clients on different ports talk in
// the same conversation.
type Server struct {
	listeners []*net.TCPListener
	room      *Room
	logger    Logger
	connOpts  []Option

	mu       sync.Mutex
	shutdown bool
	done     chan struct{} // closed by Close to stop accept loops
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// ServerRoomOption sets the shared room. Useful when the room is built
// with its own options; by default the server creates one.
func ServerRoomOption(room *Room) ServerOption {
	return func(s *Server) {
		if room != nil {
			s.room = room
		}
	}
}

// ServerConnOption appends options applied to every accepted
// connection, such as LoggerOption or OnErrorOption.
func ServerConnOption(opt ...Option) ServerOption {
	return func(s *Server) {
		s.connOpts = append(s.connOpts, opt...)
	}
}

// NewServer creates a server bound to every address in addrs.
// At least one address is required, and every bind must succeed;
// a failed bind closes the listeners bound so far and returns the
// error. Startup failures are fatal by design.
func NewServer(addrs []*net.TCPAddr, opts ...ServerOption) (*Server, error) {
	if len(addrs) == 0 {
		return nil, errors.New("chat: at least one listen address is required")
	}

	s := &Server{
		logger: defaultLogger(),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.room == nil {
		s.room = NewRoom(RoomLoggerOption(s.logger))
	}

	for _, addr := range addrs {
		listener, err := net.ListenTCP(addr.Network(), addr)
		if err != nil {
			for _, l := range s.listeners {
				_ = l.Close()
			}
			return nil, errors.Wrapf(err, "listen %s", addr)
		}
		s.listeners = append(s.listeners, listener)
	}

	return s, nil
}

// Serve runs one accept loop per listener and blocks until the context
// is canceled, Close is called, or a listener fails fatally. Accept
// errors on a healthy listener are logged and the loop keeps
// accepting.
func (s *Server) Serve(ctx context.Context) error {
	for _, listener := range s.listeners {
		s.logger.Info("server listening", "addr", listener.Addr())
	}

	group, ctx := errgroup.WithContext(ctx)

	// Watch for cancellation: mark shutdown and set an immediate
	// deadline so blocked Accept calls return.
	group.Go(func() error {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.shutdown = true
			s.mu.Unlock()
			for _, listener := range s.listeners {
				_ = listener.SetDeadline(time.Now())
			}
			return ctx.Err()
		case <-s.done:
			return nil
		}
	})

	for _, listener := range s.listeners {
		listener := listener
		group.Go(func() error {
			return s.acceptLoop(ctx, listener)
		})
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("server stopped", "error", err)
	} else {
		s.logger.Info("server stopped")
	}

	return err
}

// acceptLoop accepts connections on one listener and hands each to a
// new session bound to the shared room.
func (s *Server) acceptLoop(ctx context.Context, listener *net.TCPListener) error {
	for {
		conn, err := listener.AcceptTCP()
		if err != nil {
			if s.isShutdown() {
				return ctx.Err()
			}

			// A deadline fired while still serving.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			// The listener itself is gone; this loop cannot recover.
			if errors.Is(err, net.ErrClosed) {
				return errors.Wrapf(err, "listener %s", listener.Addr())
			}

			s.logger.Error("accept error", "addr", listener.Addr(), "error", err)
			continue
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		session, err := NewSession(conn, s.room, s.connOpts...)
		if err != nil {
			s.logger.Error("session setup failed", "remote_addr", conn.RemoteAddr(), "error", err)
			_ = conn.Close()
			continue
		}

		go func() {
			_ = session.Run(ctx)
		}()
	}
}

// Close stops the server by closing every listener. Blocked Accept
// calls return and Serve unwinds. Safe to call multiple times.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	close(s.done)
	s.mu.Unlock()

	var first error
	for _, listener := range s.listeners {
		if err := listener.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Room returns the room shared by every connection of this server.
func (s *Server) Room() *Room {
	return s.room
}

// Addrs returns the bound address of every listener. Useful when
// listening on port 0.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, listener := range s.listeners {
		addrs = append(addrs, listener.Addr())
	}
	return addrs
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}
