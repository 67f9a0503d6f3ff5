package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// NewServer builds a reactor bound to cfg, ready for Run.
func NewServer(cfg *Config, log zerolog.Logger, stats *Stats) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		listenFD: -1,
		conns:    make(map[int]*connection),
		store:    newStore(cfg.Capacity),
		stats:    stats,
	}
}

// listen creates the IPv4 TCP listening socket directly via syscalls:
// SO_REUSEADDR, bound to cfg.Host, OS-default backlog, non-blocking so
// it can be driven entirely from the poller loop.
func (s *Server) listen() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	ip := net.ParseIP(s.cfg.Host)
	if ip == nil {
		ip = net.IPv4zero
	}
	ip4 := ip.To4()
	if ip4 == nil {
		ip4 = net.IPv4zero.To4()
	}

	addr := &unix.SockaddrInet4{Port: s.cfg.Port}
	copy(addr.Addr[:], ip4)

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("bind: %w", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return fmt.Errorf("listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("set nonblocking: %w", err)
	}

	s.listenFD = fd
	return nil
}

// Run starts the reactor and blocks until ctx is cancelled or a fatal
// startup error occurs. It owns the poller, the connection table, and
// the store for its entire lifetime; everything here runs on one
// goroutine, with no locks in the core loop.
func (s *Server) Run(ctx context.Context) error {
	if err := s.listen(); err != nil {
		return err
	}

	p, err := newPoller()
	if err != nil {
		return fmt.Errorf("create poller: %w", err)
	}
	s.poller = p

	if err := s.poller.Register(s.listenFD, interestRead); err != nil {
		return fmt.Errorf("register listener: %w", err)
	}

	s.running = true
	s.log.Info().Str("host", s.cfg.Host).Int("port", s.cfg.Port).
		Int("capacity", s.cfg.Capacity).Msg("reactor listening")

	for s.running {
		select {
		case <-ctx.Done():
			s.running = false
			continue
		default:
		}

		events, err := s.poller.Wait(250)
		if err != nil {
			return fmt.Errorf("poller wait: %w", err)
		}

		for _, ev := range events {
			if ev.fd == s.listenFD {
				s.acceptLoop()
				continue
			}
			s.handleEvent(ev)
		}
	}

	s.shutdown()
	return nil
}

// acceptLoop drains every pending connection from the listening socket
// in one readiness event, until accept reports EAGAIN, rather than
// taking one connection per Wait round.
func (s *Server) acceptLoop() {
	for {
		nfd, _, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			if err == unix.EINTR {
				continue
			}
			s.log.Warn().Err(err).Msg("accept failed")
			return
		}

		c := newConnection(nfd, s.cfg.BufferSize)
		if err := s.poller.Register(nfd, interestRead); err != nil {
			s.log.Warn().Err(err).Msg("register accepted connection failed")
			unix.Close(nfd)
			continue
		}

		s.conns[nfd] = c
		s.stats.ConnectionsAccepted.Inc()
		s.stats.OpenConnections.Inc()
	}
}

func (s *Server) handleEvent(ev pollEvent) {
	c, ok := s.conns[ev.fd]
	if !ok {
		return
	}

	if ev.readable {
		s.handleReadable(c)
	}
	if !c.closing && ev.writable {
		s.handleWritable(c)
	}
	if !c.closing && ev.hungup {
		c.closing = true
	}
	if c.closing {
		s.closeConn(c)
	}
}

// handleReadable pulls as many bytes as are available without
// blocking, then hands the buffer to processBuffer. A full buffer
// with no completed record is protocol-fatal; a zero-byte read on a
// not-yet-full buffer is peer EOF.
func (s *Server) handleReadable(c *connection) {
	for c.rlen < len(c.rbuf) {
		n, err := c.fillFromSocket()
		if err != nil {
			if err == unix.EAGAIN {
				break
			}
			if err == unix.EINTR {
				continue
			}
			c.closing = true
			return
		}
		if n == 0 {
			c.closing = true
			break
		}
		s.stats.BytesRead.Add(float64(n))
	}
	s.processBuffer(c)
}

// processBuffer extracts and dispatches every complete record
// currently in the read buffer.
func (s *Server) processBuffer(c *connection) {
	for {
		line, consumed, found := nextRecord(c.rbuf, c.rlen)
		if !found {
			if c.rlen >= len(c.rbuf) {
				c.closing = true
			}
			return
		}

		rec := parseCommand(line)
		c.shiftBuffer(consumed)

		s.stats.CommandsTotal.WithLabelValues(verbLabel(rec)).Inc()
		if rec.malformed {
			s.stats.ProtocolErrors.Inc()
		}

		evictionsBefore, expirationsBefore := s.store.evictions, s.store.expirations
		reply := dispatch(s.store, rec, time.Now().Unix())
		s.stats.Evictions.Add(float64(s.store.evictions - evictionsBefore))
		s.stats.Expirations.Add(float64(s.store.expirations - expirationsBefore))
		s.stats.LiveEntries.Set(float64(s.store.liveCount()))
		if reply == nil {
			continue
		}
		if err := c.enqueue(reply); err != nil {
			s.stats.ProtocolErrors.Inc()
			c.closing = true
			return
		}
		s.setWriteInterest(c, true)
	}
}

func verbLabel(c command) string {
	if c.malformed {
		return "malformed"
	}
	switch c.verb {
	case "SET", "GET", "DEL":
		return c.verb
	default:
		return "unknown"
	}
}

func (s *Server) setWriteInterest(c *connection, on bool) {
	if c.writable == on {
		return
	}
	interest := uint8(interestRead)
	if on {
		interest |= interestWrite
	}
	if err := s.poller.Modify(c.fd, interest); err != nil {
		c.closing = true
		return
	}
	c.writable = on
}

// handleWritable drains queued bytes; on completion it drops writable
// interest so the poller stops waking us for an idle connection.
func (s *Server) handleWritable(c *connection) {
	filledBefore, sentBefore := c.wfilled, c.wsent

	done, err := c.drainToSocket()
	if err != nil {
		c.closing = true
		return
	}

	var written int
	if done {
		written = filledBefore - sentBefore
	} else {
		written = c.wsent - sentBefore
	}
	s.stats.BytesWritten.Add(float64(written))

	if done {
		s.setWriteInterest(c, false)
	}
}

// closeConn unregisters the descriptor before closing it, so a late
// readiness event can never refer to a freed connection.
func (s *Server) closeConn(c *connection) {
	s.poller.Unregister(c.fd)
	unix.Close(c.fd)
	delete(s.conns, c.fd)
	s.stats.ConnectionsClosed.Inc()
	s.stats.OpenConnections.Dec()
}

func (s *Server) shutdown() {
	for fd, c := range s.conns {
		s.poller.Unregister(fd)
		unix.Close(c.fd)
	}
	s.conns = make(map[int]*connection)

	if s.listenFD != -1 {
		s.poller.Unregister(s.listenFD)
		unix.Close(s.listenFD)
		s.listenFD = -1
	}
	if s.poller != nil {
		s.poller.Close()
	}
	s.log.Info().Msg("reactor stopped")
}
