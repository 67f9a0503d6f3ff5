//go:build linux

package main

import (
	"golang.org/x/sys/unix"
)

// maxPollBatch bounds how many ready descriptors one Wait call can
// report at once; further-ready descriptors are simply reported on the
// next call.
const maxPollBatch = 1024

// pollEvent is one fd's readiness outcome from a single Wait batch.
// Events for the same fd within a batch are always coalesced into one
// pollEvent, since epoll itself only reports one struct per watched fd.
type pollEvent struct {
	fd       int
	readable bool
	writable bool
	hungup   bool // peer closed, or a socket error occurred
}

// poller is the readiness multiplexer (component A): register/modify/
// unregister interest for a set of file descriptors, then block in
// Wait until one or more become ready.
type poller struct {
	epfd int
	buf  []unix.EpollEvent
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &poller{epfd: epfd, buf: make([]unix.EpollEvent, maxPollBatch)}, nil
}

func interestToEpoll(interest uint8) uint32 {
	ev := uint32(unix.EPOLLRDHUP)
	if interest&interestRead != 0 {
		ev |= unix.EPOLLIN
	}
	if interest&interestWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register begins watching fd for the given interest set.
func (p *poller) Register(fd int, interest uint8) error {
	ev := unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Modify changes the watched interest set for an already-registered fd.
func (p *poller) Modify(fd int, interest uint8) error {
	ev := unix.EpollEvent{Events: interestToEpoll(interest), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Unregister stops watching fd. Callers must unregister before
// closing the descriptor, so a late readiness event can never refer
// to a freed connection.
func (p *poller) Unregister(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks until one or more descriptors are ready, or timeoutMillis
// elapses (-1 blocks indefinitely). EINTR is retried transparently and
// never observable as a command-level event.
func (p *poller) Wait(timeoutMillis int) ([]pollEvent, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.buf, timeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}

		out := make([]pollEvent, n)
		for i := 0; i < n; i++ {
			e := p.buf[i]
			out[i] = pollEvent{
				fd:       int(e.Fd),
				readable: e.Events&unix.EPOLLIN != 0,
				writable: e.Events&unix.EPOLLOUT != 0,
				hungup:   e.Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0,
			}
		}
		return out, nil
	}
}

// Close releases the epoll descriptor.
func (p *poller) Close() error {
	return unix.Close(p.epfd)
}
