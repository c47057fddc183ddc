//go:build unix

// File: tcp/tcp_unix.go
//
// The non-blocking accept/read/write loop, built directly on
// golang.org/x/sys/unix the same way internal/syscallshim is: no
// per-kernel fast path, just the portable syscalls plus EAGAIN-as-
// pending. net.Listen/net.Dial still do the address resolution and
// initial bind/connect (letting the standard library handle getaddrinfo
// and IPv4/IPv6 fallback is not worth reinventing here), but every
// accept/read/write after that point runs through the reactor instead
// of blocking a goroutine — except the connecting half of Dial, which
// spawn_blocking offloads exactly as net.rs's TcpStream::connect does.
package tcp

import (
	"errors"
	"io"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/miquels/nara"
	"github.com/miquels/nara/internal/task"
	"github.com/miquels/nara/reactor"
)

// syscallConner is satisfied by *net.TCPConn and *net.TCPListener.
type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

// extractFD pulls the raw file descriptor out of a *net.TCPConn or
// *net.TCPListener via SyscallConn, the same technique
// examples/reactor_echo/main.go's getFD helper uses, and puts the
// socket into non-blocking mode.
func extractFD(sc syscallConner) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd int
	var ctrlErr error
	err = raw.Control(func(p uintptr) {
		fd = int(p)
		ctrlErr = unix.SetNonblock(fd, true)
	})
	if err != nil {
		return 0, err
	}
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}

// Listen binds addr and returns a Listener whose Accept is driven by
// rt's reactor.
func Listen(rt *nara.Runtime, network, addr string) (*Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	tln, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, errors.New("tcp: not a TCP listener")
	}
	fd, err := extractFD(tln)
	if err != nil {
		tln.Close()
		return nil, err
	}
	// The duplicate returned by SyscallConn's Control shares the
	// underlying socket but extractFD has already set it non-blocking;
	// the net.TCPListener wrapper is no longer needed once we operate
	// on fd directly, but its finalizer would otherwise close fd from
	// under us, so leak the Go-level wrapper deliberately by never
	// calling tln.Close() again — the fd itself is closed by
	// Listener.Close below.
	tok := rt.Reactor().Register(fd, reactor.Readable)
	return &Listener{fd: fd, tok: tok}, nil
}

// Close deregisters and closes the listening socket.
func (l *Listener) Close() error {
	if rt := nara.Current(); rt != nil {
		rt.Reactor().Deregister(l.tok)
	}
	return unix.Close(l.fd)
}

type acceptFuture struct {
	rt *nara.Runtime
	l  *Listener
}

// Accept returns a Future that resolves to the next incoming
// connection, registered with the same runtime's reactor.
func (l *Listener) Accept(rt *nara.Runtime) task.Future[AcceptResult] {
	return &acceptFuture{rt: rt, l: l}
}

func (f *acceptFuture) Poll(w task.Waker) (AcceptResult, bool) {
	fd, _, err := unix.Accept(f.l.fd)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			f.rt.Reactor().SetWaker(f.l.tok, reactor.Readable, w)
			return AcceptResult{}, false
		}
		return AcceptResult{Err: err}, true
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return AcceptResult{Err: err}, true
	}
	tok := f.rt.Reactor().Register(fd, 0)
	return AcceptResult{Conn: &Conn{fd: fd, tok: tok}}, true
}

// Dial connects to addr, offloading the blocking connect(2) onto the
// blocking pool (mirroring net.rs's TcpStream::connect, which does the
// same via spawn_blocking) and registering the resulting socket with
// rt's reactor once connected.
func Dial(rt *nara.Runtime, network, addr string) *task.JoinHandle[AcceptResult] {
	return nara.SpawnBlocking(rt, func() AcceptResult {
		conn, err := net.Dial(network, addr)
		if err != nil {
			return AcceptResult{Err: err}
		}
		tconn, ok := conn.(*net.TCPConn)
		if !ok {
			conn.Close()
			return AcceptResult{Err: errors.New("tcp: not a TCP connection")}
		}
		fd, err := extractFD(tconn)
		if err != nil {
			tconn.Close()
			return AcceptResult{Err: err}
		}
		tok := rt.Reactor().Register(fd, 0)
		return AcceptResult{Conn: &Conn{fd: fd, tok: tok}}
	})
}

// Close deregisters and closes the connection's socket.
func (c *Conn) Close() error {
	if rt := nara.Current(); rt != nil {
		rt.Reactor().Deregister(c.tok)
	}
	return unix.Close(c.fd)
}

type readFuture struct {
	rt  *nara.Runtime
	c   *Conn
	buf []byte
}

// Read returns a Future that resolves once buf has been filled with
// whatever is available (short reads are normal, same as net.Conn), 0
// with io.EOF at end of stream, or a non-EAGAIN error.
func (c *Conn) Read(rt *nara.Runtime, buf []byte) task.Future[IOResult] {
	return &readFuture{rt: rt, c: c, buf: buf}
}

func (f *readFuture) Poll(w task.Waker) (IOResult, bool) {
	n, err := unix.Read(f.c.fd, f.buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			f.rt.Reactor().SetWaker(f.c.tok, reactor.Readable, w)
			return IOResult{}, false
		}
		return IOResult{Err: err}, true
	}
	if n == 0 {
		return IOResult{Err: io.EOF}, true
	}
	return IOResult{N: n}, true
}

type writeFuture struct {
	rt  *nara.Runtime
	c   *Conn
	buf []byte
}

// Write returns a Future that resolves once at least one byte of buf
// has been accepted by the kernel (a short write, same as net.Conn's
// own contract — callers loop if they need every byte sent).
func (c *Conn) Write(rt *nara.Runtime, buf []byte) task.Future[IOResult] {
	return &writeFuture{rt: rt, c: c, buf: buf}
}

func (f *writeFuture) Poll(w task.Waker) (IOResult, bool) {
	n, err := unix.Write(f.c.fd, f.buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			f.rt.Reactor().SetWaker(f.c.tok, reactor.Writable, w)
			return IOResult{}, false
		}
		return IOResult{Err: err}, true
	}
	return IOResult{N: n}, true
}
