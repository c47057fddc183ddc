// File: tcp/tcp.go
//
// Package tcp is the runtime's one I/O adapter: Listener and Conn wrap
// a raw, non-blocking socket file descriptor registered with the
// runtime's reactor, exposing Accept/Read/Write as futures instead of
// blocking calls. It is explicitly NOT part of the four core subsystems
// (spec.md §1 scopes TCP adapters out of the "hard part"); it exists to
// give the reactor and executor something concrete to drive end to end
// (the echo-server scenario).
//
// Grounded on examples/reactor_echo/main.go + socket_unix.go (raw fd
// extraction via net.TCPConn.SyscallConn, direct syscall Read/Write/
// Close) and original_source/src/net.rs (TcpStream::from_std plus the
// impl_async_read!/impl_async_write! macros — expressed here as two
// hand-written pollRead/pollWrite methods per spec.md §9's
// "deep-inheritance substitute": a plain struct holding a reactor
// registration, not a class hierarchy).
package tcp

import (
	"github.com/miquels/nara/reactor"
)

// Listener accepts incoming TCP connections without blocking the
// executor.
type Listener struct {
	fd  int
	tok reactor.Token
}

// Conn is one accepted or dialed TCP connection, readable and writable
// through futures rather than blocking calls.
type Conn struct {
	fd  int
	tok reactor.Token
}

// AcceptResult is the outcome of Listener.Accept.
type AcceptResult struct {
	Conn *Conn
	Err  error
}

// IOResult is the outcome of Conn.Read/Conn.Write: n bytes transferred,
// or an error (io.EOF included, same as net.Conn's own convention).
type IOResult struct {
	N   int
	Err error
}
