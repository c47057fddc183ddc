//go:build unix

package reactor

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

type testWaker struct{ woken chan struct{} }

func newTestWaker() *testWaker { return &testWaker{woken: make(chan struct{}, 1)} }

func (w *testWaker) Wake() {
	select {
	case w.woken <- struct{}{}:
	default:
	}
}

func TestNotifyUnblocksTurn(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	done := make(chan error, 1)
	go func() {
		done <- r.Turn(60 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond) // give Turn time to block in poll(2)
	r.Notify()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Turn returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Turn did not return within 1s of Notify, self-pipe wake failed")
	}
}

func TestRegisterAndDispatchOnReadable(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	tok := r.Register(fds[0], Readable)
	w := newTestWaker()
	if err := r.SetWaker(tok, Readable, w); err != nil {
		t.Fatalf("SetWaker: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := r.Turn(time.Second); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	select {
	case <-w.woken:
	default:
		t.Fatal("expected waker to have fired after fd became readable")
	}
}

func TestDeregisterStopsDelivery(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	tok := r.Register(fds[0], Readable)
	w := newTestWaker()
	r.SetWaker(tok, Readable, w)
	r.Deregister(tok)

	if _, err := unix.Write(fds[1], []byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Turn(50 * time.Millisecond); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	select {
	case <-w.woken:
		t.Fatal("waker fired after Deregister")
	default:
	}
}

func TestSetWakerUnknownTokenErrors(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if err := r.SetWaker(Token(999), Readable, newTestWaker()); err == nil {
		t.Fatal("expected error for unknown token")
	}
}
