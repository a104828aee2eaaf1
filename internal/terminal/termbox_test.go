package terminal

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/nsf/termbox-go"
)

// fakeTerminal mimics termbox: Interrupt blocks until a poller takes the event.
type fakeTerminal struct {
	events     chan termbox.Event
	interrupts atomic.Int32
	closed     chan struct{}
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{events: make(chan termbox.Event), closed: make(chan struct{})}
}

func (f *fakeTerminal) poll() termbox.Event { return <-f.events }

func (f *fakeTerminal) interrupt() {
	f.interrupts.Add(1)
	f.events <- termbox.Event{Type: termbox.EventInterrupt}
}

func (f *fakeTerminal) shutdown() { close(f.closed) }

func (f *fakeTerminal) open() *Termbox {
	return newTermbox(f.poll, f.interrupt, f.shutdown)
}

func waitPollerExit(t *testing.T, tb *Termbox) {
	t.Helper()
	select {
	case <-tb.done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not exit")
	}
}

func closeWithin(t *testing.T, tb *Termbox, fake *fakeTerminal) {
	t.Helper()
	returned := make(chan struct{})
	go func() {
		tb.Close()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	select {
	case <-fake.closed:
	default:
		t.Fatal("expected the terminal to be restored")
	}
}

func TestTermboxCloseAfterQuitKey(t *testing.T) {
	fake := newFakeTerminal()
	tb := fake.open()

	fake.events <- termbox.Event{Type: termbox.EventKey, Ch: 'q'}
	select {
	case <-tb.Quit():
	case <-time.After(2 * time.Second):
		t.Fatal("expected q to close the quit channel")
	}
	waitPollerExit(t, tb)

	closeWithin(t, tb, fake)
	if n := fake.interrupts.Load(); n != 0 {
		t.Fatalf("expected no interrupt once polling stopped, got %d", n)
	}
	//1.- A second Close is a no-op.
	tb.Close()
}

func TestTermboxCloseAfterPollError(t *testing.T) {
	fake := newFakeTerminal()
	tb := fake.open()

	fake.events <- termbox.Event{Type: termbox.EventError}
	waitPollerExit(t, tb)
	closeWithin(t, tb, fake)
	if n := fake.interrupts.Load(); n != 0 {
		t.Fatalf("expected no interrupt after a poll error, got %d", n)
	}
}

func TestTermboxCloseInterruptsRunningPoller(t *testing.T) {
	fake := newFakeTerminal()
	tb := fake.open()

	fake.events <- termbox.Event{Type: termbox.EventKey, Ch: 'x'}
	closeWithin(t, tb, fake)
	if n := fake.interrupts.Load(); n != 1 {
		t.Fatalf("expected one interrupt, got %d", n)
	}
	select {
	case <-tb.Quit():
		t.Fatal("quit must stay open when the user never asked to leave")
	default:
	}
}
