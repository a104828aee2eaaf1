package terminal

import (
	"fmt"
	"sync"

	"github.com/nsf/termbox-go"
)

// Termbox paints into the controlling terminal.
type Termbox struct {
	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}

	poll      func() termbox.Event
	interrupt func()
	shutdown  func()
}

// OpenTermbox switches the terminal into full screen mode and hides the cursor.
func OpenTermbox() (*Termbox, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("terminal: init: %w", err)
	}
	termbox.SetOutputMode(termbox.OutputNormal)
	termbox.HideCursor()
	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		termbox.Close()
		return nil, fmt.Errorf("terminal: clear: %w", err)
	}
	return newTermbox(termbox.PollEvent, termbox.Interrupt, termbox.Close), nil
}

func newTermbox(poll func() termbox.Event, interrupt, shutdown func()) *Termbox {
	t := &Termbox{
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		poll:      poll,
		interrupt: interrupt,
		shutdown:  shutdown,
	}
	go t.pollKeys()
	return t
}

func (t *Termbox) pollKeys() {
	defer close(t.done)
	for {
		ev := t.poll()
		switch ev.Type {
		case termbox.EventInterrupt, termbox.EventError:
			return
		case termbox.EventKey:
			//1.- Raw mode swallows SIGINT, so Ctrl-C arrives as a key.
			if ev.Key == termbox.KeyCtrlC || ev.Key == termbox.KeyEsc || ev.Ch == 'q' {
				close(t.quit)
				return
			}
		}
	}
}

// Quit is closed when the user asks to leave.
func (t *Termbox) Quit() <-chan struct{} {
	return t.quit
}

func (t *Termbox) Size() (int, int) {
	return termbox.Size()
}

func (t *Termbox) Put(row, col int, pair Pair, text string) {
	fg, bg := termbox.ColorWhite, termbox.ColorBlack
	if pair == PairSolid {
		bg = termbox.ColorGreen
	}
	for _, r := range text {
		termbox.SetCell(col, row, r, fg, bg)
		col++
	}
}

func (t *Termbox) Refresh() error {
	return termbox.Flush()
}

// Close restores the terminal. Safe to call more than once.
func (t *Termbox) Close() error {
	t.closeOnce.Do(func() {
		//1.- Interrupt blocks until a PollEvent receives it, so only wake a poller that is still running.
		select {
		case <-t.done:
		default:
			go t.interrupt()
			<-t.done
		}
		t.shutdown()
	})
	return nil
}

var _ Surface = (*Termbox)(nil)
