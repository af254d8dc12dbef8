package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/tidalwave-it/solidblue/progress"
)

// Terminal renders engine notifications on a terminal. The engine calls the
// observer from its own goroutine and must not be blocked, so every event is
// handed over to a rendering goroutine through a buffered channel.
type Terminal struct {
	events chan func(*renderer)
}

const eventBuffer = 1024

// RunWorkflow runs fn with a terminal observer attached, pumping events until
// the workflow returns and the queue drains.
func RunWorkflow(ctx context.Context, fn func(ctx context.Context, obs progress.Observer) error) error {
	t := &Terminal{events: make(chan func(*renderer), eventBuffer)}
	r := newRenderer(os.Stdout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for event := range t.events {
			event(r)
		}
		r.finish()
		return nil
	})
	g.Go(func() error {
		defer close(t.events)
		return fn(gctx, t)
	})
	return g.Wait()
}

// send delivers an event that must not be lost (messages, errors, new files).
func (t *Terminal) send(event func(*renderer)) {
	t.events <- event
}

// post delivers a repaint; when rendering falls behind, dropping one is
// better than stalling the hash pipeline.
func (t *Terminal) post(event func(*renderer)) {
	select {
	case t.events <- event:
	default:
	}
}

func (t *Terminal) Counting() {
	t.send(func(r *renderer) { r.println("Counting files...") })
}

func (t *Terminal) FileCount(n int) {
	t.send(func(r *renderer) { r.println(fmt.Sprintf("%d files to process", n)) })
}

func (t *Terminal) Progress(partial, total int64) {
	t.post(func(r *renderer) { r.progress(partial, total) })
}

func (t *Terminal) SecondaryProgress(fraction float64) {
	t.post(func(r *renderer) { r.secondary(fraction) })
}

func (t *Terminal) File(path string, isNew bool) {
	if isNew {
		t.send(func(r *renderer) { r.println(path) })
		return
	}
	t.post(func(r *renderer) { r.repaint() })
}

func (t *Terminal) FileMoved(oldPath, newPath string) {
	t.send(func(r *renderer) { r.println(fmt.Sprintf("%s\n    -> %s", oldPath, newPath)) })
}

func (t *Terminal) Message(text string) {
	t.send(func(r *renderer) { r.println(text) })
}

func (t *Terminal) Error(text string) {
	t.send(func(r *renderer) { r.println("ERROR: " + text) })
}

var _ progress.Observer = (*Terminal)(nil)

// renderer owns the actual terminal state: the sticky progress line on a TTY,
// plain line output otherwise.
type renderer struct {
	out      io.Writer
	isTTY    bool
	width    int
	line     string
	secFrac  float64
	dirtyBar bool
}

func newRenderer(out *os.File) *renderer {
	r := &renderer{out: out, width: 80}
	if term.IsTerminal(int(out.Fd())) {
		r.isTTY = true
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			r.width = w
		}
	}
	return r
}

func (r *renderer) println(text string) {
	if r.isTTY && r.dirtyBar {
		fmt.Fprint(r.out, "\r", strings.Repeat(" ", r.width-1), "\r")
		r.dirtyBar = false
	}
	fmt.Fprintln(r.out, text)
	if r.isTTY && r.line != "" {
		r.repaint()
	}
}

func (r *renderer) progress(partial, total int64) {
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(partial) / float64(total)
	}
	r.line = fmt.Sprintf("%d/%d %.1f%%", partial, total, pct)
	r.repaint()
}

func (r *renderer) secondary(fraction float64) {
	r.secFrac = fraction
	r.repaint()
}

func (r *renderer) repaint() {
	if !r.isTTY || r.line == "" && r.secFrac == 0 {
		return
	}
	line := " " + r.line
	if r.secFrac > 0 {
		line = fmt.Sprintf("%s [%3.0f%%]", line, 100*r.secFrac)
	}
	if len(line) >= r.width {
		line = line[:r.width-1]
	}
	fmt.Fprint(r.out, "\r", line)
	r.dirtyBar = true
}

// finish drops the sticky line so the shell prompt lands on a fresh row.
func (r *renderer) finish() {
	if r.isTTY && r.dirtyBar {
		fmt.Fprintln(r.out)
	}
}
