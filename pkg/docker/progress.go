package docker

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/morikuni/aec"
)

// Display renders a block of text that is replaced in place on each update.
type Display interface {
	Update(text string)
	Done()
}

type discardDisplay struct{}

func (discardDisplay) Update(string) {}
func (discardDisplay) Done()         {}

// TerminalDisplay redraws its block on a terminal using ANSI cursor
// movement.
type TerminalDisplay struct {
	mu    sync.Mutex
	out   io.Writer
	lines int
}

// NewTerminalDisplay returns a TerminalDisplay writing to out.
func NewTerminalDisplay(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{out: out}
}

// Update erases the previous block and writes text in its place.
func (d *TerminalDisplay) Update(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	erase := aec.Up(1).With(aec.EraseLine(aec.EraseModes.All))
	for i := 0; i < d.lines; i++ {
		fmt.Fprint(d.out, erase)
	}
	fmt.Fprintln(d.out, text)
	d.lines = strings.Count(text, "\n") + 1
}

// Done leaves the last block on screen and starts a fresh one.
func (d *TerminalDisplay) Done() {
	d.mu.Lock()
	d.lines = 0
	d.mu.Unlock()
}
