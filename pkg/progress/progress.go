// Package progress draws a single-line textual progress bar such as
//
//	[##########----------]  50%
//
// The bar is redrawn in place with a carriage return and only when the whole
// percentage changes. Nothing else should write to the same output while a
// bar is active.
package progress

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	// nonBarChars is the width taken by "[", "] ", the 3-digit percent and "%".
	nonBarChars   = 7
	completeChar  = "#"
	remainingChar = "-"
)

// ErrComplete is returned by Update in strict mode once the bar is full.
var ErrComplete = errors.New("progress already at 100%")

// Bar is a textual progress bar. It is safe for concurrent Update calls.
type Bar struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	max      int
	current  int
	percent  int
	strict   bool
	finished bool
	err      error
}

// New draws an empty bar filling lineWidth columns of out. max is the number of
// Update calls needed to reach 100%; a max of zero or less starts complete.
func New(out io.Writer, lineWidth, max int) *Bar {
	if out == nil {
		out = io.Discard
	}
	width := lineWidth - nonBarChars
	if width < 1 {
		width = 1
	}
	b := &Bar{out: out, width: width, max: max}
	if max <= 0 {
		b.percent = 100
	}
	b.draw()
	if max <= 0 {
		b.finish()
	}
	return b
}

// Strict makes Update return ErrComplete when called after the bar is full
// instead of ignoring the call.
func (b *Bar) Strict() *Bar {
	b.mu.Lock()
	b.strict = true
	b.mu.Unlock()
	return b
}

// Update advances the bar by one step, redrawing when the percentage grows.
// A newline is written once 100% is reached so later output keeps the bar.
func (b *Bar) Update() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current >= b.max {
		if b.strict {
			return ErrComplete
		}
		return nil
	}

	b.current++
	if p := b.current * 100 / b.max; p > b.percent {
		b.percent = p
		b.draw()
	}
	if b.current == b.max {
		b.finish()
	}
	return b.err
}

// Percent returns the last drawn percentage.
func (b *Bar) Percent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.percent
}

// Err returns the first write error, if any.
func (b *Bar) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Bar) draw() {
	filled := b.percent * b.width / 100
	line := fmt.Sprintf("[%s%s] %3d%%\r",
		strings.Repeat(completeChar, filled),
		strings.Repeat(remainingChar, b.width-filled),
		b.percent,
	)
	b.write(line)
}

func (b *Bar) finish() {
	if b.finished {
		return
	}
	b.finished = true
	b.write("\n")
}

func (b *Bar) write(s string) {
	if b.err != nil {
		return
	}
	if _, err := io.WriteString(b.out, s); err != nil {
		b.err = fmt.Errorf("write progress: %w", err)
	}
}
