// Package report renders operator-facing console output: per-record progress
// lines, checkpoint notices, the validation summary and analyze results.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Mark is the symbol that prefixes a record outcome.
type Mark int

// Outcome marks.
const (
	MarkNone Mark = iota
	MarkPass
	MarkFail
	MarkWait
)

var glyphs = map[Mark]string{
	MarkPass: "✓",
	MarkFail: "✗",
	MarkWait: "⏳",
}

// Printer serializes console output from concurrent workers. Colour is only
// used when the writer is a terminal.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool

	pass *color.Color
	fail *color.Color
	wait *color.Color
	bold *color.Color
}

// NewPrinter writes to out. When verbose is false, Detail and Progress lines
// are suppressed.
func NewPrinter(out io.Writer, verbose bool) *Printer {
	if out == nil {
		out = io.Discard
	}
	p := &Printer{
		out:     out,
		verbose: verbose,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		wait:    color.New(color.FgYellow),
		bold:    color.New(color.Bold),
	}
	if !isTerminal(out) {
		for _, c := range []*color.Color{p.pass, p.fail, p.wait, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Verbose reports whether detail lines are printed.
func (p *Printer) Verbose() bool { return p.verbose }

// Println writes one plain line.
func (p *Printer) Println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// Printf writes formatted text without adding a newline.
func (p *Printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Rule writes a line of n '=' characters.
func (p *Printer) Rule(n int) {
	p.Println(strings.Repeat("=", n))
}

// Heading writes a rule, a bold title and another rule.
func (p *Printer) Heading(title string, width int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rule := strings.Repeat("=", width)
	fmt.Fprintln(p.out, rule)
	fmt.Fprintln(p.out, p.bold.Sprint(title))
	fmt.Fprintln(p.out, rule)
}

// Progress writes an in-flight line such as "[3/25] P001 - Fetching...".
// It is only printed in verbose mode.
func (p *Printer) Progress(index, total int, primerID, msg string) {
	if !p.verbose {
		return
	}
	p.Println(fmt.Sprintf("[%d/%d] %s - %s", index, total, primerID, msg))
}

// Outcome writes the final line for one validated record:
// "[3/25] P001 (2 pairs, using #1) - ✓ PASS".
func (p *Printer) Outcome(index, total int, primerID, note string, mark Mark, msg string) {
	p.Println(fmt.Sprintf("[%d/%d] %s%s - %s", index, total, primerID, note, p.symbol(mark, msg)))
}

// Submitted writes the line for one submission: "[3/25] ✓ P001 -> KEY".
func (p *Printer) Submitted(done, total int, primerID, jobKey string) {
	mark, target := MarkPass, jobKey
	if jobKey == "" {
		mark, target = MarkFail, "FAILED"
	}
	p.Println(fmt.Sprintf("[%d/%d] %s %s -> %s", done, total, p.paint(mark, glyphs[mark]), primerID, target))
}

// Detail writes indented lines in verbose mode.
func (p *Printer) Detail(lines ...string) {
	if !p.verbose || len(lines) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range lines {
		fmt.Fprintln(p.out, "  "+line)
	}
}

// Checkpoint announces a checkpoint write.
func (p *Printer) Checkpoint(done, total int, path string) {
	p.Println(fmt.Sprintf("\n[CHECKPOINT] Saved %d/%d completed jobs to %s\n", done, total, path))
}

func (p *Printer) symbol(mark Mark, msg string) string {
	if mark == MarkNone {
		return msg
	}
	return p.paint(mark, glyphs[mark]+" "+msg)
}

func (p *Printer) paint(mark Mark, s string) string {
	switch mark {
	case MarkPass:
		return p.pass.Sprint(s)
	case MarkFail:
		return p.fail.Sprint(s)
	case MarkWait:
		return p.wait.Sprint(s)
	default:
		return s
	}
}
