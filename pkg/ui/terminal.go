package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Logo printed at the start of a run
const Logo = `
    ╔════════════════════════════════════════╗
    ║  A N I M A L F A C T S                 ║
    ║  fact scraper and image fetcher        ║
    ╚════════════════════════════════════════╝
`

const (
	barFilled = "█"
	barEmpty  = "░"
)

// Terminal prints colored status lines. Colors are disabled when the output
// is not a terminal.
type Terminal struct {
	out   io.Writer
	color bool
}

// NewTerminal creates a Terminal writing to w
func NewTerminal(w io.Writer) *Terminal {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Terminal{out: w, color: color && os.Getenv("NO_COLOR") == ""}
}

// Stdout returns a Terminal on standard output
func Stdout() *Terminal {
	return NewTerminal(os.Stdout)
}

func (t *Terminal) paint(code, text string) string {
	if !t.color {
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

func (t *Terminal) Cyan(s string) string    { return t.paint("36", s) }
func (t *Terminal) Yellow(s string) string  { return t.paint("33", s) }
func (t *Terminal) Red(s string) string     { return t.paint("31", s) }
func (t *Terminal) Green(s string) string   { return t.paint("32", s) }
func (t *Terminal) Magenta(s string) string { return t.paint("35", s) }
func (t *Terminal) Dim(s string) string     { return t.paint("2", s) }

// PrintLogo prints the logo
func (t *Terminal) PrintLogo() {
	fmt.Fprint(t.out, t.Cyan(Logo))
}

// PrintError prints an error message in red, followed by err when non-nil
func (t *Terminal) PrintError(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(t.out, t.Red(msg))
}

// PrintSuccess prints a success message in green
func (t *Terminal) PrintSuccess(msg string) {
	fmt.Fprintln(t.out, t.Green(msg))
}

// PrintInfo prints a label and value
func (t *Terminal) PrintInfo(label, value string) {
	fmt.Fprintf(t.out, "%s: %s\n", t.Cyan(label), t.Yellow(value))
}

// PrintWarning prints a warning message in yellow
func (t *Terminal) PrintWarning(msg string) {
	fmt.Fprintln(t.out, t.Yellow(msg))
}

// PrintRatio prints label with a bar showing done out of total
func (t *Terminal) PrintRatio(label string, done, total int) {
	fmt.Fprintf(t.out, "%s %s\n", t.Magenta(label), Bar(done, total, 20))
}

// Bar renders done/total as a fixed-width bar followed by the counts
func Bar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(barFilled, filled),
		strings.Repeat(barEmpty, width-filled),
		done, total)
}
