package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/yourorg/tracectl/internal/console"
	"github.com/yourorg/tracectl/pkg/types"
)

// Palette, Catppuccin Mocha.
var (
	colorOverlay = lipgloss.Color("#6c7086")
	colorText    = lipgloss.Color("#cdd6f4")
	colorRed     = lipgloss.Color("#f38ba8")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorYellow  = lipgloss.Color("#f9e2af")
	colorBlue    = lipgloss.Color("#89b4fa")
	colorMauve   = lipgloss.Color("#cba6f7")
	colorTeal    = lipgloss.Color("#94e2d5")
)

type styles struct {
	header  lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	pending lipgloss.Style
	accent  lipgloss.Style
	role    lipgloss.Style
}

func styledTheme() styles {
	return styles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		label:   lipgloss.NewStyle().Bold(true).Foreground(colorText),
		dim:     lipgloss.NewStyle().Foreground(colorOverlay),
		success: lipgloss.NewStyle().Bold(true).Foreground(colorGreen),
		failure: lipgloss.NewStyle().Bold(true).Foreground(colorRed),
		pending: lipgloss.NewStyle().Foreground(colorYellow),
		accent:  lipgloss.NewStyle().Foreground(colorTeal),
		role:    lipgloss.NewStyle().Bold(true).Foreground(colorMauve),
	}
}

func plainTheme() styles {
	s := lipgloss.NewStyle()
	return styles{header: s, label: s, dim: s, success: s, failure: s, pending: s, accent: s, role: s}
}

// output renders command results on out and notifications on errOut. It
// implements console.Notifier.
type output struct {
	out    io.Writer
	errOut io.Writer
	st     styles

	mu       sync.Mutex
	reported []error
}

func newOutput(out, errOut io.Writer) *output {
	o := &output{out: out, errOut: errOut, st: plainTheme()}
	if isTerminal(out) {
		o.st = styledTheme()
	}
	return o
}

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (o *output) setPlain() { o.st = plainTheme() }

// Notify prints a store outcome. Reported errors are remembered so the
// command error is not printed twice.
func (o *output) Notify(n console.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch n.Kind {
	case console.KindSuccess:
		fmt.Fprintf(o.errOut, "%s %s\n", o.st.success.Render("ok"), n.Message)
	case console.KindError:
		fmt.Fprintf(o.errOut, "%s %s: %s\n", o.st.failure.Render("error"), n.Op, n.Message)
		if n.Err != nil {
			o.reported = append(o.reported, n.Err)
			if joined, ok := n.Err.(interface{ Unwrap() []error }); ok {
				o.reported = append(o.reported, joined.Unwrap()...)
			}
		}
	}
}

// wasReported reports whether err, or every error joined in it, was
// already printed by Notify.
func (o *output) wasReported(err error) bool {
	o.mu.Lock()
	for _, r := range o.reported {
		if sameError(r, err) {
			o.mu.Unlock()
			return true
		}
	}
	o.mu.Unlock()
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return false
	}
	errs := joined.Unwrap()
	for _, e := range errs {
		if !o.wasReported(e) {
			return false
		}
	}
	return len(errs) > 0
}

// sameError compares error identity without panicking on uncomparable types.
func sameError(a, b error) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

func (o *output) errorf(format string, args ...any) {
	fmt.Fprintf(o.errOut, "%s %s\n", o.st.failure.Render("error"), fmt.Sprintf(format, args...))
}

func (o *output) warnf(format string, args ...any) {
	fmt.Fprintf(o.errOut, "%s %s\n", o.st.pending.Render("warning"), fmt.Sprintf(format, args...))
}

func (o *output) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

func (o *output) header(title string) {
	fmt.Fprintf(o.out, "\n%s\n", o.st.header.Render(title))
	fmt.Fprintln(o.out, o.st.dim.Render(strings.Repeat("-", lipgloss.Width(title)+2)))
}

func (o *output) field(label, value string) {
	fmt.Fprintf(o.out, "  %s %s\n", o.st.label.Render(fmt.Sprintf("%-18s", label+":")), value)
}

func (o *output) block(title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(o.out, "\n  %s\n", o.st.label.Render(title))
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(o.out, "    %s\n", line)
	}
}

func (o *output) status(status string) string {
	switch status {
	case types.StatusSuccess, types.ReplayActive:
		return o.st.success.Render(status)
	case types.StatusError:
		return o.st.failure.Render(status)
	case types.StatusPending:
		return o.st.pending.Render(status)
	default:
		return o.st.dim.Render(status)
	}
}

func (o *output) role(name string) string { return o.st.role.Render(name) }

func (o *output) accent(s string) string { return o.st.accent.Render(s) }

// table prints rows under headers with columns padded to their widest cell.
func (o *output) table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(o.out, o.st.dim.Render("  (none)"))
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := &strings.Builder{}
	line.WriteString("  ")
	for i, h := range headers {
		line.WriteString(o.st.label.Render(pad(h, widths[i]+2)))
	}
	fmt.Fprintln(o.out, strings.TrimRight(line.String(), " "))

	line.Reset()
	line.WriteString("  ")
	for _, w := range widths {
		line.WriteString(o.st.dim.Render(strings.Repeat("-", w+2)))
	}
	fmt.Fprintln(o.out, line.String())

	for _, row := range rows {
		line.Reset()
		line.WriteString("  ")
		for i, cell := range row {
			if i < len(widths) {
				line.WriteString(pad(cell, widths[i]+2))
			}
		}
		fmt.Fprintln(o.out, strings.TrimRight(line.String(), " "))
	}
}

func (o *output) pagination(p types.Pagination) {
	pages := 1
	if p.PageSize > 0 && p.Total > 0 {
		pages = (p.Total + p.PageSize - 1) / p.PageSize
	}
	fmt.Fprintln(o.out, o.st.dim.Render(fmt.Sprintf("  page %d of %d, %d total", p.Current, pages, p.Total)))
}

func pad(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
