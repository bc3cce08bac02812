// Package linear provides a synchronous, line oriented build report renderer.
package linear

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
)

// Icons.
const (
	Check = "✓"
	Cross = "✗"
	Skip  = "↷"
	Tilde = "~"
	Dot   = "●"
)

var _ ports.Reporter = (*Renderer)(nil)

// Renderer implements ports.Reporter for terminals and CI logs. It prints one
// line per target prefixed with the target name, followed by a summary.
type Renderer struct {
	out    io.Writer
	output *termenv.Output
	mu     sync.Mutex
}

// NewRenderer creates a Renderer writing to w, or to stderr when w is nil.
func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stderr
	}
	return &Renderer{
		out:    w,
		output: termenv.NewOutput(w, termenv.WithProfile(colorProfile(w))),
	}
}

// colorProfile returns the color profile based on environment and destination.
func colorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if f, ok := w.(*os.File); ok && f == os.Stderr {
		return termenv.ANSI
	}
	return termenv.Ascii
}

// Report renders every row of report followed by a summary line.
func (r *Renderer) Report(report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var buf bytes.Buffer
	for _, res := range report.Results {
		r.renderResult(&buf, res)
	}
	r.renderSummary(&buf, report)

	_, err := r.out.Write(buf.Bytes())
	return err
}

func (r *Renderer) renderResult(buf *bytes.Buffer, res domain.TargetResult) {
	prefix := r.output.String(fmt.Sprintf("[%s]", res.Name)).Faint().String()

	switch res.State {
	case domain.StateBuilt:
		symbol := r.output.String(Check).Foreground(termenv.ANSIGreen).String()
		fmt.Fprintf(buf, "%s %s Built in %v\n", prefix, symbol, round(res.Elapsed))
	case domain.StateNotNeeded:
		symbol := r.output.String(Tilde).Faint().String()
		fmt.Fprintf(buf, "%s %s Up to date\n", prefix, symbol)
	case domain.StatePending:
		symbol := r.output.String(Dot).Foreground(termenv.ANSIYellow).String()
		if res.Reason != "" {
			fmt.Fprintf(buf, "%s %s Would build: %s\n", prefix, symbol, res.Reason)
		} else {
			fmt.Fprintf(buf, "%s %s Would build\n", prefix, symbol)
		}
	case domain.StateFailed:
		symbol := r.output.String(Cross).Foreground(termenv.ANSIRed).String()
		fmt.Fprintf(buf, "%s %s Failed after %v: %v\n", prefix, symbol, round(res.Elapsed), res.Err)
		writeIndented(buf, res.Output)
	case domain.StateSkipped:
		symbol := r.output.String(Skip).Foreground(termenv.ANSIYellow).String()
		fmt.Fprintf(buf, "%s %s Skipped: %v\n", prefix, symbol, res.Err)
	default:
		fmt.Fprintf(buf, "%s %s\n", prefix, res.Outcome())
	}
}

func (r *Renderer) renderSummary(buf *bytes.Buffer, report *domain.Report) {
	if report.DryRun {
		fmt.Fprintf(buf, "Dry run: %d would build, %d up to date\n",
			len(report.Filter(domain.StatePending)),
			len(report.Filter(domain.StateNotNeeded)))
		return
	}

	line := fmt.Sprintf("%d built, %d up to date, %d failed, %d skipped in %v",
		len(report.Filter(domain.StateBuilt)),
		len(report.Filter(domain.StateNotNeeded)),
		len(report.Filter(domain.StateFailed)),
		len(report.Filter(domain.StateSkipped)),
		round(report.Elapsed))
	if report.OK() {
		fmt.Fprintf(buf, "%s %s\n", r.output.String(Check).Foreground(termenv.ANSIGreen).String(), line)
		return
	}
	fmt.Fprintf(buf, "%s %s\n", r.output.String(Cross).Foreground(termenv.ANSIRed).String(), line)
}

// writeIndented prints captured command output below a failed target.
func writeIndented(buf *bytes.Buffer, output []byte) {
	output = bytes.TrimRight(output, "\r\n")
	if len(output) == 0 {
		return
	}
	for line := range bytes.SplitSeq(output, []byte("\n")) {
		buf.WriteString("    ")
		buf.Write(bytes.TrimSuffix(line, []byte("\r")))
		buf.WriteByte('\n')
	}
}

func round(d time.Duration) time.Duration {
	if d < time.Millisecond {
		return d
	}
	return d.Round(time.Millisecond)
}
