package teachable

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/teslashibe/go-teachable/pkg/labels"
)

// Status is the per-frame snapshot shown to the operator.
type Status struct {
	Session   string       `json:"session"`
	Method    string       `json:"method"`
	Frame     int64        `json:"frame"`
	FPS       float64      `json:"fps"`
	Examples  int          `json:"examples"`
	Class     labels.Class `json:"class"`
	ClassName string       `json:"class_name"`
	Time      time.Time    `json:"time"`
}

// Line formats the status line, e.g. "fps 29.8; #examples: 3; Class   Two".
func (s Status) Line() string {
	return fmt.Sprintf("fps %.1f; #examples: %d; Class %5s", s.FPS, s.Examples, s.ClassName)
}

// StatusSink receives every status snapshot (the web dashboard).
type StatusSink interface {
	Publish(s Status)
}

// FrameSink receives the frames the loop processed.
type FrameSink interface {
	PublishFrame(img image.Image)
}

var classColors = map[labels.Class]lipgloss.Color{
	1: lipgloss.Color("#FF6B6B"),
	2: lipgloss.Color("#4ECDC4"),
	3: lipgloss.Color("#FFE66D"),
	4: lipgloss.Color("#A29BFE"),
}

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	classStyle = lipgloss.NewStyle().Bold(true)
)

// Printer writes status lines, styling the class name when writing to a
// terminal.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter creates a printer. styled enables lipgloss colors.
func NewPrinter(w io.Writer, styled bool) *Printer {
	return &Printer{w: w, styled: styled}
}

// Print writes one status line.
func (p *Printer) Print(s Status) {
	if !p.styled {
		fmt.Fprintln(p.w, s.Line())
		return
	}

	name := fmt.Sprintf("%5s", s.ClassName)
	if c, ok := classColors[s.Class]; ok {
		name = classStyle.Foreground(c).Render(name)
	} else {
		name = dimStyle.Render(name)
	}
	fmt.Fprintf(p.w, "%s %.1f; %s %d; %s %s\n",
		dimStyle.Render("fps"), s.FPS,
		dimStyle.Render("#examples:"), s.Examples,
		dimStyle.Render("Class"), name)
}
