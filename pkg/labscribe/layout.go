package labscribe

import (
	"errors"
	"fmt"
)

// DefaultPhase names the single anonymous phase used when none are given.
const DefaultPhase = ""

// ErrLayout indicates coordinates that cannot be laid out.
var ErrLayout = errors.New("invalid layout")

// LayoutError reports which input made a layout ambiguous.
type LayoutError struct {
	Reason string
}

func (e *LayoutError) Error() string { return "invalid layout: " + e.Reason }

func (e *LayoutError) Unwrap() error { return ErrLayout }

// Layout assigns each phase of a metrics block its starting column.
//
// Every phase reserves len(metricKeys)+2 columns: the iteration column, one
// column per metric and a blank separator. Phases are placed left to right in
// the order given, starting at column 1.
type Layout struct {
	phases []string
	cols   map[string]int
	width  int
}

// NewLayout computes the column of every phase. Nil or empty phases yield a
// single DefaultPhase at column 1.
func NewLayout(metricKeys, phases []string) (Layout, error) {
	if len(phases) == 0 {
		phases = []string{DefaultPhase}
	}
	l := Layout{
		phases: make([]string, 0, len(phases)),
		cols:   make(map[string]int, len(phases)),
		width:  len(metricKeys) + 2,
	}
	for i, p := range phases {
		if p == DefaultPhase && len(phases) > 1 {
			return Layout{}, &LayoutError{Reason: fmt.Sprintf("unnamed phase at position %d", i)}
		}
		if _, dup := l.cols[p]; dup {
			return Layout{}, &LayoutError{Reason: fmt.Sprintf("duplicate phase %q", p)}
		}
		l.phases = append(l.phases, p)
		l.cols[p] = 1 + l.width*i
	}
	return l, nil
}

// Column returns the starting column of phase.
func (l Layout) Column(phase string) (int, bool) {
	c, ok := l.cols[phase]
	return c, ok
}

// Phases returns the phases in column order.
func (l Layout) Phases() []string {
	return append([]string(nil), l.phases...)
}

// Width is the number of columns reserved per phase.
func (l Layout) Width() int { return l.width }

// Columns returns a copy of the phase to column mapping.
func (l Layout) Columns() map[string]int {
	m := make(map[string]int, len(l.cols))
	for k, v := range l.cols {
		m[k] = v
	}
	return m
}
