// Package labscribe logs experiment metrics and results to a spreadsheet.
//
// A Session names one worksheet. Every workflow resolves the worksheet afresh,
// reads the sheet extent where it needs one and writes whole rows, so the
// sheet itself is the only state. Callers writing the same rows concurrently
// must serialize themselves.
package labscribe

import (
	"context"
	"fmt"

	"labscribe/pkg/sheets"

	log "github.com/sirupsen/logrus"
)

const (
	// metricsGap is added to the extent of column 1 to place a metrics block,
	// leaving three blank rows above it.
	metricsGap = 4
	// IterHeader heads the iteration column of every phase.
	IterHeader = "iter"
)

// Block locates a metrics block created by InitMetrics.
type Block struct {
	// Row holds the experiment name; phase names are on Row+1 and
	// headers on Row+2.
	Row    int
	Layout Layout
}

// FirstDataRow is the first row below the headers.
func (b Block) FirstDataRow() int { return b.Row + 3 }

// Session writes to one worksheet of one spreadsheet.
type Session struct {
	provider    sheets.Provider
	spreadsheet string
	worksheet   string
}

// NewSession returns a session for spreadsheet. An empty worksheet selects
// the first worksheet.
func NewSession(provider sheets.Provider, spreadsheet, worksheet string) *Session {
	return &Session{provider: provider, spreadsheet: spreadsheet, worksheet: worksheet}
}

func (s *Session) open(ctx context.Context) (sheets.Sheet, error) {
	sh, err := s.provider.Worksheet(ctx, s.spreadsheet, s.worksheet)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.spreadsheet, err)
	}
	return sh, nil
}

func (s *Session) logger(sh sheets.Sheet) *log.Entry {
	return log.WithFields(log.Fields{"spreadsheet": s.spreadsheet, "worksheet": sh.Title()})
}

// InitMetrics starts a metrics block three blank rows below the last
// populated cell of column 1. It writes expName, the phase names and a header
// row of IterHeader and metricKeys for every phase.
func (s *Session) InitMetrics(ctx context.Context, expName string, metricKeys, phases []string) (Block, error) {
	layout, err := NewLayout(metricKeys, phases)
	if err != nil {
		return Block{}, err
	}
	sh, err := s.open(ctx)
	if err != nil {
		return Block{}, err
	}
	extent, err := sh.Extent(ctx, 1)
	if err != nil {
		return Block{}, err
	}
	row := extent + metricsGap

	if err := WriteRow(ctx, sh, row, 1, []interface{}{expName}); err != nil {
		return Block{}, err
	}
	header := make([]interface{}, 0, len(metricKeys)+1)
	header = append(header, IterHeader)
	for _, k := range metricKeys {
		header = append(header, k)
	}
	for _, phase := range layout.Phases() {
		col, _ := layout.Column(phase)
		if phase != DefaultPhase {
			if err := WriteRow(ctx, sh, row+1, col, []interface{}{phase}); err != nil {
				return Block{}, err
			}
		}
		if err := WriteRow(ctx, sh, row+2, col, header); err != nil {
			return Block{}, err
		}
	}
	s.logger(sh).WithFields(log.Fields{"experiment": expName, "row": row}).Debug("Initialized metrics")
	return Block{Row: row, Layout: layout}, nil
}

// UploadMetrics appends iter and the metric values below the last populated
// cell of col. A zero col means column 1. It returns the row written.
//
// The row is found from col alone, where iter lands. A nil iter leaves col
// empty, so the next UploadMetrics on col writes the same row again.
func (s *Session) UploadMetrics(ctx context.Context, metrics Record, iter interface{}, col int) (int, error) {
	if col == 0 {
		col = 1
	}
	sh, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	extent, err := sh.Extent(ctx, col)
	if err != nil {
		return 0, err
	}
	row := extent + 1
	if err := WriteRow(ctx, sh, row, col, metricRow(metrics, iter)); err != nil {
		return 0, err
	}
	return row, nil
}

// UploadMetricsAt writes iter and the metric values at (row, col) without
// reading the sheet extent.
func (s *Session) UploadMetricsAt(ctx context.Context, metrics Record, iter interface{}, row, col int) error {
	sh, err := s.open(ctx)
	if err != nil {
		return err
	}
	return WriteRow(ctx, sh, row, col, metricRow(metrics, iter))
}

func metricRow(metrics Record, iter interface{}) []interface{} {
	return append([]interface{}{iter}, metrics.Values()...)
}

// BeginExperiment appends a row holding expName followed by the values of
// args below the last populated cell of column 1, and returns that row for a
// later UploadResults.
func (s *Session) BeginExperiment(ctx context.Context, expName string, args Record) (int, error) {
	sh, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	extent, err := sh.Extent(ctx, 1)
	if err != nil {
		return 0, err
	}
	row := extent + 1
	values := append([]interface{}{expName}, args.Values()...)
	if err := WriteRow(ctx, sh, row, 1, values); err != nil {
		return 0, err
	}
	s.logger(sh).WithFields(log.Fields{"experiment": expName, "row": row}).Debug("Began experiment")
	return row, nil
}

// UploadResults writes the result values at (row, col), overwriting whatever
// is there. The row usually comes from BeginExperiment.
func (s *Session) UploadResults(ctx context.Context, expName string, results Record, row, col int) error {
	sh, err := s.open(ctx)
	if err != nil {
		return err
	}
	if err := WriteRow(ctx, sh, row, col, results.Values()); err != nil {
		return err
	}
	s.logger(sh).WithFields(log.Fields{"experiment": expName, "row": row, "col": col}).Debug("Uploaded results")
	return nil
}

// AddRow appends values as a new row after the sheet's data.
func (s *Session) AddRow(ctx context.Context, values []interface{}) error {
	sh, err := s.open(ctx)
	if err != nil {
		return err
	}
	return sh.AppendRow(ctx, values)
}

// ClearWorksheet removes every value from the worksheet.
func (s *Session) ClearWorksheet(ctx context.Context) error {
	sh, err := s.open(ctx)
	if err != nil {
		return err
	}
	if err := sh.Clear(ctx); err != nil {
		return err
	}
	s.logger(sh).Info("Cleared worksheet")
	return nil
}
