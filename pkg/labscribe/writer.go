package labscribe

import (
	"context"
	"fmt"

	"labscribe/pkg/sheets"

	log "github.com/sirupsen/logrus"
)

// WriteRow writes values to the cells [col, col+len(values)-1] of row in a
// single range write. Writing no values issues no request.
func WriteRow(ctx context.Context, sheet sheets.Sheet, row, col int, values []interface{}) error {
	if row < 1 || col < 1 {
		return &LayoutError{Reason: fmt.Sprintf("cell (%d, %d) is outside the sheet", row, col)}
	}
	if len(values) == 0 {
		return nil
	}
	log.WithFields(log.Fields{
		"worksheet": sheet.Title(),
		"row":       row,
		"col":       col,
		"cells":     len(values),
	}).Debug("Writing row")
	return sheet.WriteRange(ctx, row, col, values)
}
