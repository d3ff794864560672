package sheets

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// QuoteTitle quotes a worksheet title for use in an A1 range.
func QuoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// RangeA1 returns the A1 range covering n cells of row starting at col,
// e.g. 'Sheet1'!B4:D4. The title is omitted when empty.
func RangeA1(title string, row, col, n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("range of %d cells", n)
	}
	start, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	end, err := excelize.CoordinatesToCellName(col+n-1, row)
	if err != nil {
		return "", err
	}
	rng := start + ":" + end
	if title != "" {
		rng = QuoteTitle(title) + "!" + rng
	}
	return rng, nil
}

// ColumnA1 returns the whole-column range for col, e.g. 'Sheet1'!C:C.
func ColumnA1(title string, col int) (string, error) {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "", err
	}
	return QuoteTitle(title) + "!" + name + ":" + name, nil
}
