package sheets

import "context"

// Provider resolves a (spreadsheet, worksheet) pair to a live Sheet.
// An empty worksheet name selects the first worksheet.
type Provider interface {
	Worksheet(ctx context.Context, spreadsheet, worksheet string) (Sheet, error)
}

// Sheet is a handle to one worksheet. Rows and columns are 1-based.
type Sheet interface {
	// Title is the resolved worksheet name.
	Title() string
	// Extent returns the row of the last populated cell in col, or 0.
	Extent(ctx context.Context, col int) (int, error)
	// WriteRange writes values to row, starting at col, in one request.
	// A nil value leaves its cell unchanged; an empty string blanks it.
	WriteRange(ctx context.Context, row, col int, values []interface{}) error
	// AppendRow writes values to the row after the last populated row,
	// treating nil like WriteRange does.
	AppendRow(ctx context.Context, values []interface{}) error
	Clear(ctx context.Context) error
}
