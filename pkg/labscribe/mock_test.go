package labscribe

import (
	"context"

	"labscribe/pkg/sheets"
)

type writeCall struct {
	Row, Col int
	Values   []interface{}
}

type mockSheet struct {
	ExtentFunc  func(col int) (int, error)
	ExtentCalls []int
	WriteCalls  []writeCall
	WriteErr    error
	// FailAfter makes writes fail once this many writes succeeded, if WriteErr is set.
	FailAfter   int
	AppendCalls [][]interface{}
	ClearCalled bool
}

func (m *mockSheet) Title() string { return "Sheet1" }

func (m *mockSheet) Extent(ctx context.Context, col int) (int, error) {
	m.ExtentCalls = append(m.ExtentCalls, col)
	if m.ExtentFunc == nil {
		return 0, nil
	}
	return m.ExtentFunc(col)
}

func (m *mockSheet) WriteRange(ctx context.Context, row, col int, values []interface{}) error {
	if m.WriteErr != nil && len(m.WriteCalls) >= m.FailAfter {
		return m.WriteErr
	}
	m.WriteCalls = append(m.WriteCalls, writeCall{Row: row, Col: col, Values: values})
	return nil
}

func (m *mockSheet) AppendRow(ctx context.Context, values []interface{}) error {
	m.AppendCalls = append(m.AppendCalls, values)
	return nil
}

func (m *mockSheet) Clear(ctx context.Context) error {
	m.ClearCalled = true
	return nil
}

type mockProvider struct {
	Sheet *mockSheet
	Err   error
	Calls []string
}

func (m *mockProvider) Worksheet(ctx context.Context, spreadsheet, worksheet string) (sheets.Sheet, error) {
	m.Calls = append(m.Calls, spreadsheet+"/"+worksheet)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Sheet, nil
}
