package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryProvider keeps worksheets in process memory. It backs dry runs and tests.
type MemoryProvider struct {
	mu     sync.Mutex
	create bool
	books  map[string]*memoryBook
}

type memoryBook struct {
	order  []string
	sheets map[string]*memorySheet
}

type cell struct{ row, col int }

var _ Provider = (*MemoryProvider)(nil)

// NewMemoryProvider returns an empty provider. With create set, unknown
// spreadsheets and worksheets are created on first use.
func NewMemoryProvider(create bool) *MemoryProvider {
	return &MemoryProvider{create: create, books: make(map[string]*memoryBook)}
}

// AddWorksheet creates an empty worksheet, creating the spreadsheet if needed.
func (p *MemoryProvider) AddWorksheet(spreadsheet, worksheet string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(spreadsheet, worksheet)
}

func (p *MemoryProvider) addLocked(spreadsheet, worksheet string) *memorySheet {
	b, ok := p.books[spreadsheet]
	if !ok {
		b = &memoryBook{sheets: make(map[string]*memorySheet)}
		p.books[spreadsheet] = b
	}
	if sh, ok := b.sheets[worksheet]; ok {
		return sh
	}
	sh := &memorySheet{p: p, title: worksheet, cells: make(map[cell]interface{})}
	b.sheets[worksheet] = sh
	b.order = append(b.order, worksheet)
	return sh
}

// Worksheet implements Provider.
func (p *MemoryProvider) Worksheet(ctx context.Context, spreadsheet, worksheet string) (Sheet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.books[spreadsheet]
	if !ok {
		if !p.create {
			return nil, newError("open", spreadsheet, ErrNotFound, nil)
		}
		if worksheet == "" {
			worksheet = "Sheet1"
		}
		return p.addLocked(spreadsheet, worksheet), nil
	}
	if worksheet == "" {
		if len(b.order) == 0 {
			return nil, newError("open", spreadsheet, ErrNotFound, nil)
		}
		return b.sheets[b.order[0]], nil
	}
	if sh, ok := b.sheets[worksheet]; ok {
		return sh, nil
	}
	if !p.create {
		return nil, newError("open", spreadsheet+"/"+worksheet, ErrNotFound, nil)
	}
	return p.addLocked(spreadsheet, worksheet), nil
}

// Cell returns the value at (row, col) of a worksheet, or nil.
func (p *MemoryProvider) Cell(spreadsheet, worksheet string, row, col int) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	sh := p.lookupLocked(spreadsheet, worksheet)
	if sh == nil {
		return nil
	}
	return sh.cells[cell{row, col}]
}

// Row returns n values of row starting at col.
func (p *MemoryProvider) Row(spreadsheet, worksheet string, row, col, n int) []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]interface{}, n)
	sh := p.lookupLocked(spreadsheet, worksheet)
	if sh == nil {
		return out
	}
	for i := range out {
		out[i] = sh.cells[cell{row, col + i}]
	}
	return out
}

func (p *MemoryProvider) lookupLocked(spreadsheet, worksheet string) *memorySheet {
	b, ok := p.books[spreadsheet]
	if !ok {
		return nil
	}
	if worksheet == "" && len(b.order) > 0 {
		worksheet = b.order[0]
	}
	return b.sheets[worksheet]
}

type memorySheet struct {
	p     *MemoryProvider
	title string
	cells map[cell]interface{}
}

func (s *memorySheet) Title() string { return s.title }

func (s *memorySheet) Extent(ctx context.Context, col int) (int, error) {
	if col < 1 {
		return 0, newError("extent", s.title, ErrTransport, fmt.Errorf("column %d", col))
	}
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	last := 0
	for c, v := range s.cells {
		if c.col == col && c.row > last && populated(v) {
			last = c.row
		}
	}
	return last, nil
}

func (s *memorySheet) WriteRange(ctx context.Context, row, col int, values []interface{}) error {
	if row < 1 || col < 1 {
		return newError("write", s.title, ErrTransport, fmt.Errorf("invalid cell (%d, %d)", row, col))
	}
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.setLocked(row, col, values)
	return nil
}

func (s *memorySheet) setLocked(row, col int, values []interface{}) {
	for i, v := range values {
		if v == nil {
			continue
		}
		if populated(v) {
			s.cells[cell{row, col + i}] = v
		} else {
			delete(s.cells, cell{row, col + i})
		}
	}
}

func (s *memorySheet) AppendRow(ctx context.Context, values []interface{}) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	last := 0
	for c := range s.cells {
		if c.row > last {
			last = c.row
		}
	}
	s.setLocked(last+1, 1, values)
	return nil
}

func (s *memorySheet) Clear(ctx context.Context) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.cells = make(map[cell]interface{})
	return nil
}

func populated(v interface{}) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}
