package sheets

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// WorkbookProvider stores each spreadsheet as dir/<name>.xlsx.
//
// Every operation opens, edits and saves the file, so the workbook on disk is
// always the source of truth. Access within the process is serialized.
type WorkbookProvider struct {
	dir    string
	create bool
	mu     sync.Mutex
}

var _ Provider = (*WorkbookProvider)(nil)

// NewWorkbookProvider returns a provider rooted at dir. With create set,
// missing workbooks and worksheets are created.
func NewWorkbookProvider(dir string, create bool) *WorkbookProvider {
	return &WorkbookProvider{dir: dir, create: create}
}

// validName reports whether spreadsheet names a file directly inside the
// provider directory.
func validName(spreadsheet string) bool {
	if spreadsheet == "." || strings.ContainsAny(spreadsheet, `/\`) {
		return false
	}
	return filepath.IsLocal(spreadsheet)
}

// Path returns the file backing spreadsheet.
func (p *WorkbookProvider) Path(spreadsheet string) string {
	return filepath.Join(p.dir, spreadsheet+".xlsx")
}

// Worksheet implements Provider.
func (p *WorkbookProvider) Worksheet(ctx context.Context, spreadsheet, worksheet string) (Sheet, error) {
	if !validName(spreadsheet) {
		return nil, newError("open", spreadsheet, ErrNotFound, errors.New("invalid workbook name"))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	path := p.Path(spreadsheet)

	xl, err := excelize.OpenFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, newError("open", path, ErrTransport, err)
		}
		if !p.create {
			return nil, newError("open", path, ErrNotFound, nil)
		}
		xl = excelize.NewFile()
		if worksheet != "" {
			if err := xl.SetSheetName("Sheet1", worksheet); err != nil {
				xl.Close()
				return nil, newError("open", path, ErrTransport, err)
			}
		}
		if err := xl.SaveAs(path); err != nil {
			xl.Close()
			return nil, newError("open", path, ErrTransport, err)
		}
		log.WithField("path", path).Info("Created workbook")
	}
	defer xl.Close()

	list := xl.GetSheetList()
	if worksheet == "" {
		if len(list) == 0 {
			return nil, newError("open", path, ErrNotFound, nil)
		}
		return &workbookSheet{p: p, path: path, title: list[0]}, nil
	}
	for _, name := range list {
		if name == worksheet {
			return &workbookSheet{p: p, path: path, title: worksheet}, nil
		}
	}
	if !p.create {
		return nil, newError("open", path+"/"+worksheet, ErrNotFound, nil)
	}
	if _, err := xl.NewSheet(worksheet); err != nil {
		return nil, newError("open", path+"/"+worksheet, ErrTransport, err)
	}
	if err := xl.Save(); err != nil {
		return nil, newError("open", path+"/"+worksheet, ErrTransport, err)
	}
	return &workbookSheet{p: p, path: path, title: worksheet}, nil
}

type workbookSheet struct {
	p     *WorkbookProvider
	path  string
	title string
}

func (s *workbookSheet) Title() string { return s.title }

// edit opens the workbook, runs fn and saves when save is set.
func (s *workbookSheet) edit(op string, save bool, fn func(xl *excelize.File) error) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	xl, err := excelize.OpenFile(s.path)
	if err != nil {
		kind := ErrTransport
		if errors.Is(err, os.ErrNotExist) {
			kind = ErrNotFound
		}
		return newError(op, s.path, kind, err)
	}
	defer xl.Close()
	if err := fn(xl); err != nil {
		return newError(op, s.path+"/"+s.title, ErrTransport, err)
	}
	if !save {
		return nil
	}
	if err := xl.Save(); err != nil {
		return newError(op, s.path, ErrTransport, err)
	}
	return nil
}

func (s *workbookSheet) Extent(ctx context.Context, col int) (int, error) {
	if col < 1 {
		return 0, newError("extent", s.title, ErrTransport, fmt.Errorf("column %d", col))
	}
	var last int
	err := s.edit("extent", false, func(xl *excelize.File) error {
		rows, err := xl.GetRows(s.title)
		if err != nil {
			return err
		}
		for i, row := range rows {
			if len(row) >= col && row[col-1] != "" {
				last = i + 1
			}
		}
		return nil
	})
	return last, err
}

func (s *workbookSheet) WriteRange(ctx context.Context, row, col int, values []interface{}) error {
	return s.edit("write", true, func(xl *excelize.File) error {
		return setRow(xl, s.title, row, col, values)
	})
}

func (s *workbookSheet) AppendRow(ctx context.Context, values []interface{}) error {
	return s.edit("append", true, func(xl *excelize.File) error {
		rows, err := xl.GetRows(s.title)
		if err != nil {
			return err
		}
		last := 0
		for i, row := range rows {
			for _, v := range row {
				if v != "" {
					last = i + 1
					break
				}
			}
		}
		return setRow(xl, s.title, last+1, 1, values)
	})
}

func (s *workbookSheet) Clear(ctx context.Context) error {
	return s.edit("clear", true, func(xl *excelize.File) error {
		rows, err := xl.GetRows(s.title)
		if err != nil {
			return err
		}
		for r := len(rows); r >= 1; r-- {
			if err := xl.RemoveRow(s.title, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func setRow(xl *excelize.File, title string, row, col int, values []interface{}) error {
	for i, v := range values {
		axis, err := excelize.CoordinatesToCellName(col+i, row)
		if err != nil {
			return fmt.Errorf("%d/%d: %w", col+i, row, err)
		}
		if vr, ok := v.(driver.Valuer); ok {
			if vv, err := vr.Value(); err == nil {
				v = vv
			}
		}
		switch x := v.(type) {
		case nil:
			continue
		case string:
			err = xl.SetCellStr(title, axis, x)
		case fmt.Stringer:
			err = xl.SetCellStr(title, axis, x.String())
		default:
			err = xl.SetCellValue(title, axis, v)
		}
		if err != nil {
			return fmt.Errorf("%s[%s]: %w", title, axis, err)
		}
	}
	return nil
}
