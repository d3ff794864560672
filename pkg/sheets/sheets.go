package sheets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"golang.org/x/time/rate"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

const defaultMaxBackoff = 60 * time.Second

// GoogleOptions configures a GoogleProvider.
type GoogleOptions struct {
	// CredentialsFile is a service account JSON key.
	CredentialsFile string
	// SpreadsheetIDs maps spreadsheet names to IDs, skipping the Drive lookup.
	SpreadsheetIDs map[string]string
	// CreateWorksheets adds missing worksheets instead of failing with ErrNotFound.
	CreateWorksheets bool
	// MaxRetries is the number of retries on rate limiting. Zero disables retrying.
	MaxRetries int
	MaxBackoff time.Duration
	// RequestsPerMinute throttles API calls on the client. Zero means unlimited.
	RequestsPerMinute int
	// ClientOptions are appended after the credentials option.
	ClientOptions []option.ClientOption
}

// GoogleProvider resolves spreadsheets through the Drive and Sheets APIs.
type GoogleProvider struct {
	service *sheets.Service
	drive   *drive.Service
	limiter *rate.Limiter
	opts    GoogleOptions
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider creates the Sheets and Drive clients.
func NewGoogleProvider(ctx context.Context, opts GoogleOptions) (*GoogleProvider, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(sheets.SpreadsheetsScope, drive.DriveMetadataReadonlyScope))
	clientOpts = append(clientOpts, opts.ClientOptions...)

	srv, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, newError("open", "sheets client", ErrAuth, err)
	}
	drv, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, newError("open", "drive client", ErrAuth, err)
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	p := &GoogleProvider{service: srv, drive: drv, opts: opts}
	if opts.RequestsPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return p, nil
}

// Worksheet implements Provider.
func (p *GoogleProvider) Worksheet(ctx context.Context, spreadsheet, worksheet string) (Sheet, error) {
	id, err := p.spreadsheetID(ctx, spreadsheet)
	if err != nil {
		return nil, err
	}

	var ss *sheets.Spreadsheet
	err = p.retry(ctx, func() error {
		var err error
		ss, err = p.service.Spreadsheets.Get(id).Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, newError("open", spreadsheet, classify(err), err)
	}

	if worksheet == "" {
		first := firstSheet(ss)
		if first == "" {
			return nil, newError("open", spreadsheet, ErrNotFound, errors.New("spreadsheet has no worksheets"))
		}
		return &googleSheet{p: p, id: id, title: first}, nil
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == worksheet {
			return &googleSheet{p: p, id: id, title: worksheet}, nil
		}
	}
	if !p.opts.CreateWorksheets {
		return nil, newError("open", spreadsheet+"/"+worksheet, ErrNotFound, nil)
	}

	addSheetReq := &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: worksheet,
			},
		},
	}
	err = p.retry(ctx, func() error {
		_, err := p.service.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{addSheetReq},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, newError("open", spreadsheet+"/"+worksheet, classify(err), err)
	}
	log.WithFields(log.Fields{"spreadsheet": spreadsheet, "worksheet": worksheet}).Info("Created worksheet")
	return &googleSheet{p: p, id: id, title: worksheet}, nil
}

func (p *GoogleProvider) spreadsheetID(ctx context.Context, name string) (string, error) {
	if id, ok := p.opts.SpreadsheetIDs[name]; ok {
		return id, nil
	}
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), spreadsheetMimeType)
	var files *drive.FileList
	err := p.retry(ctx, func() error {
		var err error
		files, err = p.drive.Files.List().
			Q(q).
			Fields("files(id, name)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", newError("open", name, classify(err), err)
	}
	if len(files.Files) == 0 {
		return "", newError("open", name, ErrNotFound, nil)
	}
	if len(files.Files) > 1 {
		log.Warnf("%d spreadsheets named %q, using %s", len(files.Files), name, files.Files[0].Id)
	}
	return files.Files[0].Id, nil
}

func firstSheet(ss *sheets.Spreadsheet) string {
	title, index := "", int64(math.MaxInt64)
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Index < index {
			title, index = sh.Properties.Title, sh.Properties.Index
		}
	}
	return title
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// retry runs call, retrying rate limited requests with exponential backoff.
func (p *GoogleProvider) retry(ctx context.Context, call func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err = call(); err == nil {
			return nil
		}
		if attempt >= p.opts.MaxRetries || !rateLimited(err) {
			return err
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		if backoff > p.opts.MaxBackoff {
			backoff = p.opts.MaxBackoff
		}
		log.Warnf("Rate limited by Google Sheets API, retrying in %v...", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func rateLimited(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	if gErr.Code == http.StatusTooManyRequests {
		return true
	}
	if gErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return true
		}
	}
	return false
}

// classify maps an API error to ErrAuth, ErrNotFound or ErrTransport.
func classify(err error) error {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return ErrTransport
	}
	switch {
	case rateLimited(err):
		return ErrTransport
	case gErr.Code == http.StatusUnauthorized || gErr.Code == http.StatusForbidden:
		return ErrAuth
	case gErr.Code == http.StatusNotFound:
		return ErrNotFound
	}
	return ErrTransport
}

type googleSheet struct {
	p     *GoogleProvider
	id    string
	title string
}

func (s *googleSheet) Title() string { return s.title }

func (s *googleSheet) Extent(ctx context.Context, col int) (int, error) {
	rng, err := ColumnA1(s.title, col)
	if err != nil {
		return 0, newError("extent", s.title, ErrTransport, err)
	}
	var resp *sheets.ValueRange
	err = s.p.retry(ctx, func() error {
		var err error
		resp, err = s.p.service.Spreadsheets.Values.Get(s.id, rng).
			MajorDimension("COLUMNS").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, newError("extent", rng, classify(err), err)
	}
	return columnExtent(resp), nil
}

// columnExtent returns the 1-based index of the last non-empty value.
func columnExtent(vr *sheets.ValueRange) int {
	if vr == nil || len(vr.Values) == 0 {
		return 0
	}
	col := vr.Values[0]
	for i := len(col) - 1; i >= 0; i-- {
		if col[i] != nil && fmt.Sprint(col[i]) != "" {
			return i + 1
		}
	}
	return 0
}

func (s *googleSheet) WriteRange(ctx context.Context, row, col int, values []interface{}) error {
	rng, err := RangeA1(s.title, row, col, len(values))
	if err != nil {
		return newError("write", s.title, ErrTransport, err)
	}
	vr := &sheets.ValueRange{
		Range:          rng,
		MajorDimension: "ROWS",
		Values:         [][]interface{}{values},
	}
	err = s.p.retry(ctx, func() error {
		_, err := s.p.service.Spreadsheets.Values.Update(s.id, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return newError("write", rng, classify(err), err)
	}
	return nil
}

func (s *googleSheet) AppendRow(ctx context.Context, values []interface{}) error {
	rng := QuoteTitle(s.title) + "!A1"
	err := s.p.retry(ctx, func() error {
		_, err := s.p.service.Spreadsheets.Values.Append(
			s.id,
			rng,
			&sheets.ValueRange{Values: [][]interface{}{values}},
		).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
	if err != nil {
		return newError("append", s.title, classify(err), err)
	}
	return nil
}

func (s *googleSheet) Clear(ctx context.Context) error {
	err := s.p.retry(ctx, func() error {
		_, err := s.p.service.Spreadsheets.Values.Clear(s.id, QuoteTitle(s.title), &sheets.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return newError("clear", s.title, classify(err), err)
	}
	return nil
}
