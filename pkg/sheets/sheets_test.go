package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"golang.org/x/time/rate"
)

func TestClassify(t *testing.T) {
	rateLimit := []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, ErrAuth},
		{"forbidden", &googleapi.Error{Code: 403}, ErrAuth},
		{"rate limited 403", &googleapi.Error{Code: 403, Errors: rateLimit}, ErrTransport},
		{"too many requests", &googleapi.Error{Code: 429}, ErrTransport},
		{"not found", &googleapi.Error{Code: 404}, ErrNotFound},
		{"bad range", &googleapi.Error{Code: 400}, ErrTransport},
		{"server", &googleapi.Error{Code: 503}, ErrTransport},
		{"wrapped", fmt.Errorf("call: %w", &googleapi.Error{Code: 404}), ErrNotFound},
		{"network", errors.New("connection reset"), ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestColumnExtent(t *testing.T) {
	tests := []struct {
		vr   *sheets.ValueRange
		want int
	}{
		{nil, 0},
		{&sheets.ValueRange{}, 0},
		{&sheets.ValueRange{Values: [][]interface{}{{"a", "", "b"}}}, 3},
		{&sheets.ValueRange{Values: [][]interface{}{{"a", "", ""}}}, 1},
		{&sheets.ValueRange{Values: [][]interface{}{{"", ""}}}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, columnExtent(tt.vr))
	}
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `Bob\'s runs`, escapeQuery("Bob's runs"))
	assert.Equal(t, `a\\b`, escapeQuery(`a\b`))
}

// fakeSheetsAPI serves the subset of the Sheets and Drive APIs the provider uses.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	requests []string
	updates  []sheets.ValueRange
	appends  []sheets.ValueRange
	column   []interface{}
	// failures are returned, in order, before any request succeeds.
	failures []int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if len(f.failures) > 0 {
		code := f.failures[0]
		f.failures = f.failures[1:]
		writeGoogleError(w, code)
		return
	}

	const values = "/v4/spreadsheets/ss1/values/"
	p := r.URL.Path
	switch {
	case r.Method == http.MethodGet && p == "/drive/v3/files":
		if !strings.Contains(r.URL.Query().Get("q"), "name = 'runs'") {
			fmt.Fprint(w, `{"files": []}`)
			return
		}
		fmt.Fprint(w, `{"files": [{"id": "ss1", "name": "runs"}]}`)
	case r.Method == http.MethodGet && p == "/v4/spreadsheets/ss1":
		fmt.Fprint(w, `{"sheets": [{"properties": {"title": "train"}}, {"properties": {"title": "eval"}}]}`)
	case r.Method == http.MethodPost && p == "/v4/spreadsheets/ss1:batchUpdate":
		fmt.Fprint(w, `{"spreadsheetId": "ss1"}`)
	case r.Method == http.MethodGet && strings.HasPrefix(p, values):
		json.NewEncoder(w).Encode(sheets.ValueRange{
			Range:          strings.TrimPrefix(p, values),
			MajorDimension: "COLUMNS",
			Values:         [][]interface{}{f.column},
		})
	case r.Method == http.MethodPut && strings.HasPrefix(p, values):
		var vr sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.updates = append(f.updates, vr)
		fmt.Fprint(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(p, ":append"):
		var vr sheets.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.appends = append(f.appends, vr)
		fmt.Fprint(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(p, ":clear"):
		fmt.Fprint(w, `{}`)
	default:
		writeGoogleError(w, http.StatusNotFound)
	}
}

func writeGoogleError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error": {"code": %d, "message": "%s", "errors": [{"reason": "test"}]}}`,
		code, http.StatusText(code))
}

func newTestProvider(t *testing.T, api *fakeSheetsAPI, opts GoogleOptions) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	ctx := context.Background()
	svc, err := sheets.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	drv, err := drive.NewService(ctx, option.WithEndpoint(srv.URL+"/drive/v3/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = time.Millisecond
	}
	return &GoogleProvider{service: svc, drive: drv, opts: opts}
}

func TestGoogleProviderWorksheet(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{}
	p := newTestProvider(t, api, GoogleOptions{})

	sh, err := p.Worksheet(ctx, "runs", "")
	require.NoError(t, err)
	assert.Equal(t, "train", sh.Title())

	sh, err = p.Worksheet(ctx, "runs", "eval")
	require.NoError(t, err)
	assert.Equal(t, "eval", sh.Title())

	_, err = p.Worksheet(ctx, "runs", "test")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = p.Worksheet(ctx, "other", "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGoogleProviderCreatesWorksheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	p := newTestProvider(t, api, GoogleOptions{CreateWorksheets: true})
	sh, err := p.Worksheet(context.Background(), "runs", "test")
	require.NoError(t, err)
	assert.Equal(t, "test", sh.Title())
	assert.Contains(t, api.requests, "POST /v4/spreadsheets/ss1:batchUpdate")
}

func TestGoogleProviderSpreadsheetIDs(t *testing.T) {
	api := &fakeSheetsAPI{}
	p := newTestProvider(t, api, GoogleOptions{SpreadsheetIDs: map[string]string{"alias": "ss1"}})
	_, err := p.Worksheet(context.Background(), "alias", "")
	require.NoError(t, err)
	for _, req := range api.requests {
		assert.NotContains(t, req, "/drive/")
	}
}

func TestGoogleSheetRequests(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{column: []interface{}{"", "", "", "exp1", "train", "iter", ""}}
	p := newTestProvider(t, api, GoogleOptions{})
	sh, err := p.Worksheet(ctx, "runs", "train")
	require.NoError(t, err)

	n, err := sh.Extent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Contains(t, api.requests, "GET /v4/spreadsheets/ss1/values/'train'!A:A")

	require.NoError(t, sh.WriteRange(ctx, 6, 4, []interface{}{"iter", "loss"}))
	require.Len(t, api.updates, 1)
	assert.Equal(t, "'train'!D6:E6", api.updates[0].Range)
	assert.Equal(t, [][]interface{}{{"iter", "loss"}}, api.updates[0].Values)

	require.NoError(t, sh.AppendRow(ctx, []interface{}{"x"}))
	require.Len(t, api.appends, 1)
	assert.Equal(t, [][]interface{}{{"x"}}, api.appends[0].Values)

	require.NoError(t, sh.Clear(ctx))
	assert.Contains(t, api.requests, "POST /v4/spreadsheets/ss1/values/'train':clear")
}

func TestGoogleSheetErrorKinds(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{}
	p := newTestProvider(t, api, GoogleOptions{})
	sh, err := p.Worksheet(ctx, "runs", "")
	require.NoError(t, err)

	api.failures = []int{http.StatusBadRequest}
	err = sh.WriteRange(ctx, 1, 1, []interface{}{1})
	assert.True(t, errors.Is(err, ErrTransport))
	var sErr *Error
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, "write", sErr.Op)

	api.failures = []int{http.StatusUnauthorized}
	_, err = sh.Extent(ctx, 1)
	assert.True(t, errors.Is(err, ErrAuth))

	api.failures = []int{http.StatusForbidden}
	_, err = p.Worksheet(ctx, "runs", "")
	assert.True(t, errors.Is(err, ErrAuth))
}

func TestGoogleRetry(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{}
	p := newTestProvider(t, api, GoogleOptions{MaxRetries: 2})
	sh, err := p.Worksheet(ctx, "runs", "")
	require.NoError(t, err)

	api.failures = []int{http.StatusTooManyRequests, http.StatusTooManyRequests}
	require.NoError(t, sh.WriteRange(ctx, 1, 1, []interface{}{1}))
	assert.Len(t, api.updates, 1)

	api.failures = []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests}
	err = sh.WriteRange(ctx, 1, 1, []interface{}{1})
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Len(t, api.updates, 1)
}

func TestGoogleNoRetryByDefault(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{}
	p := newTestProvider(t, api, GoogleOptions{})
	sh, err := p.Worksheet(ctx, "runs", "")
	require.NoError(t, err)

	api.failures = []int{http.StatusTooManyRequests}
	before := len(api.requests)
	err = sh.WriteRange(ctx, 1, 1, []interface{}{1})
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, before+1, len(api.requests))
}

func TestGoogleLimiter(t *testing.T) {
	api := &fakeSheetsAPI{}
	p := newTestProvider(t, api, GoogleOptions{SpreadsheetIDs: map[string]string{"runs": "ss1"}})
	p.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	sh, err := p.Worksheet(context.Background(), "runs", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	before := len(api.requests)
	err = sh.WriteRange(ctx, 1, 1, []interface{}{1})
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, before, len(api.requests))
}
