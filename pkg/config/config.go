package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	BackendGoogle   = "google"
	BackendWorkbook = "workbook"
	BackendMemory   = "memory"
)

// Sheets selects and configures the spreadsheet backend.
type Sheets struct {
	Backend         string `toml:"backend"`
	CredentialsFile string `toml:"credentials_file"`
	// Spreadsheet name to ID, for accounts without Drive access.
	SpreadsheetIDs    map[string]string `toml:"spreadsheet_ids,omitempty"`
	CreateWorksheets  bool              `toml:"create_worksheets"`
	MaxRetries        int               `toml:"max_retries"`
	MaxBackoffSeconds int               `toml:"max_backoff_seconds"`
	RequestsPerMinute int               `toml:"requests_per_minute"`
}

// MaxBackoff converts MaxBackoffSeconds.
func (s Sheets) MaxBackoff() time.Duration {
	return time.Duration(s.MaxBackoffSeconds) * time.Second
}

type Workbook struct {
	Dir string `toml:"dir"`
}

// Defaults name the worksheet used when a command or request names none.
type Defaults struct {
	Spreadsheet string `toml:"spreadsheet"`
	Worksheet   string `toml:"worksheet"`
}

type Server struct {
	Listen string `toml:"listen"`
}

type Store struct {
	Sheets   Sheets   `toml:"sheets"`
	Workbook Workbook `toml:"workbook"`
	Defaults Defaults `toml:"defaults"`
	Server   Server   `toml:"server"`
}

type Config struct {
	Filename string
	Store    Store
}

// Save writes the current config out to a toml file.
func (c *Config) Save() error {
	b, err := toml.Marshal(c.Store)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Filename, b, 0644)
}

// Load reads the config from its toml file.
func (c *Config) Load() error {
	b, err := os.ReadFile(c.Filename)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, &c.Store)
}

// Validate checks the backend name and numeric limits.
func (c *Config) Validate() error {
	switch c.Store.Sheets.Backend {
	case BackendGoogle, BackendWorkbook, BackendMemory:
	default:
		return fmt.Errorf("%s: unknown backend %q", c.Filename, c.Store.Sheets.Backend)
	}
	if c.Store.Sheets.MaxRetries < 0 {
		return fmt.Errorf("%s: max_retries must not be negative", c.Filename)
	}
	if c.Store.Sheets.RequestsPerMinute < 0 {
		return fmt.Errorf("%s: requests_per_minute must not be negative", c.Filename)
	}
	return nil
}

// New loads filename, writing a default config when it does not exist.
func New(filename string) (*Config, error) {
	c := &Config{Filename: filename}
	c.setDefaults()
	if err := c.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if err := c.Save(); err != nil {
			return nil, err
		}
	}
	// Set some defaults
	if c.Store.Sheets.CredentialsFile == "" {
		c.Store.Sheets.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	c.setDefaults()
	return c, c.Validate()
}

func (c *Config) setDefaults() {
	if c.Store.Sheets.Backend == "" {
		c.Store.Sheets.Backend = BackendGoogle
	}
	if c.Store.Sheets.MaxBackoffSeconds == 0 {
		c.Store.Sheets.MaxBackoffSeconds = 60
	}
	if c.Store.Workbook.Dir == "" {
		c.Store.Workbook.Dir = "."
	}
	if c.Store.Server.Listen == "" {
		c.Store.Server.Listen = ":8080"
	}
}
