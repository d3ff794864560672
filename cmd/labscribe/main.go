// Command labscribe logs experiment metrics and results to a spreadsheet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"labscribe/pkg/config"
	"labscribe/pkg/labscribe"
	"labscribe/pkg/sheets"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	verbose     bool
	spreadsheet string
	worksheet   string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "labscribe",
		Short:         "Log experiment metrics and results to a spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			log.SetFormatter(&log.TextFormatter{
				FullTimestamp: true,
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "labscribe.toml", "Config file (created with defaults if missing)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	flags.StringVarP(&spreadsheet, "spreadsheet", "s", "", "Spreadsheet name (default from config)")
	flags.StringVarP(&worksheet, "worksheet", "w", "", "Worksheet name (default from config, else the first worksheet)")

	rootCmd.AddCommand(
		newInitCmd(),
		newMetricsCmd(),
		newBeginCmd(),
		newResultsCmd(),
		newAppendCmd(),
		newClearCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	return config.New(configPath)
}

// newProvider builds the backend selected in the config.
func newProvider(ctx context.Context, cfg *config.Config) (sheets.Provider, error) {
	sc := cfg.Store.Sheets
	switch sc.Backend {
	case config.BackendGoogle:
		return sheets.NewGoogleProvider(ctx, sheets.GoogleOptions{
			CredentialsFile:   sc.CredentialsFile,
			SpreadsheetIDs:    sc.SpreadsheetIDs,
			CreateWorksheets:  sc.CreateWorksheets,
			MaxRetries:        sc.MaxRetries,
			MaxBackoff:        sc.MaxBackoff(),
			RequestsPerMinute: sc.RequestsPerMinute,
		})
	case config.BackendWorkbook:
		return sheets.NewWorkbookProvider(cfg.Store.Workbook.Dir, sc.CreateWorksheets), nil
	case config.BackendMemory:
		log.Warn("Using the memory backend, nothing will be persisted")
		return sheets.NewMemoryProvider(true), nil
	}
	return nil, fmt.Errorf("unknown backend %q", sc.Backend)
}

// openSession resolves the target worksheet from the flags and config.
func openSession(ctx context.Context) (*labscribe.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	name := spreadsheet
	if name == "" {
		name = cfg.Store.Defaults.Spreadsheet
	}
	if name == "" {
		return nil, fmt.Errorf("no spreadsheet: use -s or set defaults.spreadsheet in %s", cfg.Filename)
	}
	ws := worksheet
	if ws == "" {
		ws = cfg.Store.Defaults.Worksheet
	}
	return labscribe.NewSession(provider, name, ws), nil
}
