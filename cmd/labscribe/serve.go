package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"labscribe/pkg/api"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listenAddress string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept metrics and results over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			provider, err := newProvider(ctx, cfg)
			if err != nil {
				return err
			}
			if listenAddress == "" {
				listenAddress = cfg.Store.Server.Listen
			}
			router := api.GetRouter(api.NewServer(provider, cfg.Store.Defaults))
			return runServer(ctx, listenAddress, router)
		},
	}
	cmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "Listen address (default from config)")
	return cmd
}

// runServer serves until ctx is cancelled, then shuts down.
func runServer(ctx context.Context, addr string, router http.Handler) error {
	server := http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("listening for HTTP on: %s", server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("Signalled, shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
