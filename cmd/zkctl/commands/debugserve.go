package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/pkg/zk/debug"
)

var debugServeAddr string

// debugCmd groups diagnostics subcommands under "zkctl debug ...".
var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Diagnostics commands",
}

// debugServeCmd ("zkctl debug serve") dials the session and keeps it
// alive behind a small HTTP surface exposing Prometheus metrics and a
// session-state dump, per pkg/config.MetricsConfig.Addr — the
// operator-facing counterpart to a long-lived embedding service
// (pkg/zk/debug.NewRouter).
var debugServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Hold a session open and serve /metrics and /debug/session",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := debugServeAddr
		if addr == "" && Cfg != nil {
			addr = Cfg.Metrics.Addr
		}
		if addr == "" {
			return fmt.Errorf("no listen address: pass --addr or set metrics.addr in config")
		}
		if Cfg == nil || !Cfg.Metrics.Enabled {
			return fmt.Errorf("metrics are disabled: set metrics.enabled: true in config")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		srv := &http.Server{Addr: addr, Handler: debug.NewRouter(client)}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		printSuccess(cmd.OutOrStdout(), fmt.Sprintf("serving /metrics and /debug/session on %s", addr))

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

func init() {
	debugServeCmd.Flags().StringVar(&debugServeAddr, "addr", "", "Listen address (default: metrics.addr from config)")
	debugCmd.AddCommand(debugServeCmd)
}
