package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rcliao/lhn/internal/lhn"
	"github.com/rcliao/lhn/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the navigation list every time it changes",
		Long:  "Run the derivation pipeline and print each new ordering as a JSON line until interrupted.",
		Run:   runWatch,
	}

	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (default: $LHN_METRICS_ADDR)")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = cfg.MetricsAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := pipeline.NewMetrics(reg)

	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	out := cmd.OutOrStdout()
	p := pipeline.New(s, func(o lhn.Ordering) {
		b, err := json.Marshal(o)
		if err != nil {
			logger.Error("encode ordering", "error", err)
			return
		}
		fmt.Fprintln(out, string(b))
	}, pipeline.Options{
		Logger:          logger,
		Metrics:         metrics,
		StrictChatTypes: cfg.StrictChatTypes,
	})

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		exitErr("watch", err)
	}
}
