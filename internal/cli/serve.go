package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b97tsk/commander"
	"github.com/b97tsk/commander/internal/inspect"
	"github.com/b97tsk/commander/internal/metrics"
	"github.com/b97tsk/commander/internal/scenario"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func (a *app) newServeCmd() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Tick an executor on the wall clock and serve its tasks",
		Long: `Ticks an executor every --tick-interval, optionally feeding it the tasks
of a scenario file, and serves the live tasks on --addr:

  GET /healthz
  GET /tasks
  GET /tasks/{seq}
  GET /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sc *scenario.Scenario
			if scenarioPath != "" {
				var err error
				if sc, err = scenario.Load(scenarioPath); err != nil {
					return err
				}
			}

			ln, err := net.Listen("tcp", a.cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx, ln, sc)
		},
	}

	a.cfg.BindServeFlags(cmd.Flags())
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario file whose tasks are started")

	return cmd
}

// serve ticks an executor and serves the inspector on ln until ctx is done.
func (a *app) serve(ctx context.Context, ln net.Listener, sc *scenario.Scenario) error {
	clock := commander.NewClockIntegration()
	clock.OnSleep = func(q commander.SleepQuantity) {
		a.logger.Debug("executor sleep", "sleep", q.String())
	}

	x := commander.NewExecutor(clock, a.logger)
	defer x.Shutdown()

	reg := prom.NewRegistry()
	exporter, err := metrics.NewExporter("commander", reg, metrics.ExporterOptions{})
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	x.SetMetrics(exporter)

	var runner *scenario.Runner
	if sc != nil {
		runner = scenario.NewRunner(x, sc, a.logger)
	}

	srv := &http.Server{
		Handler:           inspect.NewHandler(x, a.logger, inspect.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	a.logger.Info("serving", "addr", ln.Addr().String(), "executor_id", x.ID())

	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down", "tick", x.TickIndex())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		case err := <-errc:
			return fmt.Errorf("serve: %w", err)
		case <-ticker.C:
			if runner != nil {
				runner.Step(a.cfg.Slice)
			} else {
				x.Tick(a.cfg.Slice)
			}
		}
	}
}
