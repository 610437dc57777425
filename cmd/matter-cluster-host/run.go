package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the node and block until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "address to serve Prometheus metrics on (empty = disabled)",
				Sources: cli.EnvVars("MATTER_HOST_METRICS_ADDR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := optionsFrom(cmd)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			node, lf, err := opts.newNode(os.Stderr, reg)
			if err != nil {
				return err
			}
			log := lf.NewLogger("host")

			if addr := cmd.String("metrics-addr"); addr != "" {
				srv := &http.Server{
					Addr:              addr,
					Handler:           metricsMux(reg),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Errorf("metrics server: %v", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				log.Infof("serving metrics on %s/metrics", addr)
			}

			if err := node.Start(ctx); err != nil {
				log.Warnf("start: %v", err)
			}

			<-ctx.Done()

			log.Info("shutting down")
			if err := node.Stop(); err != nil {
				return fmt.Errorf("stop node: %w", err)
			}
			return nil
		},
	}
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
