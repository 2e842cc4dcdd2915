package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfrund/tradedesk/internal/backendsim"
	"github.com/nfrund/tradedesk/internal/config"
	"github.com/nfrund/tradedesk/internal/logging"
)

func newSimulateCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
		noDemo   bool
	)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a stand-in for the trading backend",
		Long: `Serve the backend push channel on --addr:

  GET  /ws       websocket the bridge connects to
  POST /push     {"event": "...", "data": ...} sent to every connected client
  GET  /healthz  status and client count

Unless --no-demo is given, a demo feed of quotes, strategy logs and watchlist updates is
pushed every --interval.

Examples:
  bridgectl simulate
  bridgectl simulate --addr 127.0.0.1:9000 --interval 500ms
  curl -d '{"event":"notification","data":{"level":"info","message":"hi"}}' \
       -H 'Content-Type: application/json' http://127.0.0.1:8765/push`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.SimAddr
			}
			if interval <= 0 {
				interval = cfg.SimInterval
			}
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sim := backendsim.New(backendsim.WithLogger(logger), backendsim.WithVersion(version))
			if !noDemo {
				demo := backendsim.NewDemo(uint64(time.Now().UnixNano()))
				go sim.RunDemo(ctx, demo, interval)
			}
			return sim.Run(ctx, addr)
		},
	}

	simulateCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default SIM_ADDR or "+config.DefaultSimAddr+")")
	simulateCmd.Flags().DurationVar(&interval, "interval", 0, "Demo feed interval (default SIM_INTERVAL or 2s)")
	simulateCmd.Flags().BoolVar(&noDemo, "no-demo", false, "Do not push the demo feed")
	return simulateCmd
}
