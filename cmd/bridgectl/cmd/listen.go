package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/nfrund/tradedesk/internal/app"
	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/config"
	"github.com/nfrund/tradedesk/internal/logging"
	"github.com/nfrund/tradedesk/internal/topicmgr"
)

// eventLine is one line of listen output.
type eventLine struct {
	Time  time.Time `json:"time"`
	Topic string    `json:"topic"`
	Data  any       `json:"data"`
}

// linePrinter serializes JSON lines from concurrent listeners.
type linePrinter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

func newLinePrinter(w io.Writer) *linePrinter {
	return &linePrinter{enc: json.NewEncoder(w), now: time.Now}
}

func (p *linePrinter) print(topic string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.enc.Encode(eventLine{Time: p.now().UTC(), Topic: topic, Data: data})
}

func newListenCmd() *cobra.Command {
	var topics []string

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Print every event the bridge dispatches",
		Long: `Start the bridge on the configured transport and print one JSON line per event
until interrupted. Without --topic every catalogue topic is followed, including every
update_data kind.

The transport comes from BRIDGE_TRANSPORT (memory or websocket) and BACKEND_URL.

Examples:
  BRIDGE_TRANSPORT=websocket BACKEND_URL=ws://127.0.0.1:8765/ws bridgectl listen
  bridgectl listen --topic order_update --topic update_data:settings`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return listen(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), topics)
		},
	}

	listenCmd.Flags().StringArrayVarP(&topics, "topic", "t", nil, "Topic to follow (repeatable)")
	return listenCmd
}

func listen(ctx context.Context, out, errOut io.Writer, topics []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(errOut, cfg.LogFormat, cfg.LogLevel)

	injector := app.NewInjector(cfg, logger)
	defer func() {
		if err := app.Shutdown(injector); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	manager, err := do.Invoke[*topicmgr.Manager](injector)
	if err != nil {
		return err
	}
	if len(topics) == 0 {
		for _, def := range manager.List() {
			topics = append(topics, def.Name)
		}
	}
	for _, topic := range topics {
		if err := manager.ValidateTopicName(topic); err != nil {
			return err
		}
	}

	// Subscribe before the transport starts so no early frame is missed.
	b, err := do.Invoke[*bridge.Bridge](injector)
	if err != nil {
		return err
	}
	printer := newLinePrinter(out)
	for _, topic := range topics {
		b.On(topic, func(data any) {
			if err := printer.print(topic, data); err != nil {
				logger.Error("Failed to print event", "topic", topic, "error", err)
			}
		})
	}

	if _, err := app.Run(ctx, injector); err != nil {
		return err
	}
	logger.Info("Listening", "topics", len(topics), "transport", cfg.Transport)

	<-ctx.Done()
	fmt.Fprintln(errOut, "Shutting down")
	return nil
}
