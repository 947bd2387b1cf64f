// Command matchcored is the matching engine host process: it loads
// configuration, boots one core.OrderBook per configured symbol behind an
// engine.Engine, and serves the wire protocol over TCP until signalled to
// stop. Restructured from the teacher's cmd/main.go (which wired a single
// hardcoded AssetType and no config layer) into a cobra root command with
// serve/replay subcommands, per SPEC_FULL.md §10/§11.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"matchcore/internal/config"
	"matchcore/internal/core"
	"matchcore/internal/engine"
	"matchcore/internal/events"
	"matchcore/internal/net"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "matchcored",
		Short: "Run the matchcore limit order book matching engine host",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	root.AddCommand(serveCmd(), replayCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("matchcored exiting")
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TCP server and matching engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	registry := prometheus.NewRegistry()
	metricsSink := events.NewMetricsSink(registry)
	logSink := events.LogSink{}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	// srv doesn't exist yet when eng needs a sink that routes back to it,
	// so the fanout holds a pointer to the not-yet-assigned *net.Server and
	// resolves its Sink() lazily; by the time any event fires, srv below
	// has already been assigned.
	var srv *net.Server
	eng := engine.New(fanoutSink{srvRef: &srv, log: logSink, metrics: metricsSink})
	srv = net.NewWithWorkers(cfg.ListenAddress, cfg.ListenPort, eng, cfg.WorkerPoolSize)

	for _, symbol := range cfg.Symbols {
		eng.AddSymbol(symbol)
	}

	log.Info().Strs("symbols", cfg.Symbols).Str("address", cfg.ListenAddress).Int("port", cfg.ListenPort).Msg("matchcored starting")

	return srv.Run(ctx)
}

// fanoutSink broadcasts every event to the owning server's per-client sink
// plus the log and metrics sinks.
type fanoutSink struct {
	srvRef  **net.Server
	log     events.LogSink
	metrics *events.MetricsSink
}

func (f fanoutSink) OnOrderEvent(e core.OrderEvent) {
	(*f.srvRef).Sink().OnOrderEvent(e)
	f.log.OnOrderEvent(e)
	f.metrics.OnOrderEvent(e)
}

func (f fanoutSink) OnTradeEvent(e core.TradeEvent) {
	(*f.srvRef).Sink().OnTradeEvent(e)
	f.log.OnTradeEvent(e)
	f.metrics.OnTradeEvent(e)
}

// replayCmd feeds a plain-text trace of engine.Message-shaped lines into a
// fresh engine and prints the resulting ladder, useful for reproducing a
// captured sequence outside of a live TCP session.
func replayCmd() *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Replay a trace file of order messages against a fresh book and print the ladder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0], symbol)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "AAPL", "symbol to replay the trace against")
	return cmd
}

func runReplay(path string, symbol string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	eng := engine.New(core.NopSink{})
	eng.AddSymbol(symbol)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		msg, err := parseTraceLine(symbol, scanner.Text())
		if err != nil {
			return fmt.Errorf("replay: line %d: %w", line, err)
		}
		if err := eng.Dispatch(msg); err != nil {
			return fmt.Errorf("replay: line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	rendered, err := eng.Render(symbol)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}

// parseTraceLine decodes one whitespace-separated trace line:
//
//	limit  <order_id> <bid|ask> <price> <size>
//	market <order_id> <bid|ask> <size>
//	cancel <order_id>
//	amend  <order_id> <new_size>
func parseTraceLine(symbol, line string) (engine.Message, error) {
	var kind string
	var orderID, price, size uint64
	var sideStr string

	n, _ := fmt.Sscanf(line, "%s", &kind)
	if n != 1 {
		return engine.Message{}, fmt.Errorf("empty trace line")
	}

	switch kind {
	case "limit":
		if _, err := fmt.Sscanf(line, "%s %d %s %d %d", &kind, &orderID, &sideStr, &price, &size); err != nil {
			return engine.Message{}, err
		}
		return engine.Message{Symbol: symbol, Kind: engine.Created, OrderID: orderID, Side: parseSide(sideStr), Price: price, Size: size}, nil
	case "market":
		if _, err := fmt.Sscanf(line, "%s %d %s %d", &kind, &orderID, &sideStr, &size); err != nil {
			return engine.Message{}, err
		}
		return engine.Message{Symbol: symbol, Kind: engine.Created, OrderID: orderID, Side: parseSide(sideStr), Price: 0, Size: size}, nil
	case "cancel":
		if _, err := fmt.Sscanf(line, "%s %d", &kind, &orderID); err != nil {
			return engine.Message{}, err
		}
		return engine.Message{Symbol: symbol, Kind: engine.Deleted, OrderID: orderID}, nil
	case "amend":
		if _, err := fmt.Sscanf(line, "%s %d %d", &kind, &orderID, &size); err != nil {
			return engine.Message{}, err
		}
		return engine.Message{Symbol: symbol, Kind: engine.Changed, OrderID: orderID, Size: size}, nil
	default:
		return engine.Message{}, fmt.Errorf("unknown trace op %q", kind)
	}
}

func parseSide(s string) core.Side {
	if s == "bid" {
		return core.Bid
	}
	return core.Ask
}
