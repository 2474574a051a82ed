// Command walletscand is the light-client daemon that wires the wallet
// state engine to the outside world: a compact-block feed, an optional
// local cache, a metrics endpoint, and signal-driven shutdown. Structure
// follows the teacher's cmd/ccoind/main.go (flag parsing, banner, a
// run(ctx, cfg) entry point, signal.Notify for graceful shutdown).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veilwallet/core/internal/blockfeed"
	"github.com/veilwallet/core/internal/walletdb"
	"github.com/veilwallet/core/internal/walletmetrics"
	"github.com/veilwallet/core/internal/walletstate"
	"github.com/veilwallet/core/pkg/noteproto"
	"github.com/veilwallet/core/pkg/walletkeys"
)

const (
	version = "0.1.0"
	banner  = `
  veilwallet scanner daemon v%s
`
)

// Config holds daemon configuration.
type Config struct {
	Mnemonic      string
	ListenAddr    string
	MetricsAddr   string
	BoltPath      string
	LogLevel      string
}

func main() {
	cfg := parseFlags()
	fmt.Printf(banner, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}
	flag.StringVar(&cfg.Mnemonic, "mnemonic", "", "BIP39 mnemonic for this wallet's keys (required)")
	flag.StringVar(&cfg.ListenAddr, "listen", "/ip4/0.0.0.0/tcp/9500", "compact-block feed listen address")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", "127.0.0.1:9501", "prometheus metrics listen address")
	flag.StringVar(&cfg.BoltPath, "cache-db", "./walletscand.db", "local compact-block cache path")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg *Config) error {
	if cfg.Mnemonic == "" {
		return fmt.Errorf("walletscand: -mnemonic is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	wallet, err := walletkeys.NewHDWallet(cfg.Mnemonic, "")
	if err != nil {
		return fmt.Errorf("walletscand: derive wallet keys: %w", err)
	}

	cache, err := walletdb.OpenBolt(cfg.BoltPath)
	if err != nil {
		return fmt.Errorf("walletscand: open cache: %w", err)
	}
	defer cache.Close()

	state := walletstate.New()
	index := walletstate.NewIndex(state, wallet)
	scanner := walletstate.NewScanner(state, wallet, noteproto.X25519Decryptor{}, noteproto.Sha256NullifierDeriver{}, logger)

	registry := prometheus.NewRegistry()
	metrics := walletmetrics.New(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		notes, err := index.UnspentNotes()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(notes)
	})
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	defer server.Shutdown(context.Background())

	feed, err := blockfeed.Dial(ctx, cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("walletscand: dial block feed: %w", err)
	}
	defer feed.Close()

	logger.Info("scanning compact blocks")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		block, err := feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("block feed error", "err", err)
			continue
		}

		if err := cache.PutBlock(ctx, block); err != nil {
			logger.Warn("cache write failed", "err", err)
		}

		if err := scanner.ScanBlock(block); err != nil {
			metrics.ScanErrors.WithLabelValues(errorKind(err)).Inc()
			logger.Error("scan failed", "height", block.Height, "err", err)
			continue
		}

		metrics.BlocksScanned.Inc()
		if h, ok := state.LastBlockHeight(); ok {
			metrics.LastHeight.Set(float64(h))
		}
		metrics.UnspentBalance.Set(float64(state.UnspentCount()))
	}
}

func errorKind(err error) string {
	switch err {
	case walletstate.ErrUnexpectedBlockHeight:
		return "unexpected_block_height"
	case walletstate.ErrInvalidNoteCommitment:
		return "invalid_note_commitment"
	case walletstate.ErrInvalidEphemeralKey:
		return "invalid_ephemeral_key"
	case walletstate.ErrDuplicateCommitment:
		return "duplicate_commitment"
	default:
		return "other"
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
