// ====================================
// File: cmd/portfolio/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-portfolio/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-portfolio/internal/config"
	"github.com/rovshanmuradov/solana-portfolio/internal/export"
	"github.com/rovshanmuradov/solana-portfolio/internal/portfolio"
	"github.com/rovshanmuradov/solana-portfolio/internal/storage"
	"github.com/rovshanmuradov/solana-portfolio/internal/storage/memory"
	redistore "github.com/rovshanmuradov/solana-portfolio/internal/storage/redis"
	"github.com/rovshanmuradov/solana-portfolio/internal/token"
	"github.com/rovshanmuradov/solana-portfolio/internal/ui"
	"github.com/rovshanmuradov/solana-portfolio/internal/utils/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	owners, err := parseOwners(cfg.Owners)
	if err != nil {
		log.Fatal("invalid owner address", zap.Error(err))
	}
	if len(owners) == 0 {
		log.Fatal("no owners configured")
	}

	client := solbc.NewClient(cfg.RPCURL, log.Logger)
	lister := token.NewLister(client, log.Logger)
	resolver := token.NewResolver(client, log.Logger)
	fetcher := token.NewFetcher(cfg.IPFSGateway, time.Duration(cfg.FetchTimeoutMs)*time.Millisecond, log.Logger)

	var hints storage.HintStore
	if cfg.RedisAddr != "" {
		rc, err := redistore.NewClient(ctx, cfg.RedisAddr, log.Logger)
		if err != nil {
			log.Warn("redis unavailable, using in-memory hint store", zap.Error(err))
			hints = memory.NewHintStore()
		} else {
			hints = redistore.NewHintStore(rc)
		}
	} else {
		hints = memory.NewHintStore()
	}

	agg := portfolio.NewAggregator(lister, resolver, fetcher, hints, cfg.EnrichConcurrency, log)

	model := ui.NewModel(agg, owners, cfg.DustEpsilon, cfg.HighlightMint, log.Logger)
	model.SetExporter(export.NewPositionExporter(log.Logger), cfg.ExportDir)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	log.Info("starting portfolio viewer",
		zap.Int("owners", len(owners)),
		zap.String("rpc_url", cfg.RPCURL))

	if _, err := program.Run(); err != nil {
		log.Fatal("portfolio viewer exited with error", zap.Error(err))
	}
}

func parseOwners(raw []string) ([]solana.PublicKey, error) {
	owners := make([]solana.PublicKey, 0, len(raw))
	for _, s := range raw {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, fmt.Errorf("owner %q: %w", s, err)
		}
		owners = append(owners, pk)
	}
	return owners, nil
}
