// ====================================
// File: cmd/rpcproxy/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-portfolio/internal/config"
	"github.com/rovshanmuradov/solana-portfolio/internal/proxy"
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
	if cfg.ProxyUpstreamURL == "" {
		fmt.Fprintln(os.Stderr, "proxy_upstream_url is required")
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = "rpcproxy.log"
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := proxy.NewServer(cfg.ProxyUpstreamURL, time.Duration(cfg.FetchTimeoutMs)*time.Millisecond, log.Logger)

	if err := srv.WaitUpstream(ctx); err != nil {
		log.Fatal("upstream never became reachable", zap.Error(err))
	}

	if err := srv.Run(ctx, cfg.ProxyListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("proxy exited with error", zap.Error(err))
	}

	log.Info("proxy stopped")
}
