// internal/portfolio/aggregator.go
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-portfolio/internal/storage"
	"github.com/rovshanmuradov/solana-portfolio/internal/token"
	"github.com/rovshanmuradov/solana-portfolio/internal/utils/logger"
)

// ErrStale marks a refresh that was superseded by a newer one (owner switch,
// explicit refresh). Its results must be discarded, never rendered.
var ErrStale = errors.New("portfolio: refresh superseded")

// Lister retrieves the holdings of an owner.
type Lister interface {
	ListHoldings(ctx context.Context, owner solana.PublicKey) ([]token.Holding, error)
}

// MetadataResolver resolves on-chain metadata for a mint.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) (token.MetadataRecord, error)
}

// DocumentFetcher retrieves the off-chain document behind a metadata URI.
type DocumentFetcher interface {
	Fetch(ctx context.Context, uri string) token.DisplayDocument
}

// Aggregator drives one fetch cycle: list once, enrich per distinct mint
// concurrently, merge, sort. It owns the generation counter that guards
// against stale writes when the owner changes mid-flight.
type Aggregator struct {
	lister   Lister
	resolver MetadataResolver
	fetcher  DocumentFetcher
	hints    storage.HintStore // optional
	logger   *logger.Logger

	concurrency int
	generation  atomic.Uint64
}

func NewAggregator(
	lister Lister,
	resolver MetadataResolver,
	fetcher DocumentFetcher,
	hints storage.HintStore,
	concurrency int,
	log *logger.Logger,
) *Aggregator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Aggregator{
		lister:      lister,
		resolver:    resolver,
		fetcher:     fetcher,
		hints:       hints,
		logger:      log.Named("aggregator"),
		concurrency: concurrency,
	}
}

// Invalidate supersedes every refresh currently in flight. Called on owner
// switch and view teardown.
func (a *Aggregator) Invalidate() {
	a.generation.Add(1)
}

// Refresh runs one full fetch cycle for the owner and returns the sorted
// position list. A transport fault from the listing call is the only
// user-visible error; per-mint enrichment degrades internally. If a newer
// cycle started while this one was in flight, Refresh returns ErrStale.
func (a *Aggregator) Refresh(ctx context.Context, owner solana.PublicKey) ([]Position, error) {
	gen := a.generation.Add(1)
	end := a.logger.TrackPerformance("fetch-cycle")
	defer end()

	holdings, err := a.lister.ListHoldings(ctx, owner)
	if err != nil {
		a.logger.LogError("listing holdings failed", err,
			zap.String("owner", owner.String()))
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	if a.generation.Load() != gen {
		return nil, ErrStale
	}

	positions := make([]Position, len(holdings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, h := range holdings {
		i, h := i, h
		g.Go(func() error {
			positions[i] = a.enrich(gctx, h)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		if a.generation.Load() != gen {
			return nil, ErrStale
		}
		return nil, err
	}

	// Settled: drop the whole cycle if it was superseded while enriching.
	if a.generation.Load() != gen {
		return nil, ErrStale
	}

	SortPositions(positions)

	a.logger.WithOwner(owner.String()).Debug("fetch cycle settled",
		zap.Uint64("generation", gen),
		zap.Int("positions", len(positions)))

	return positions, nil
}

// enrich resolves metadata and the off-chain document for one holding.
// Every fault in here degrades to absent fields per the pipeline policy.
func (a *Aggregator) enrich(ctx context.Context, h token.Holding) Position {
	md, err := a.resolver.Resolve(ctx, h.Mint)
	if err != nil {
		// Only context errors escape the resolver; render the bare holding.
		return mergeRecord(h, token.MetadataRecord{Mint: h.Mint}, token.DisplayDocument{})
	}

	var doc token.DisplayDocument
	if md.Attached && md.URI != "" {
		doc = a.fetcher.Fetch(ctx, md.URI)
	}

	p := mergeRecord(h, md, doc)
	a.applyHints(ctx, &p, md)
	return p
}

// applyHints pre-fills a missing symbol from the persisted hint cache and
// records the winning symbol back. Hints never override fetched data.
func (a *Aggregator) applyHints(ctx context.Context, p *Position, md token.MetadataRecord) {
	if a.hints == nil {
		return
	}
	mint := p.Mint.String()

	if p.Symbol == "" {
		if hint, ok, err := a.hints.Get(ctx, mint); err == nil && ok && hint.LastSymbol != "" {
			p.Symbol = hint.LastSymbol
		}
	}

	if p.Symbol == "" && p.Name == "" {
		return
	}
	metaJSON, err := json.Marshal(md)
	if err != nil {
		metaJSON = nil
	}
	hint := storage.Hint{
		MetadataJSON: string(metaJSON),
		Finalized:    md.Attached,
		LastSymbol:   p.Symbol,
	}
	if err := a.hints.Put(ctx, mint, hint); err != nil {
		a.logger.WithMint(mint).Debug("hint store write failed", zap.Error(err))
	}
}
