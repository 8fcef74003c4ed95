// internal/token/lister.go
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// TokenAccountClient is the slice of the RPC surface the lister needs.
type TokenAccountClient interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, program solana.PublicKey) (*rpc.GetTokenAccountsResult, error)
}

// Lister retrieves the SPL token holdings of an owner wallet.
type Lister struct {
	client TokenAccountClient
	logger *zap.Logger
}

func NewLister(client TokenAccountClient, logger *zap.Logger) *Lister {
	return &Lister{
		client: client,
		logger: logger.Named("lister"),
	}
}

// parsedTokenAccount mirrors the jsonParsed encoding of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// ListHoldings returns one Holding per distinct mint, balances summed across
// all raw token accounts of the owner. Zero balances are excluded. A transport
// failure surfaces as a single error with no partial results.
func (l *Lister) ListHoldings(ctx context.Context, owner solana.PublicKey) ([]Holding, error) {
	result, err := l.client.GetTokenAccountsByOwner(ctx, owner, solana.TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts for %s: %w", owner, err)
	}

	holdings := l.aggregate(result.Value)

	l.logger.Debug("token holdings listed",
		zap.String("owner", owner.String()),
		zap.Int("raw_accounts", len(result.Value)),
		zap.Int("holdings", len(holdings)))

	return holdings, nil
}

// aggregate sums raw per-account balances per mint and drops empty accounts.
// Accounts that fail to parse are skipped, not fatal: a single garbled account
// must not sink the whole listing.
func (l *Lister) aggregate(accounts []*rpc.TokenAccount) []Holding {
	type bucket struct {
		raw      uint64
		decimals uint8
	}
	buckets := make(map[solana.PublicKey]bucket)
	order := make([]solana.PublicKey, 0, len(accounts))

	for _, acct := range accounts {
		// Data is a pointer; GetRawJSON on a nil one would panic.
		if acct == nil || acct.Account.Data == nil {
			continue
		}
		rawJSON := acct.Account.Data.GetRawJSON()
		if rawJSON == nil {
			continue
		}

		var parsed parsedTokenAccount
		if err := json.Unmarshal(rawJSON, &parsed); err != nil {
			l.logger.Debug("skipping unparseable token account",
				zap.String("account", acct.Pubkey.String()),
				zap.Error(err))
			continue
		}

		info := parsed.Parsed.Info
		if info.Mint == "" {
			continue
		}
		mint, err := solana.PublicKeyFromBase58(info.Mint)
		if err != nil {
			continue
		}
		raw, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}

		b, seen := buckets[mint]
		if !seen {
			order = append(order, mint)
			b.decimals = info.TokenAmount.Decimals
		}
		b.raw += raw
		buckets[mint] = b
	}

	holdings := make([]Holding, 0, len(order))
	for _, mint := range order {
		b := buckets[mint]
		ui := float64(b.raw) / math.Pow10(int(b.decimals))
		if ui == 0 {
			continue
		}
		holdings = append(holdings, Holding{
			Mint:      mint,
			RawAmount: b.raw,
			Decimals:  b.decimals,
			UIAmount:  ui,
		})
	}
	return holdings
}
