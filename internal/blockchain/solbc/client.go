// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Client is a thin adapter over the solana-go RPC client. It only exposes the
// read paths the portfolio flow needs; nothing here mutates chain state.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError reports whether err means the queried account does
// not exist on chain (as opposed to a transport failure).
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// NewClient creates a new client for the given RPC URL.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// GetAccountInfo returns account info at the given address.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetTokenAccountsByOwner returns every token account owned by the given
// wallet for the given token program, jsonParsed encoded.
func (c *Client) GetTokenAccountsByOwner(
	ctx context.Context,
	owner solana.PublicKey,
	program solana.PublicKey,
) (*rpc.GetTokenAccountsResult, error) {
	conf := &rpc.GetTokenAccountsConfig{
		ProgramId: &program,
	}
	opts := &rpc.GetTokenAccountsOpts{
		Encoding: solana.EncodingJSONParsed,
	}
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner, conf, opts)
	if err != nil {
		c.logger.Debug("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetHealth reports whether the RPC node considers itself healthy.
func (c *Client) GetHealth(ctx context.Context) error {
	out, err := c.rpc.GetHealth(ctx)
	if err != nil {
		c.logger.Debug("GetHealth error", zap.Error(err))
		return err
	}
	if out != rpc.HealthOk {
		return errors.New("rpc node unhealthy")
	}
	return nil
}
