package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTokenAccountClient struct {
	result *rpc.GetTokenAccountsResult
	err    error
}

func (f *fakeTokenAccountClient) GetTokenAccountsByOwner(_ context.Context, _ solana.PublicKey, _ solana.PublicKey) (*rpc.GetTokenAccountsResult, error) {
	return f.result, f.err
}

// tokenAccountsFixture builds a GetTokenAccountsResult through the rpc
// package's own JSON unmarshalling, the same path real responses take.
func tokenAccountsFixture(t *testing.T, accounts ...string) *rpc.GetTokenAccountsResult {
	t.Helper()
	blob := fmt.Sprintf(`{"value": [%s]}`, joinJSON(accounts))
	var out rpc.GetTokenAccountsResult
	require.NoError(t, json.Unmarshal([]byte(blob), &out))
	return &out
}

func joinJSON(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func splAccountJSON(pubkey, mint, amount string, decimals uint8) string {
	return fmt.Sprintf(`{
		"pubkey": %q,
		"account": {
			"lamports": 2039280,
			"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			"data": {
				"program": "spl-token",
				"parsed": {
					"type": "account",
					"info": {
						"mint": %q,
						"owner": "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
						"tokenAmount": {
							"amount": %q,
							"decimals": %d,
							"uiAmountString": ""
						}
					}
				}
			},
			"executable": false,
			"rentEpoch": 361
		}
	}`, pubkey, mint, amount, decimals)
}

var (
	testOwner = solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	mintWSOL  = "So11111111111111111111111111111111111111112"
	mintUSDC  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintBONK  = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	acctKeyA  = "9wFFyRfZBsuAha4YcuxcXLKwMxJR43S7fPfQLusDBzvT"
	acctKeyB  = "2q7pyhPwAwZ3QMfZrnAbDhnh9mDUqycszcpf86VgQxhF"
	acctKeyC  = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

func TestListHoldings_SumsPerMint(t *testing.T) {
	client := &fakeTokenAccountClient{
		result: tokenAccountsFixture(t,
			splAccountJSON(acctKeyA, mintUSDC, "1500000", 6),
			splAccountJSON(acctKeyB, mintUSDC, "2500000", 6),
			splAccountJSON(acctKeyC, mintWSOL, "1000000000", 9),
		),
	}
	lister := NewLister(client, zap.NewNop())

	holdings, err := lister.ListHoldings(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	byMint := make(map[string]Holding)
	for _, h := range holdings {
		byMint[h.Mint.String()] = h
	}

	usdc := byMint[mintUSDC]
	assert.Equal(t, uint64(4000000), usdc.RawAmount, "balances for the same mint must be summed")
	assert.Equal(t, uint8(6), usdc.Decimals)
	assert.InDelta(t, 4.0, usdc.UIAmount, 1e-9)

	sol := byMint[mintWSOL]
	assert.Equal(t, uint64(1000000000), sol.RawAmount)
	assert.InDelta(t, 1.0, sol.UIAmount, 1e-9)
}

func TestListHoldings_ExcludesZeroBalances(t *testing.T) {
	client := &fakeTokenAccountClient{
		result: tokenAccountsFixture(t,
			splAccountJSON(acctKeyA, mintBONK, "0", 5),
			splAccountJSON(acctKeyB, mintUSDC, "42", 6),
		),
	}
	lister := NewLister(client, zap.NewNop())

	holdings, err := lister.ListHoldings(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, mintUSDC, holdings[0].Mint.String())
}

func TestListHoldings_EmptyOwner(t *testing.T) {
	client := &fakeTokenAccountClient{result: tokenAccountsFixture(t)}
	lister := NewLister(client, zap.NewNop())

	holdings, err := lister.ListHoldings(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestListHoldings_TransportFault(t *testing.T) {
	client := &fakeTokenAccountClient{err: errors.New("connection refused")}
	lister := NewLister(client, zap.NewNop())

	holdings, err := lister.ListHoldings(context.Background(), testOwner)
	require.Error(t, err)
	assert.Nil(t, holdings, "no partial results on transport failure")
}

func TestListHoldings_SkipsAccountsWithoutData(t *testing.T) {
	noData := fmt.Sprintf(`{
		"pubkey": %q,
		"account": {
			"lamports": 1,
			"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			"data": null,
			"executable": false,
			"rentEpoch": 361
		}
	}`, acctKeyA)
	client := &fakeTokenAccountClient{
		result: tokenAccountsFixture(t,
			noData,
			splAccountJSON(acctKeyB, mintWSOL, "3", 9),
		),
	}
	lister := NewLister(client, zap.NewNop())

	holdings, err := lister.ListHoldings(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, mintWSOL, holdings[0].Mint.String())
}

func TestListHoldings_SkipsGarbledAccounts(t *testing.T) {
	// An account whose parsed payload lacks the expected shape is skipped,
	// the remaining accounts still come through.
	garbled := fmt.Sprintf(`{
		"pubkey": %q,
		"account": {
			"lamports": 1,
			"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			"data": {"program": "spl-token", "parsed": {"type": "account", "info": {}}},
			"executable": false,
			"rentEpoch": 361
		}
	}`, acctKeyA)
	client := &fakeTokenAccountClient{
		result: tokenAccountsFixture(t,
			garbled,
			splAccountJSON(acctKeyB, mintUSDC, "7", 6),
		),
	}
	lister := NewLister(client, zap.NewNop())

	holdings, err := lister.ListHoldings(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, mintUSDC, holdings[0].Mint.String())
}
