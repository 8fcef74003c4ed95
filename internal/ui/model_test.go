package ui

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-portfolio/internal/portfolio"
	"github.com/rovshanmuradov/solana-portfolio/internal/token"
	"github.com/rovshanmuradov/solana-portfolio/internal/utils/logger"
)

var (
	uiMintSOL  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	uiMintBONK = solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
)

func newTestModel() Model {
	owner := solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	return NewModel(nil, []solana.PublicKey{owner}, 1e-6, "", zap.NewNop())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

type stubLister struct{ holdings []token.Holding }

func (s stubLister) ListHoldings(context.Context, solana.PublicKey) ([]token.Holding, error) {
	return s.holdings, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, mint solana.PublicKey) (token.MetadataRecord, error) {
	return token.MetadataRecord{Mint: mint}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) token.DisplayDocument {
	return token.DisplayDocument{}
}

// Replays the runtime's startup sequence end to end: Init's command produces
// a message, Update starts the cycle on the stored model, and the cycle's
// settlement must render rather than be dropped as superseded.
func TestInit_FirstFetchCycleRenders(t *testing.T) {
	agg := portfolio.NewAggregator(
		stubLister{holdings: []token.Holding{
			{Mint: uiMintSOL, RawAmount: 1000000, Decimals: 6, UIAmount: 1.0},
		}},
		stubResolver{},
		stubFetcher{},
		nil,
		2,
		logger.Nop(),
	)
	owner := solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	m := NewModel(agg, []solana.PublicKey{owner}, 1e-6, "", zap.NewNop())

	initCmd := m.Init()
	require.NotNil(t, initCmd)

	next, fetchCmd := m.Update(initCmd())
	m, ok := next.(Model)
	require.True(t, ok)
	require.NotNil(t, fetchCmd, "the request message must start a fetch cycle")
	assert.True(t, m.loading)

	got := update(t, m, fetchCmd())
	require.Len(t, got.visible, 1, "the initial fetch cycle's result must render")
	assert.Equal(t, "1", got.visible[0].AmountText)
	assert.False(t, got.loading)
	assert.NoError(t, got.err)
}

func TestHandlePositions_CurrentGeneration(t *testing.T) {
	m := newTestModel()
	m.generation = 1

	m = update(t, m, positionsMsg{
		generation: 1,
		positions: []portfolio.Position{
			{Mint: uiMintSOL, UIAmount: 1, Symbol: "SOL", AmountText: "1", Attached: true},
		},
	})

	require.Len(t, m.visible, 1)
	assert.Equal(t, "SOL", m.visible[0].Symbol)
	assert.False(t, m.loading)
}

func TestHandlePositions_StaleGenerationIgnored(t *testing.T) {
	m := newTestModel()
	m.generation = 2
	m.positions = []portfolio.Position{{Mint: uiMintSOL, UIAmount: 1, Symbol: "SOL"}}
	m.applyView()

	// A settlement from the abandoned cycle 1 arrives late.
	m = update(t, m, positionsMsg{
		generation: 1,
		positions:  []portfolio.Position{{Mint: uiMintBONK, UIAmount: 9, Symbol: "BONK"}},
	})

	require.Len(t, m.visible, 1)
	assert.Equal(t, "SOL", m.visible[0].Symbol, "stale results must never reach the view")
}

func TestHandlePositions_TransportFaultClearsList(t *testing.T) {
	m := newTestModel()
	m.generation = 1
	m.positions = []portfolio.Position{{Mint: uiMintSOL, UIAmount: 1, Symbol: "SOL"}}
	m.applyView()

	m = update(t, m, positionsMsg{generation: 1, err: errors.New("rpc unavailable")})

	assert.Error(t, m.err)
	assert.Empty(t, m.visible, "the prior list is cleared, not shown next to the error")
}

func TestToggleDust(t *testing.T) {
	m := newTestModel()
	m.generation = 1
	m = update(t, m, positionsMsg{
		generation: 1,
		positions: []portfolio.Position{
			{Mint: uiMintSOL, UIAmount: 1, Symbol: "SOL"},
			{Mint: uiMintBONK, UIAmount: 1e-9, Symbol: "DUST"},
		},
	})
	require.Len(t, m.visible, 1, "dust hidden by default")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	assert.Len(t, m.visible, 2)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	assert.Len(t, m.visible, 1)
}

func TestSearchFiltersRows(t *testing.T) {
	m := newTestModel()
	m.generation = 1
	m = update(t, m, positionsMsg{
		generation: 1,
		positions: []portfolio.Position{
			{Mint: uiMintSOL, UIAmount: 1, Symbol: "SOL", Name: "Wrapped SOL"},
			{Mint: uiMintBONK, UIAmount: 2, Symbol: "BONK", Name: "Bonk"},
		},
	})
	require.Len(t, m.visible, 2)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	assert.True(t, m.searching)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
	require.Len(t, m.visible, 1)
	assert.Equal(t, "BONK", m.visible[0].Symbol)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Len(t, m.visible, 2, "esc clears the query")
}

func TestClipTruncatesByRunes(t *testing.T) {
	name := "Токен с очень длинным именем"

	clipped := clip(name, 10)
	assert.True(t, utf8.ValidString(clipped))
	assert.Equal(t, 10, utf8.RuneCountInString(clipped))

	short := shortKey("ΑΒΓΔΕΖΗΘΙΚΛΜΝΞ")
	assert.True(t, utf8.ValidString(short))

	assert.Equal(t, "short", clip("short", 10), "strings within the limit pass through")
}

func TestHighlightSurvivesViewChanges(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU")
	m := NewModel(nil, []solana.PublicKey{owner}, 1e-6, uiMintBONK.String(), zap.NewNop())
	m.generation = 1

	m = update(t, m, positionsMsg{
		generation: 1,
		positions: []portfolio.Position{
			{Mint: uiMintSOL, UIAmount: 5, Symbol: "SOL"},
			{Mint: uiMintBONK, UIAmount: 1, Symbol: "BONK"},
		},
	})

	require.Len(t, m.visible, 2)
	assert.False(t, m.visible[0].Highlight)
	assert.True(t, m.visible[1].Highlight, "highlight flags the matching mint without reordering")
}
