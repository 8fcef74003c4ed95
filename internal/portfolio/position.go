// internal/portfolio/position.go
package portfolio

import (
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rovshanmuradov/solana-portfolio/internal/token"
)

// Position is the merged display record for one mint.
type Position struct {
	Mint        solana.PublicKey
	UIAmount    float64
	AmountText  string
	Decimals    uint8
	Name        string
	Symbol      string
	Image       string
	MetadataURI string
	Attached    bool
	Highlight   bool
}

// ViewOptions filters applied on top of a settled position list.
type ViewOptions struct {
	HideDust    bool
	DustEpsilon float64
	Query       string
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a display amount with grouped thousands, at most six
// fraction digits, trailing zeros trimmed. Derived solely from the amount.
func FormatAmount(amount float64) string {
	s := amountPrinter.Sprintf("%.6f", amount)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "0"
	}
	return s
}

// mergeRecord folds a holding, its on-chain metadata and its off-chain
// document into one Position. On-chain name/symbol win over the off-chain
// document when both are present; the image only ever comes from off-chain.
func mergeRecord(h token.Holding, md token.MetadataRecord, doc token.DisplayDocument) Position {
	p := Position{
		Mint:        h.Mint,
		UIAmount:    h.UIAmount,
		AmountText:  FormatAmount(h.UIAmount),
		Decimals:    h.Decimals,
		MetadataURI: md.URI,
		Attached:    md.Attached,
		Image:       doc.Image,
	}
	p.Name = firstNonEmpty(md.Name, doc.Name)
	p.Symbol = firstNonEmpty(md.Symbol, doc.Symbol)
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sortKey is the tie-break identity: symbol, else name, else mint.
func (p Position) sortKey() string {
	return strings.ToLower(firstNonEmpty(p.Symbol, p.Name, p.Mint.String()))
}

// SortPositions orders by display amount descending, ties broken by
// case-insensitive lexical comparison of the sort key.
func SortPositions(positions []Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		if positions[i].UIAmount != positions[j].UIAmount {
			return positions[i].UIAmount > positions[j].UIAmount
		}
		return positions[i].sortKey() < positions[j].sortKey()
	})
}

// ApplyView filters a settled list by the dust threshold and the free-text
// query. It never mutates its input, so toggling a filter off and on again
// reproduces the same set.
func ApplyView(positions []Position, opts ViewOptions) []Position {
	query := strings.ToLower(strings.TrimSpace(opts.Query))
	out := make([]Position, 0, len(positions))
	for _, p := range positions {
		if opts.HideDust && p.UIAmount < opts.DustEpsilon {
			continue
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesQuery(p Position, query string) bool {
	return strings.Contains(strings.ToLower(p.Mint.String()), query) ||
		strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Symbol), query)
}

// MarkHighlight flags the position matching the given mint for distinct
// rendering. Sort order is untouched.
func MarkHighlight(positions []Position, mint string) {
	if mint == "" {
		return
	}
	for i := range positions {
		positions[i].Highlight = positions[i].Mint.String() == mint
	}
}
