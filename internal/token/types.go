// internal/token/types.go
package token

import "github.com/gagliardetto/solana-go"

// Holding is one owner+mint pair after summation across raw token accounts.
type Holding struct {
	Mint      solana.PublicKey
	RawAmount uint64
	Decimals  uint8
	UIAmount  float64
}

// MetadataRecord carries the on-chain Metaplex fields for a mint.
// Attached=false means the metadata account does not exist or could not be
// decoded; that is a valid terminal state, not a fault.
type MetadataRecord struct {
	Mint     solana.PublicKey
	Name     string
	Symbol   string
	URI      string
	Attached bool
}

// DisplayDocument is a best-effort parse of the off-chain JSON a metadata URI
// points at. Any field may be empty.
type DisplayDocument struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Image  string `json:"image"`
}

// Empty reports whether the document carries no display data at all.
func (d DisplayDocument) Empty() bool {
	return d.Name == "" && d.Symbol == "" && d.Image == ""
}
