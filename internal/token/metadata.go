// internal/token/metadata.go
package token

import (
	"context"
	"strings"

	bin "github.com/gagliardetto/binary"
	tokenmetadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-portfolio/internal/blockchain/solbc"
)

// MetadataProgramID is the Metaplex Token Metadata program.
const MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

var metadataProgramID = solana.MustPublicKeyFromBase58(MetadataProgramID)

// AccountInfoClient is the slice of the RPC surface the resolver needs.
type AccountInfoClient interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// Resolver resolves the on-chain Metaplex metadata record for a mint.
//
// Every account-shape problem (missing account, wrong owner, undecodable
// bytes) degrades to Attached=false. The only error Resolve returns is a
// cancelled context, so a superseded fetch cycle can stop early.
type Resolver struct {
	client AccountInfoClient
	logger *zap.Logger
}

func NewResolver(client AccountInfoClient, logger *zap.Logger) *Resolver {
	return &Resolver{
		client: client,
		logger: logger.Named("metadata-resolver"),
	}
}

// MetadataAddress derives the metadata PDA for a mint from the fixed seeds
// ("metadata", program id, mint).
func MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			metadataProgramID.Bytes(),
			mint.Bytes(),
		},
		metadataProgramID,
	)
	return pda, err
}

// Resolve returns the MetadataRecord for the given mint.
func (r *Resolver) Resolve(ctx context.Context, mint solana.PublicKey) (MetadataRecord, error) {
	record := MetadataRecord{Mint: mint}

	pda, err := MetadataAddress(mint)
	if err != nil {
		// Derivation only fails for pathological seeds; treat as not attached.
		r.logger.Debug("metadata PDA derivation failed",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return record, nil
	}

	info, err := r.client.GetAccountInfo(ctx, pda)
	if err != nil {
		if ctx.Err() != nil {
			return record, ctx.Err()
		}
		if !solbc.IsAccountNotFoundError(err) {
			r.logger.Debug("metadata account fetch failed",
				zap.String("mint", mint.String()),
				zap.Error(err))
		}
		return record, nil
	}
	if info == nil || info.Value == nil {
		return record, nil
	}
	if !info.Value.Owner.Equals(metadataProgramID) {
		r.logger.Debug("metadata account has unexpected owner",
			zap.String("mint", mint.String()),
			zap.String("owner", info.Value.Owner.String()))
		return record, nil
	}

	data := info.Value.Data.GetBinary()
	if len(data) == 0 {
		return record, nil
	}

	var meta tokenmetadata.Metadata
	if err := bin.NewBorshDecoder(data).Decode(&meta); err != nil {
		r.logger.Debug("metadata account decode failed",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return record, nil
	}

	// On-chain strings are fixed-width, null padded.
	record.Name = trimPadding(meta.Data.Name)
	record.Symbol = trimPadding(meta.Data.Symbol)
	record.URI = trimPadding(meta.Data.Uri)
	record.Attached = true
	return record, nil
}

func trimPadding(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
