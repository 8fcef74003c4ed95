// internal/token/offchain.go
package token

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ipfsScheme = "ipfs://"

	// maxDocumentSize caps how much of a remote document we are willing to
	// read; display metadata documents are tiny.
	maxDocumentSize = 1 << 20
)

// Fetcher retrieves the off-chain JSON document a metadata URI points at.
// Any transport or parse failure yields an empty DisplayDocument; the caller
// renders "no image/name" as a normal state.
type Fetcher struct {
	gateway    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewFetcher(gateway string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		gateway:    strings.TrimRight(gateway, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("offchain-fetcher"),
	}
}

// NormalizeURI rewrites a content-addressed URI to a fetchable transport URL:
// ipfs://X becomes <gateway>/ipfs/X, http(s) URIs pass through unchanged.
// ok=false means the URI uses a scheme we cannot fetch.
func (f *Fetcher) NormalizeURI(uri string) (string, bool) {
	uri = strings.TrimSpace(uri)
	switch {
	case strings.HasPrefix(uri, ipfsScheme):
		return f.gateway + "/ipfs/" + strings.TrimPrefix(uri, ipfsScheme), true
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		return uri, true
	default:
		return "", false
	}
}

// Fetch retrieves and parses the document at uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) DisplayDocument {
	var doc DisplayDocument

	target, ok := f.NormalizeURI(uri)
	if !ok {
		f.logger.Debug("unfetchable metadata URI", zap.String("uri", uri))
		return doc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		f.logger.Debug("failed to build document request",
			zap.String("url", target),
			zap.Error(err))
		return doc
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("document fetch failed",
			zap.String("url", target),
			zap.Error(err))
		return doc
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug("document fetch returned non-OK status",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode))
		return doc
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		f.logger.Debug("document body read failed",
			zap.String("url", target),
			zap.Error(err))
		return doc
	}

	if err := json.Unmarshal(body, &doc); err != nil {
		f.logger.Debug("document is not valid JSON",
			zap.String("url", target),
			zap.Error(err))
		return DisplayDocument{}
	}

	doc.Name = trimPadding(doc.Name)
	doc.Symbol = trimPadding(doc.Symbol)
	return doc
}
