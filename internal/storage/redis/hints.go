// internal/storage/redis/hints.go
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-portfolio/internal/storage"
)

const defaultTTL = 30 * 24 * time.Hour

// HintStore implements storage.HintStore on a Redis hash per mint.
// Entries expire after TTL; that is the whole invalidation policy.
type HintStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(ctx context.Context, addr string, logger *zap.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	logger.Info("redis connection established", zap.String("addr", addr))
	return client, nil
}

func NewHintStore(client *goredis.Client) *HintStore {
	return &HintStore{
		client: client,
		prefix: "hint:",
		ttl:    defaultTTL,
	}
}

func (s *HintStore) key(mint string) string {
	return s.prefix + mint
}

// Get returns the hint for a mint, ok=false on a miss.
func (s *HintStore) Get(ctx context.Context, mint string) (storage.Hint, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(mint)).Result()
	if err != nil {
		return storage.Hint{}, false, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return storage.Hint{}, false, nil
	}

	hint := storage.Hint{
		MetadataJSON: fields["meta"],
		LastSymbol:   fields["symbol"],
	}
	if v, ok := fields["finalized"]; ok {
		hint.Finalized, _ = strconv.ParseBool(v)
	}
	return hint, true, nil
}

// Put overwrites the hint for a mint and refreshes its TTL.
func (s *HintStore) Put(ctx context.Context, mint string, hint storage.Hint) error {
	key := s.key(mint)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"meta", hint.MetadataJSON,
		"finalized", strconv.FormatBool(hint.Finalized),
		"symbol", hint.LastSymbol,
	)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}
