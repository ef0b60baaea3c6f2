package ledger

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of decoded transactions kept by a CachingFetcher.
const DefaultCacheSize = 256

// CachingFetcher keeps recently fetched transactions in an LRU so repeated
// hops into the same transaction (common for V2 backlinks) hit the backend once.
//
// Transactions are immutable once committed, so entries never go stale.
// Misses are not cached.
type CachingFetcher struct {
	next  Fetcher
	cache *lru.Cache
}

var _ Fetcher = (*CachingFetcher)(nil)

func NewCachingFetcher(next Fetcher, size int) (*CachingFetcher, error) {
	if next == nil {
		return nil, fmt.Errorf("ledger: nil fetcher")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachingFetcher{next: next, cache: c}, nil
}

func (c *CachingFetcher) FetchTransaction(ctx context.Context, hash TxHash) (*Transaction, error) {
	if v, ok := c.cache.Get(hash); ok {
		return v.(*Transaction), nil
	}
	tx, err := c.next.FetchTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	c.cache.Add(hash, tx)
	return tx, nil
}

// Len returns the number of cached transactions.
func (c *CachingFetcher) Len() int { return c.cache.Len() }
