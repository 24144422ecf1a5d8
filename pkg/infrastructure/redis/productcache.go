package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

const (
	DefaultTTL = 5 * time.Minute
	keyPrefix  = "storefront:product:"
)

type cachedProduct struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Active   bool            `json:"active"`
}

// CacheAsideProductRepository serves catalog reads from Redis and falls back to the wrapped
// repository for misses. Redis failures degrade to a direct read, never to an error.
type CacheAsideProductRepository struct {
	model.ProductRepository
	client redis.Cmdable
	ttl    time.Duration
	logger log.FieldLogger
}

func NewCacheAsideProductRepository(next model.ProductRepository, client redis.Cmdable, ttl time.Duration, logger log.FieldLogger) *CacheAsideProductRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &CacheAsideProductRepository{ProductRepository: next, client: client, ttl: ttl, logger: logger}
}

func (r *CacheAsideProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	if len(ids) == 0 {
		return map[string]model.Product{}, nil
	}

	result, missing := r.readCache(ctx, ids)
	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := r.ProductRepository.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range loaded {
		result[id] = p
	}
	r.writeCache(ctx, loaded)
	return result, nil
}

func (r *CacheAsideProductRepository) readCache(ctx context.Context, ids []string) (map[string]model.Product, []string) {
	result := make(map[string]model.Product, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.WithError(err).Warn("product cache read failed")
		return result, ids
	}

	var missing []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var cached cachedProduct
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		result[ids[i]] = model.Product(cached)
	}
	return result, missing
}

func (r *CacheAsideProductRepository) writeCache(ctx context.Context, products map[string]model.Product) {
	if len(products) == 0 {
		return
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, p := range products {
			b, err := json.Marshal(cachedProduct(p))
			if err != nil {
				return errors.Wrapf(err, "encode product %s", id)
			}
			pipe.Set(ctx, keyPrefix+id, b, r.ttl)
		}
		return nil
	})
	if err != nil {
		r.logger.WithError(err).Warn("product cache write failed")
	}
}

// Invalidate drops cached entries so the next read goes to the wrapped repository.
// Catalog edits happen outside this service; the invalidate-products command calls this after them.
func (r *CacheAsideProductRepository) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	return errors.Wrap(r.client.Del(ctx, keys...).Err(), "invalidate products")
}
