package main

import (
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"storefront/pkg/infrastructure/redis"
)

// invalidateCommand is run by catalog maintenance after product edits land in the database.
func invalidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "invalidate-products",
		Usage:     "drop cached catalog entries for the given product ids",
		ArgsUsage: "<product-id>...",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.RedisAddress == "" {
				return errors.New("STOREFRONT_REDIS_ADDR is not set")
			}
			ids := c.Args().Slice()
			if len(ids) == 0 {
				return errors.New("at least one product id is required")
			}

			client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddress})
			defer client.Close()
			cache := redis.NewCacheAsideProductRepository(nil, client, cfg.ProductCacheTTL, nil)
			if err := cache.Invalidate(c.Context, ids...); err != nil {
				return err
			}
			log.WithField("products", ids).Info("product cache invalidated")
			return nil
		},
	}
}
