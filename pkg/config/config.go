package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const appID = "storefront"

type Config struct {
	HTTPAddress string `envconfig:"http_addr" default:":8080"`
	GRPCAddress string `envconfig:"grpc_addr" default:":9090"`
	LogLevel    string `envconfig:"log_level" default:"info"`

	MySQLHost     string `envconfig:"mysql_host" default:"127.0.0.1"`
	MySQLPort     string `envconfig:"mysql_port" default:"3306"`
	MySQLUser     string `envconfig:"mysql_user" default:"storefront"`
	MySQLPassword string `envconfig:"mysql_password"`
	MySQLDatabase string `envconfig:"mysql_database" default:"storefront"`

	RedisAddress    string        `envconfig:"redis_addr"`
	ProductCacheTTL time.Duration `envconfig:"product_cache_ttl" default:"5m"`

	KafkaBrokers []string `envconfig:"kafka_brokers"`
	KafkaTopic   string   `envconfig:"kafka_topic" default:"order-events"`

	GatewayKeyID     string        `envconfig:"gateway_key_id"`
	GatewayKeySecret string        `envconfig:"gateway_key_secret"`
	GatewayBaseURL   string        `envconfig:"gateway_base_url" default:"https://api.razorpay.com"`
	GatewayTimeout   time.Duration `envconfig:"gateway_timeout" default:"10s"`

	ReturnWindow  time.Duration `envconfig:"return_window" default:"72h"`
	LocalRadiusKm float64       `envconfig:"local_radius_km" default:"50"`
}

// Load reads STOREFRONT_* environment variables.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.ReturnWindow <= 0 {
		return errors.New("STOREFRONT_RETURN_WINDOW must be positive")
	}
	if c.LocalRadiusKm <= 0 {
		return errors.New("STOREFRONT_LOCAL_RADIUS_KM must be positive")
	}
	if (c.GatewayKeyID == "") != (c.GatewayKeySecret == "") {
		return errors.New("STOREFRONT_GATEWAY_KEY_ID and STOREFRONT_GATEWAY_KEY_SECRET must be set together")
	}
	brokers := c.KafkaBrokers[:0]
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
	return nil
}

// GatewayConfigured reports whether online payments can be taken.
func (c *Config) GatewayConfigured() bool {
	return c.GatewayKeyID != "" && c.GatewayKeySecret != ""
}
