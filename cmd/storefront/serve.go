package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"storefront/pkg/config"
	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/gateway"
	"storefront/pkg/infrastructure/kafka"
	"storefront/pkg/infrastructure/mysql"
	"storefront/pkg/infrastructure/redis"
	"storefront/pkg/infrastructure/transport"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the gRPC health endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "http-addr", Usage: "overrides STOREFRONT_HTTP_ADDR"},
			&cli.StringFlag{Name: "grpc-addr", Usage: "overrides STOREFRONT_GRPC_ADDR"},
			&cli.BoolFlag{Name: "migrate", Usage: "apply database migrations before serving"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr := c.String("http-addr"); addr != "" {
				cfg.HTTPAddress = addr
			}
			if addr := c.String("grpc-addr"); addr != "" {
				cfg.GRPCAddress = addr
			}
			return serve(c.Context, cfg, c.Bool("migrate"))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	logger := log.StandardLogger()

	dbCfg := mysqlConfig(cfg)
	db, err := mysql.Connect(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrate {
		if err := mysql.Migrate(db, dbCfg.Database); err != nil {
			return err
		}
	}

	products, closeCache := productRepository(db, cfg, logger)
	defer closeCache()

	dispatcher, closeDispatcher := eventDispatcher(cfg, logger)
	defer closeDispatcher()

	services := buildServices(db, products, dispatcher, cfg, logger)
	router := transport.Router(services, logger)

	httpSrv := &http.Server{Addr: cfg.HTTPAddress, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(appID, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("url", cfg.HTTPAddress).Info("Starting server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddress)
		if err != nil {
			return errors.Wrap(err, "listen grpc")
		}
		logger.WithField("url", cfg.GRPCAddress).Info("Starting health server")
		return errors.Wrap(grpcSrv.Serve(lis), "grpc server")
	})
	g.Go(func() error {
		<-ctx.Done()
		healthSrv.Shutdown()
		grpcSrv.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildServices(db *sqlx.DB, products model.ProductRepository, dispatcher service.EventDispatcher, cfg *config.Config, logger log.FieldLogger) transport.Services {
	orders := mysql.NewOrderRepository(db)
	coupons := mysql.NewCouponRepository(db)
	customers := mysql.NewCustomerRepository(db, nil)

	discounts := service.NewDiscountResolver(coupons, nil)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:       orders,
		Customers:    customers,
		Pricing:      service.NewPricingCalculator(products, discounts),
		Distance:     service.NewDistanceEstimator(cfg.LocalRadiusKm),
		Dispatcher:   dispatcher,
		Logger:       logger,
		ReturnWindow: cfg.ReturnWindow,
	})

	var paymentGateway service.PaymentGateway
	if cfg.GatewayConfigured() {
		paymentGateway = gateway.NewRazorpay(gateway.Config{
			KeyID:   cfg.GatewayKeyID,
			Secret:  cfg.GatewayKeySecret,
			BaseURL: cfg.GatewayBaseURL,
			Timeout: cfg.GatewayTimeout,
		}, nil)
	} else {
		logger.Warn("payment gateway keys are not set, online payments are disabled")
	}
	payments := service.NewPaymentService(orders, paymentGateway, service.PaymentConfig{
		KeyID:   cfg.GatewayKeyID,
		Secret:  cfg.GatewayKeySecret,
		Timeout: cfg.GatewayTimeout,
	}, dispatcher, nil, logger)

	return transport.Services{
		Orders:    orderService,
		Payments:  payments,
		Checkout:  service.NewCheckoutService(orderService, payments),
		Coupons:   service.NewCouponService(coupons, nil),
		Discounts: discounts,
	}
}

// productRepository puts the redis cache in front of the catalog when an address is configured.
func productRepository(db *sqlx.DB, cfg *config.Config, logger log.FieldLogger) (model.ProductRepository, func()) {
	products := mysql.NewProductRepository(db)
	if cfg.RedisAddress == "" {
		return products, func() {}
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddress})
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}
	return redis.NewCacheAsideProductRepository(products, client, cfg.ProductCacheTTL, logger), closeFn
}

func eventDispatcher(cfg *config.Config, logger log.FieldLogger) (service.EventDispatcher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return kafka.LogDispatcher{Logger: logger}, func() {}
	}
	dispatcher := kafka.NewDispatcher(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, logger)
	return dispatcher, func() {
		if err := dispatcher.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka writer")
		}
	}
}

func mysqlConfig(cfg *config.Config) mysql.Config {
	return mysql.Config{
		Host:     cfg.MySQLHost,
		Port:     cfg.MySQLPort,
		User:     cfg.MySQLUser,
		Password: cfg.MySQLPassword,
		Database: cfg.MySQLDatabase,
	}
}
