package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-client/internal/api"
	"github.com/angelmondragon/storefront-client/internal/cart"
	"github.com/angelmondragon/storefront-client/internal/paywidget"
	"github.com/angelmondragon/storefront-client/internal/session"
	"github.com/angelmondragon/storefront-client/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/angelmondragon/storefront-client/pkg/redis"
)

const serviceName = "storefront"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	apiMetrics := metrics.NewAPIMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	if cfg.Metrics.Enabled() {
		server := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
			}
		}()
		defer func() {
			if err := server.Close(); err != nil {
				logg.Error(context.Background(), "error closing metrics server", err)
			}
		}()
	}

	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithUserAgent(cfg.API.UserAgent),
		api.WithLogger(logg),
		api.WithMetrics(apiMetrics),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create api client", err)
		os.Exit(1)
	}

	var store session.Store = session.NewMemoryStore()
	if cfg.Session.Backend == config.SessionBackendRedis {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		if store, err = session.NewRedisStore(redisClient, cfg.Session.TTL); err != nil {
			logg.Error(context.Background(), "failed to create session store", err)
			os.Exit(1)
		}
	}

	widget, err := paywidget.NewBrowserWidget(paywidget.WidgetParams{
		Loader:       paywidget.NewLoader(cfg.Payment.ScriptURL, &http.Client{Timeout: cfg.API.Timeout}),
		Logger:       logg,
		Launcher:     printLauncher(os.Stdout),
		CallbackAddr: cfg.Payment.CallbackAddr,
		Timeout:      cfg.Payment.Timeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment widget", err)
		os.Exit(1)
	}

	auth, err := session.NewAuthenticator(session.AuthParams{
		Client: client,
		Store:  store,
		Logger: logg,
		Options: session.Options{
			CatalogPageSize: cfg.Catalog.PageSize,
			SellerPageSize:  cfg.Catalog.SellerPageSize,
			OrdersPageSize:  cfg.Orders.PageSize,
			Rates:           &cart.Rates{Discount: cfg.Pricing.DiscountRate, Tax: cfg.Pricing.TaxRate},
			StoreName:       cfg.Payment.StoreName,
			ThemeColor:      cfg.Payment.ThemeColor,
			Widget:          widget,
			CheckoutMetrics: checkoutMetrics,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create authenticator", err)
		os.Exit(1)
	}

	app, err := NewApp(AppParams{Auth: auth, Logger: logg, Stdout: os.Stdout, Stdin: os.Stdin})
	if err != nil {
		logg.Error(context.Background(), "failed to create cli", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"sessionBackend": cfg.Session.Backend,
	})

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, context.Canceled) {
			logg.Debug(logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "command failed")
		}
		_, _ = fmt.Fprintln(os.Stderr, pkgerrors.UserMessage(err))
		stop()
		os.Exit(1)
	}
}
