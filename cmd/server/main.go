package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinlens/internal/cache"
	"coinlens/internal/config"
	"coinlens/internal/domain"
	"coinlens/internal/handler"
	"coinlens/internal/job"
	"coinlens/internal/provider"
	"coinlens/internal/repository"
	"coinlens/internal/service"
	"coinlens/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "coinlens/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	startPollerFunc        = func(p *job.RefreshPoller, ctx context.Context) { go p.Start(ctx) }
)

// @title           Coinlens API
// @version         1.0
// @description     Multi-source crypto market data reconciliation and chunked price history.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("REDIS_URL", cfg.RedisURL)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	registry := domain.NewRegistry(domain.DefaultCoins())

	coingecko := provider.NewCoinGeckoAdapter(tracer, cfg.CoinGeckoBaseURL)
	binance := provider.NewBinanceAdapter(tracer, cfg.BinanceBaseURL)
	coincap := provider.NewCoinCapAdapter(tracer, cfg.CoinCapBaseURL)
	kraken := provider.NewKrakenAdapter(tracer, cfg.KrakenBaseURL)

	adapters := []provider.SourceAdapter{coingecko, binance, coincap, kraken}
	historySources := []provider.HistorySource{coingecko, binance, coincap}

	historyRepo := repository.NewHistoryRepository(cache.Client, tracer)
	marketService := service.NewMarketService(tracer, registry, adapters, cfg.SourcePriority, cache.Client)
	historyService := service.NewHistoryService(tracer, registry, historySources, historyRepo)

	if cfg.BackfillOnStart {
		go func() {
			statuses := historyService.BackfillAll(ctx, 0, false)
			for _, st := range statuses {
				if st.Status != "ok" {
					log.Printf("startup backfill %s: %s", st.Symbol, st.Error)
				}
			}
		}()
	}

	poller := job.NewRefreshPoller(tracer, registry, marketService, historyService,
		cfg.MarketPollSecs, cfg.HistoryPollSecs, cfg.RefreshWindowDays)
	startPollerFunc(poller, ctx)

	h := handler.New(tracer, registry, marketService, historyService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("coinlens"))

	h.RegisterRoutes(r, cfg.AdminAPIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
