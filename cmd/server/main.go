package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bajo3/Meli-test/config"
	"github.com/bajo3/Meli-test/internal/api"
	"github.com/bajo3/Meli-test/internal/auth"
	"github.com/bajo3/Meli-test/internal/broker"
	"github.com/bajo3/Meli-test/internal/catalog"
	"github.com/bajo3/Meli-test/internal/gateway"
	"github.com/bajo3/Meli-test/internal/models"
	"github.com/bajo3/Meli-test/internal/service"
	"github.com/bajo3/Meli-test/internal/store"
	"github.com/bajo3/Meli-test/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting listing service")

	tp, err := util.InitTracer("listing-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	var tokens auth.TokenProvider
	if cfg.Redis.Addr != "" {
		redisTokens, err := auth.NewRedisTokenProvider(
			cfg.Redis.Addr,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.TokenKey,
			time.Duration(cfg.Redis.TokenCacheTTL)*time.Second,
		)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisTokens.Close()
		tokens = redisTokens
		log.Println("Redis token provider connected")
	} else {
		tokens = auth.NewStaticTokenProvider(cfg.Meli.AccessToken)
	}

	gw := gateway.New(cfg.Meli.BaseURL, tokens, time.Duration(cfg.Meli.TimeoutSeconds)*time.Second)
	fetcher := catalog.NewFetcher(gw)
	quotas := catalog.NewQuotaResolver(gw)
	listings := store.NewListingStore()

	var producer *broker.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicListing)
		defer producer.Close()
		log.Println("Kafka producer initialized")
	}
	eventPublisher := broker.NewListingEventPublisher(producer)

	listingService := service.NewListingService(
		gw, fetcher, quotas, listings, eventPublisher,
		cfg.Meli.UserID, cfg.Meli.SearchPageSize,
	)
	defaultLocation := models.Location{
		City:    models.Place{Name: cfg.Relist.DefaultCity},
		State:   models.Place{Name: cfg.Relist.DefaultState},
		Country: models.Place{Name: cfg.Relist.DefaultCountry},
	}
	relistOrchestrator := service.NewRelistOrchestrator(gw, listingService, eventPublisher, defaultLocation)

	ctx := context.Background()
	if _, err := listingService.LoadListings(ctx); err != nil {
		log.Printf("Initial listing load failed: %v", err)
	}
	if _, err := listingService.ReloadQuota(ctx); err != nil {
		log.Printf("Initial quota load failed: %v", err)
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(listingService, relistOrchestrator)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
