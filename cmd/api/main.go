package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/srgjo27/floor_ledger/internal/adapter/handler"
	"github.com/srgjo27/floor_ledger/internal/adapter/notifier"
	"github.com/srgjo27/floor_ledger/internal/adapter/repository/postgres"
	"github.com/srgjo27/floor_ledger/internal/core/ports"
	"github.com/srgjo27/floor_ledger/internal/core/services"
	"github.com/srgjo27/floor_ledger/internal/core/state"
	"github.com/srgjo27/floor_ledger/internal/platform/database"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	dbConfig := database.Config{
		Host:     getenv("DB_HOST", "localhost"),
		Port:     getenv("DB_PORT", "5432"),
		User:     getenv("DB_USER", "postgres"),
		Password: getenv("DB_PASSWORD", ""),
		DBName:   getenv("DB_NAME", "floor_ledger"),
	}

	db, err := database.NewPostgresDB(dbConfig, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to db after retries: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	defer db.Close()

	redisAddr := fmt.Sprintf("%s:%s", getenv("REDIS_HOST", "localhost"), getenv("REDIS_PORT", "6379"))
	logger.Infof("Connecting to Redis at %s...", redisAddr)

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   0,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	logger.Info("Redis connected successfully")

	var publisher ports.EventPublisher
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		mq, err := notifier.NewRabbitMQNotifier(url)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer mq.Close()
		publisher = mq
		logger.Info("RabbitMQ connected successfully")
	} else {
		logger.Info("RABBITMQ_URL not set, ledger events will not be published")
	}

	if err := database.EnsureSchema(context.Background(), db); err != nil {
		logger.Fatalf("Failed to ensure schema: %v", err)
	}

	tableRepo := postgres.NewTableRepository(db)
	orderRepo := postgres.NewOrderRepository(db)

	ledger := state.NewLedger()
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSeed()

	tables, err := tableRepo.LoadTables(seedCtx)
	if err != nil {
		logger.Fatalf("Failed to load table snapshots: %v", err)
	}
	orders, err := orderRepo.LoadOrders(seedCtx)
	if err != nil {
		logger.Fatalf("Failed to load order snapshots: %v", err)
	}
	ledger.Seed(tables, orders)
	logger.Infof("Ledger seeded with %d tables and %d orders", len(tables), len(orders))

	floorService := services.NewFloorService(ledger, tableRepo, redisClient, logger)
	orderService := services.NewOrderService(ledger, orderRepo, tableRepo, redisClient, publisher, logger)
	workflowService := services.NewWorkflowService(ledger, orderRepo, tableRepo, redisClient, publisher, logger)

	floorHandler := handler.NewFloorHandler(floorService)
	orderHandler := handler.NewOrderHandler(orderService, workflowService)

	mux := http.NewServeMux()

	mux.HandleFunc("/tables", floorHandler.Tables)
	mux.HandleFunc("/tables/resize", floorHandler.ResizeTable)
	mux.HandleFunc("/tables/override", floorHandler.TableOverride)
	mux.HandleFunc("/chairs/status", floorHandler.SetChairStatus)

	mux.HandleFunc("/orders", orderHandler.Orders)
	mux.HandleFunc("/orders/items", orderHandler.AddItem)
	mux.HandleFunc("/orders/items/quantity", orderHandler.UpdateItemQuantity)
	mux.HandleFunc("/orders/items/remove", orderHandler.RemoveItem)
	mux.HandleFunc("/orders/items/status", orderHandler.UpdateItemStatus)
	mux.HandleFunc("/orders/adjust", orderHandler.Adjust)
	mux.HandleFunc("/orders/transition", orderHandler.Transition)
	mux.HandleFunc("/orders/attach", orderHandler.Attach)
	mux.HandleFunc("/orders/hold", orderHandler.Hold)
	mux.HandleFunc("/orders/resume", orderHandler.Resume)
	mux.HandleFunc("/orders/split", orderHandler.Split)
	mux.HandleFunc("/orders/merge", orderHandler.Merge)
	mux.HandleFunc("/orders/archive", orderHandler.Archive)

	addr := getenv("ADDR", ":8080")
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server startup failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exiting")
}
