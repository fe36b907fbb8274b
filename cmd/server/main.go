package main

import (
	"context"
	"log"
	"os"
	"time"

	"storefront-service/internal/controllers/http"
	"storefront-service/internal/gateway"
	"storefront-service/internal/infra"
	mmysql "storefront-service/internal/infra/mysql"
	"storefront-service/internal/infra/rabbitmq"
	mysqlrepo "storefront-service/internal/repository/mysql"
	"storefront-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	db, err := mmysql.NewMySQLFromEnv()
	if err != nil {
		log.Fatalf("db: connect: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	repo := mysqlrepo.NewOrderRepository(db)

	catalogClient := infra.NewCatalogClient(os.Getenv("CATALOG_SERVICE_URL"), 2*time.Second)

	publisher, err := rabbitmq.NewPublisher(os.Getenv("RABBITMQ_URL"), "order.exchange")
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}
	defer publisher.Close()

	card := gateway.NewCardClient(gateway.CardConfig{
		SecretKey: os.Getenv("CARD_GATEWAY_SECRET"),
		BaseURL:   os.Getenv("CARD_GATEWAY_URL"),
	})
	eft := gateway.NewEFTClient(gateway.EFTConfig{
		SiteCode:   os.Getenv("EFT_SITE_CODE"),
		PrivateKey: os.Getenv("EFT_PRIVATE_KEY"),
		PaymentURL: os.Getenv("EFT_PAYMENT_URL"),
		NotifyURL:  os.Getenv("EFT_NOTIFY_URL"),
		SuccessURL: os.Getenv("EFT_SUCCESS_URL"),
		CancelURL:  os.Getenv("EFT_CANCEL_URL"),
		ErrorURL:   os.Getenv("EFT_ERROR_URL"),
		TestMode:   os.Getenv("EFT_TEST_MODE") == "true",
	})

	reconciler := services.NewReconciler(repo, publisher)
	payments := services.NewPaymentService(repo, card, eft, reconciler)
	orders := services.NewOrderService(repo, catalogClient, publisher)

	var redisClient *redis.Client
	if host := os.Getenv("REDIS_HOST"); host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         host + ":6379",
			DB:           0,
			PoolSize:     100,
			MinIdleConns: 10,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		orders.SetRedisClient(redisClient)

		go func() {
			time.Sleep(5 * time.Second)
			if err := orders.WarmupCatalogCache(context.Background(), []uint64{1, 2}); err != nil {
				log.Printf("Failed to warm up catalog cache: %v", err)
			}
		}()
	}

	handler := http.NewHandler(orders, payments, reconciler, card, eft, redisClient)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting storefront service on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server run: %v", err)
	}
}
