package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/IvoireMarket/shop-api/internal/audit"
	"github.com/IvoireMarket/shop-api/internal/cache"
	"github.com/IvoireMarket/shop-api/internal/config"
	dbpkg "github.com/IvoireMarket/shop-api/internal/db"
	"github.com/IvoireMarket/shop-api/internal/events"
	"github.com/IvoireMarket/shop-api/internal/mailer"
	"github.com/IvoireMarket/shop-api/internal/middleware"
	"github.com/IvoireMarket/shop-api/internal/routes"
	"github.com/IvoireMarket/shop-api/internal/storage"
)

func main() {

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	db := dbpkg.NewDB(cfg)

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	cc := cache.New(cfg)
	defer cc.Close()

	auditDispatcher := audit.NewDispatcher(audit.New(db))
	defer auditDispatcher.Close()

	var producer events.Producer = events.NopProducer{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("failed to connect kafka: %v", err)
		}
		producer = p
	}
	defer producer.Close()

	var store storage.Store
	if cfg.S3Endpoint != "" {
		store = storage.NewS3Store(cfg)
	}

	r := gin.Default()

	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.RegisterRoutes(r, db, cfg, routes.Deps{
		Cache:    cc,
		Producer: producer,
		Store:    store,
		Mailer:   mailer.New(cfg),
		Audit:    auditDispatcher,
	})

	log.Printf("Server running on %s", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
