package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"bump_server/config"
	"bump_server/middleware"
	"bump_server/routes"
	"bump_server/services"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Shared exchange store: one client, explicit lifecycle.
	store, err := services.NewRedisExchangeStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer store.Close()

	// Profile store and photo collaborators.
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	dynamoService := &services.DynamoService{Client: services.InitializeDynamoDBClient()}
	photoService := services.NewPhotoService(s3.NewFromConfig(awsCfg), cfg.S3Bucket)
	profileService := services.NewProfileService(dynamoService, photoService, logger)
	geoService := services.NewGeoService(cfg.GeoEndpoint, cfg.GeoTimeout, logger)

	// Exchange services.
	matchStore := services.NewMatchStoreService(store, logger, cfg.MatchTTL)
	engine := services.NewMatchingService(store, matchStore, logger, cfg.MatchWindow, cfg.PendingTTL)
	cleanup := services.NewCleanupService(store, logger)
	hitService := services.NewHitService(profileService, geoService, cleanup, engine, logger)
	qrService := services.NewQRService(matchStore, store, profileService, logger)

	auth := middleware.NewAuthMiddleware(cfg.JWTSecret, logger)

	r := mux.NewRouter()

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	routes.RegisterExchangeRoutes(r, auth, hitService, matchStore, logger)
	routes.RegisterMatchRoutes(r, auth, qrService, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
