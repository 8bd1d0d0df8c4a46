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

	"github.com/joho/godotenv"
	"github.com/solace-api/internal/config"
	"github.com/solace-api/internal/infrastructure/dynamo"
	"github.com/solace-api/internal/infrastructure/idp"
	jwtinfra "github.com/solace-api/internal/infrastructure/jwt"
	redisinfra "github.com/solace-api/internal/infrastructure/redis"
	"github.com/solace-api/internal/infrastructure/smtp"
	transporthttp "github.com/solace-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Redis backs the distributed rate limiter. A nil client means the
	// limiter fails open, which is the intended degraded mode.
	redisClient := redisinfra.NewClient(cfg)
	limiter := redisinfra.NewSlidingWindowLimiter(redisClient)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// New identity provider adapter (nil until a base URL is configured).
	idpAdapter := idp.NewClient(cfg)

	deps := &transporthttp.Deps{
		UserRepo:    dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		TokenRepo:   dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.VerificationTokens),
		AuditRepo:   dynamo.NewAuditRepo(dynamoClient, cfg.DynamoTables.AuditEvents),
		Mailer:      mailer,
		JWTProvider: jwtProvider,
		Limiter:     limiter,
		IDP:         idpAdapter,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, cutover=%s)", cfg.AppPort, cfg.AppEnv, cfg.CutoverMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
