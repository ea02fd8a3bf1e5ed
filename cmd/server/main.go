package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendwise-backend-go/internal/api"
	"spendwise-backend-go/internal/config"
	"spendwise-backend-go/internal/core"
	"spendwise-backend-go/internal/db"
	"spendwise-backend-go/internal/middleware"
	"spendwise-backend-go/internal/oauth"
)

func main() {
	// Configuration has to come first so the logger mode can follow it, but
	// config loading itself can only report through the stdlib logger.
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load application configuration: %v", err)
	}

	var zapLogger *zap.Logger
	if appConfig.IsProduction() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("configuration loaded", zap.String("env", appConfig.AppEnv))

	// Firestore bootstrap with a bounded init window.
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	firestoreClient, err := db.NewFirestoreClient(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize Firestore", zap.Error(err))
	}
	defer firestoreClient.Close()

	userRepo := db.NewFirestoreUserRepository(firestoreClient)

	// An empty JWT secret is already rejected by LoadConfig; this guards the
	// token service's own invariant as well.
	tokenService, err := core.NewTokenService(appConfig.JWTSecret)
	if err != nil {
		zapLogger.Fatal("failed to initialize token service", zap.Error(err))
	}
	captchaVerifier := core.NewRecaptchaVerifier(appConfig.RecaptchaSecret, zapLogger)
	authService := core.NewAuthService(userRepo, captchaVerifier, tokenService, zapLogger)

	var exchanger oauth.Exchanger
	if appConfig.GoogleOAuthEnabled() {
		exchanger = oauth.NewGoogleExchanger(appConfig, zapLogger)
		zapLogger.Info("Google OAuth configured", zap.String("callback", appConfig.GoogleCallbackURL))
	}

	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig, zapLogger))

	api.SetupRoutes(router, appConfig, zapLogger, authService, tokenService, exchanger)

	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("server exiting gracefully")
}
