package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pyronotes/server/adapters/blob"
	"github.com/pyronotes/server/adapters/llm"
	"github.com/pyronotes/server/adapters/mongo"
	"github.com/pyronotes/server/adapters/stt"
	"github.com/pyronotes/server/domain/repositories"
	"github.com/pyronotes/server/internal/api"
	"github.com/pyronotes/server/internal/websocket"
	"github.com/pyronotes/server/usecase"
)

func main() {
	// Load .env if present; real deployments use the environment
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// MongoDB connection
	mongoClient, err := mongo.NewClient(logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	lectureRepo := mongo.NewLectureRepository(mongoClient.Database)
	folderRepo := mongo.NewFolderRepository(mongoClient.Database)

	audioStore, err := blob.NewLocalAudioStore(logger)
	if err != nil {
		logger.Fatal("Failed to initialize audio store", zap.Error(err))
	}

	// Provider adapters, with mock fallbacks for local development
	var languageModel repositories.LanguageModel
	if os.Getenv("GEMINI_API_KEY") != "" {
		languageModel, err = llm.NewGemini(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, using mock language model")
		languageModel = llm.NewMockGemini()
	}

	var speechToText repositories.SpeechToText
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		speechToText = stt.NewGoogleSpeechToText(logger)
	} else {
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock speech recognition")
		speechToText = stt.NewMockSpeechToText(logger)
	}

	// Usecase services
	insightService := usecase.NewInsightService(languageModel, logger)
	transcriptionService := usecase.NewTranscriptionService(speechToText, insightService, logger)
	generationService := usecase.NewGenerationService(languageModel, logger)
	liveService := usecase.NewLiveService(insightService, lectureRepo, logger)

	cleanupService := usecase.NewCleanupService(lectureRepo, logger)
	cleanupService.Start()

	// WebSocket hub for live sessions
	hub := websocket.NewHub(liveService, speechToText, logger)
	go hub.Run()

	// API routes
	handler := api.NewHandler(hub, lectureRepo, folderRepo, audioStore, transcriptionService, generationService, logger)
	handler.InitRoutes(e)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")
	cleanupService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := mongoClient.Close(ctx); err != nil {
		logger.Error("Failed to close MongoDB connection", zap.Error(err))
	}

	logger.Info("Server exited")
}
