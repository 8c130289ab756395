// @title			StillOpen API
// @version		1.0
// @description	Predicts whether a place is still open, with a confidence and an explanation.
// @BasePath		/
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"stillopen-api/docs"
	"stillopen-api/internal/cache"
	"stillopen-api/internal/classifier"
	"stillopen-api/internal/config"
	"stillopen-api/internal/explain"
	"stillopen-api/internal/features"
	"stillopen-api/internal/handler"
	"stillopen-api/internal/models"
	"stillopen-api/internal/repository"
	"stillopen-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	setupLogger(config.LogLevel, config.LogFormat)

	// Catalog store
	store, err := repository.Open(context.Background(), config.DBDriver, config.DBSource, config.DBPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer store.Close()

	// Engine
	pipeline := features.NewPipeline(features.Options{RecencyHorizonDays: config.PredictRecencyHorizonDays})
	model := loadModel(config.ModelPath, config.ModelRequired, pipeline.Schema())

	var predictionCache *cache.Predictions
	if config.CacheEnabled {
		predictionCache = cache.NewPredictions(config.CacheTTL)
	}

	// Initialize layers
	predictionService := service.NewPredictionService(store, pipeline, model, explain.New(explain.Options{
		MaxItems:     config.ExplainMaxItems,
		MinMagnitude: config.ExplainMinMagnitude,
	}), service.PredictionOptions{
		MaxMissingSignals: config.PredictMaxMissingSignals,
		Cache:             predictionCache,
	})
	searchService := service.NewSearchService(store, predictionService, service.SearchOptions{
		DefaultLimit:        config.SearchDefaultLimit,
		MaxLimit:            config.SearchMaxLimit,
		MinQueryLength:      config.SearchMinQueryLength,
		SimilarityThreshold: config.SearchSimilarityThreshold,
		ProximityWeight:     config.SearchProximityWeight,
		Concurrency:         config.SearchConcurrency,
	})

	placeHandler := handler.NewPlaceHandler(predictionService)
	searchHandler := handler.NewSearchHandler(searchService)
	healthHandler := handler.NewHealthHandler(predictionService, store)

	gin.SetMode(config.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestID(), handler.RequestLogger(), handler.CORS(config.CORSAllowedOrigins))

	r.GET("/health", healthHandler.Health)
	docs.SwaggerInfo.BasePath = "/"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/", handler.RateLimit(config.RateLimitRPS, config.RateLimitBurst), handler.Timeout(config.PredictTimeout))
	api.GET("/search", searchHandler.Search)
	api.GET("/place/:id", placeHandler.GetPlace)

	log.Info().
		Str("address", config.ServerAddress).
		Str("driver", config.DBDriver).
		Str("model_version", predictionService.ModelVersion()).
		Str("schema", predictionService.SchemaFingerprint()).
		Msg("starting server")
	if err := r.Run(config.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// loadModel returns nil when the artifact cannot be read and the model is
// optional; the service then answers UNKNOWN until restarted with one.
func loadModel(path string, required bool, schema features.Schema) service.Classifier {
	model, err := classifier.Load(path, schema)
	if err == nil {
		log.Info().Str("model_version", model.Version()).Str("path", path).Msg("classifier loaded")
		return model
	}
	if errors.Is(err, models.ErrSchemaMismatch) || required {
		log.Fatal().Err(err).Str("path", path).Str("schema", schema.Fingerprint()).Msg("cannot load classifier")
	}
	log.Warn().Err(err).Str("path", path).Msg("classifier unavailable, predictions will be UNKNOWN")
	return nil
}
