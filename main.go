package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/trashunter/classifier"
	"github.com/yeremiapane/trashunter/config"
	"github.com/yeremiapane/trashunter/hub"
	"github.com/yeremiapane/trashunter/models"
	"github.com/yeremiapane/trashunter/repository"
	"github.com/yeremiapane/trashunter/router"
	"github.com/yeremiapane/trashunter/services"
	"github.com/yeremiapane/trashunter/storage"
	"github.com/yeremiapane/trashunter/utils"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}

	utils.InitLogger(cfg.Log.Level)
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	if cfg.HTTP.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := autoMigrate(db); err != nil {
		return err
	}

	media, uploadDir, err := newMediaStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := classifier.Options{
		Timeout:   cfg.Classifier.Timeout,
		ImageSize: cfg.Classifier.ImageSize,
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			utils.ErrorLogger.Warnf("Redis unreachable, verdicts will not be cached: %v", err)
		} else {
			opts.Cache = classifier.NewRedisCache(rdb, cfg.Classifier.CacheTTL)
			utils.InfoLogger.Printf("Caching verdicts in redis at %s", cfg.Redis.Addr)
		}
	}

	embedder := classifier.NewHTTPEmbedder(cfg.Classifier.EmbedderURL, &http.Client{})
	cls := classifier.New(embedder, opts)

	events := hub.New()
	hunterRepo := repository.NewHunterRepository(db)

	markerSvc := services.NewMarkerService(
		repository.NewMarkerRepository(db),
		media,
		cls,
		hunterRepo,
		events,
		services.MarkerConfig{
			ProximityRadiusMeters: cfg.Game.ProximityRadiusMeters,
			ReportPoints:          cfg.Game.ReportPoints,
			CleanupPoints:         cfg.Game.CleanupPoints,
		},
	)

	r := router.SetupRouter(router.Deps{
		Markers:        markerSvc,
		Hunters:        services.NewHunterService(hunterRepo),
		Hub:            events,
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	events.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// newMediaStore returns the configured store and, for the local driver, the
// directory the router serves under /uploads.
func newMediaStore(ctx context.Context, cfg *config.Config) (storage.MediaStore, string, error) {
	if cfg.Storage.Driver == "s3" {
		s3Store, err := storage.NewS3(ctx, storage.S3Options{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		}, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		utils.InfoLogger.Printf("Storing uploads in bucket %s", cfg.S3.Bucket)
		return s3Store, "", nil
	}

	local, err := storage.NewLocal(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	utils.InfoLogger.Printf("Storing uploads in %s", local.Dir())
	return local, local.Dir(), nil
}

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Marker{}, &models.Hunter{}); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
