package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/roadsafety/backend/internal/delivery/http"
	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/internal/events"
	"github.com/roadsafety/backend/internal/metrics"
	"github.com/roadsafety/backend/internal/repository/catalog"
	"github.com/roadsafety/backend/internal/repository/postgres"
	"github.com/roadsafety/backend/internal/service"
	"github.com/roadsafety/backend/pkg/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()
	appLog := newLogger(cfg.Env)

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = p.Ping(ctx)
		}
		if err != nil {
			if p != nil {
				p.Close()
			}
			appLog.Warn("could not connect to database, running with in-memory stores", slog.Any("error", err))
		} else {
			pool = p
			defer pool.Close()
			appLog.Info("connected to PostgreSQL")
		}
	}

	// Dependency Injection: Repositories
	var (
		accidents       http.AccidentRepository
		hotspots        domain.HotspotStore
		countermeasures domain.CountermeasureStore
		projects        domain.ProjectStore
		health          domain.HealthChecker
		roads           service.StaticRoadClassifier
	)
	if pool != nil {
		repo := postgres.NewPostgresRepository(pool)
		accidents, hotspots, countermeasures, projects, health = repo.Accidents, repo.Hotspots, repo.Countermeasures, repo.Projects, repo
		if cfg.CostModel == "advanced" {
			classes, err := repo.RoadClassifications(ctx)
			if err != nil {
				appLog.Warn("failed to load road classifications", slog.Any("error", err))
			}
			roads = classes
		}
	} else {
		repo := postgres.NewMockRepository()
		accidents, hotspots, countermeasures, projects, health = repo.Accidents, repo.Hotspots, repo.Countermeasures, repo.Projects, repo
	}

	// Countermeasure catalog seeding
	if cfg.CatalogPath != "" {
		items, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to load countermeasure catalog: %v", err)
		}
		for _, c := range items {
			if err := countermeasures.Save(ctx, c); err != nil {
				log.Fatalf("Failed to seed countermeasure %s: %v", c.ID, err)
			}
		}
		appLog.Info("countermeasure catalog loaded", slog.Int("count", len(items)), slog.String("path", cfg.CatalogPath))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Event dispatch
	var dispatcher service.EventDispatcher = events.NewLogDispatcher(appLog)
	if len(cfg.KafkaBrokers) > 0 {
		kd := events.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.HotspotTopic, m, appLog)
		defer kd.Close()
		dispatcher = kd
	}

	// Dependency Injection: Services
	var costs service.CostModel = service.NewSimpleCostModel()
	if cfg.CostModel == "advanced" {
		costs = service.NewAdvancedCostModel(roads, nil, service.DefaultOverhead)
	}
	ids := service.UUIDAllocator{}
	spf := service.NewSPFBridge(cfg.SPFServiceURL, cfg.BaselinePerYear)
	hotspotSvc := service.NewHotspotService(hotspots, ids, dispatcher, m, appLog)
	screeningSvc := service.NewScreeningService(accidents, hotspots, costs, spf, hotspotSvc, m, appLog)
	countermeasureSvc := service.NewCountermeasureService(countermeasures, hotspots, ids, cfg.CacheTTL, m, appLog)
	projectSvc := service.NewProjectService(projects, hotspots, countermeasures, ids, appLog)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "RoadSafety API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, http.Services{
		Screening:       screeningSvc,
		Hotspots:        hotspotSvc,
		Countermeasures: countermeasureSvc,
		Projects:        projectSvc,
		Accidents:       accidents,
		Health:          []domain.HealthChecker{health, spf},
	}, registry)

	// Graceful shutdown
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		appLog.Info("server starting", slog.String("port", port), slog.String("cost_model", cfg.CostModel))
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		appLog.Error("server forced to shutdown", slog.Any("error", err))
	}
	appLog.Info("server exited gracefully")
}

type Config struct {
	DatabaseURL     string
	SPFServiceURL   string
	BaselinePerYear float64
	KafkaBrokers    []string
	HotspotTopic    string
	CatalogPath     string
	CostModel       string
	CacheTTL        time.Duration
	Port            string
	Env             string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SPFServiceURL:   getEnv("SPF_SERVICE_URL", ""),
		BaselinePerYear: getEnvFloat("SPF_BASELINE_PER_YEAR", service.DefaultBaselinePerYear),
		KafkaBrokers:    utils.SplitList(getEnv("KAFKA_BROKERS", "")),
		HotspotTopic:    getEnv("KAFKA_HOTSPOT_TOPIC", "roadsafety.hotspots"),
		CatalogPath:     getEnv("COUNTERMEASURE_CATALOG", ""),
		CostModel:       strings.ToLower(getEnv("COST_MODEL", "simple")),
		CacheTTL:        getEnvDuration("CACHE_TTL", service.DefaultCatalogTTL),
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("GO_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func newLogger(env string) *slog.Logger {
	level := slog.LevelDebug
	if env == "production" {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
