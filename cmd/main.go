package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/lessonhub/config"
	"github.com/oksasatya/lessonhub/internal/container"
	"github.com/oksasatya/lessonhub/internal/domain/gateway"
	"github.com/oksasatya/lessonhub/internal/infrastructure/llm"
	pginfra "github.com/oksasatya/lessonhub/internal/infrastructure/postgres"
	"github.com/oksasatya/lessonhub/internal/ratelimit"
	"github.com/oksasatya/lessonhub/internal/router"
	"github.com/oksasatya/lessonhub/pkg/helpers"
	"github.com/oksasatya/lessonhub/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	limiter, closeLimiter := buildLimiter(ctx, cfg, logger)
	defer closeLimiter()

	// GCS
	gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		logger.Fatalf("failed to init GCS client: %v", err)
	}
	defer func() { _ = gcsClient.Close() }()

	publisher, closePublisher := buildPublisher(cfg, logger)
	defer closePublisher()

	var generator gateway.TextGenerator
	if cfg.LLMAPIKey != "" {
		generator = llm.NewGenerator(llm.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		}, logger)
	} else {
		logger.Warn("LLM_API_KEY not set; lesson plan drafting disabled")
	}

	jwtManager := helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)

	c := &container.Container{
		Config:    cfg,
		Logger:    logger,
		DB:        pool,
		Users:     pginfra.NewUserRepository(pool),
		Materials: pginfra.NewMaterialRepository(pool),
		Hasher:    helpers.NewPasswordHasher(),
		JWT:       jwtManager,
		Cookies:   helpers.NewSessionCookie(cfg.CookieDomain, cfg.SecureCookies(), cfg.JWTTTL),
		Limiter:   limiter,
		Storage:   helpers.NewGCSStorage(gcsClient, cfg.GCSBucket),
		Generator: generator,
		Publisher: publisher,
	}

	engine, err := router.New(c)
	if err != nil {
		logger.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// buildLimiter picks the attempt limiter backend. The in-memory limiter gets
// a sweeper bound to ctx.
func buildLimiter(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ratelimit.Limiter, func()) {
	if cfg.RateLimitBackend == "redis" {
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		return ratelimit.NewRedis(rdb, cfg.AuthMaxAttempts, cfg.AuthWindow), func() { _ = rdb.Close() }
	}
	mem := ratelimit.NewMemory(cfg.AuthMaxAttempts, cfg.AuthWindow)
	go mem.Run(ctx, cfg.RateLimitSweep)
	return mem, func() {}
}

// buildPublisher falls back to a no-op publisher so a missing broker never
// blocks account operations.
func buildPublisher(cfg *config.Config, logger *logrus.Logger) (gateway.Publisher, func()) {
	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; notification emails are dropped")
		return helpers.NopPublisher{}, func() {}
	}
	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		helpers.LogError(logger, "rabbitmq unavailable; notification emails are dropped", err, logrus.Fields{"queue": cfg.RabbitMQEmailQueue})
		return helpers.NopPublisher{}, func() {}
	}
	return pub, pub.Close
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
