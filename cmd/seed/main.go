package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/lessonhub/config"
	"github.com/oksasatya/lessonhub/internal/application"
	pginfra "github.com/oksasatya/lessonhub/internal/infrastructure/postgres"
	"github.com/oksasatya/lessonhub/pkg/helpers"
)

// Seeds a demo account through the same service the API uses, so the stored
// hash always comes from the password hasher.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	email := envOr("SEED_EMAIL", "demo@lessonhub.test")
	password := envOr("SEED_PASSWORD", "password123")

	svc := application.NewService(
		pginfra.NewUserRepository(pool),
		helpers.NewPasswordHasher(),
		helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL),
		logger,
	)
	u, _, err := svc.Register(ctx, application.RegisterInput{
		Name:        "Demo Teacher",
		Email:       email,
		Password:    password,
		Institution: "LessonHub Academy",
	})
	if errors.Is(err, application.ErrEmailTaken) {
		helpers.LogInfo(logger, "demo user already present", logrus.Fields{"email": email})
		return
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	helpers.LogInfo(logger, "seeded demo user", logrus.Fields{"id": u.ID, "email": u.Email})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
