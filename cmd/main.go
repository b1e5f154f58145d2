package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/luis-domingues/taskly/internal/config"
	"github.com/luis-domingues/taskly/internal/events"
	"github.com/luis-domingues/taskly/internal/handler"
	"github.com/luis-domingues/taskly/internal/middleware"
	redisClient "github.com/luis-domingues/taskly/internal/redis"
	"github.com/luis-domingues/taskly/internal/repository"
	"github.com/luis-domingues/taskly/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, using environment")
	}
	cfg := config.Load()

	// Database connection (write store)
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping database")
	}

	if err := runMigrations(db, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis connection (read model store + event streaming)
	redis, err := redisClient.NewClient(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redis.Close()

	// --- wiring ---
	publisher := events.NewPublisher(redis.Client)

	userRepo := repository.NewUserRepository(db)
	readRepo := repository.NewUserReadRepository(db, redis.Client)

	userSvc := service.NewUserService(userRepo, readRepo, publisher)
	userHandler := handler.NewUserHandler(userSvc, userSvc)

	// Setup router
	router := gin.Default()

	v1 := router.Group("/v1/users")
	{
		v1.POST("", userHandler.Register)
		v1.POST("/login", userHandler.Login)
		v1.GET("", userHandler.Search)
		v1.GET("/:userId", middleware.IdentityMiddleware(userSvc), userHandler.GetUser)
		v1.PATCH("/:userId", middleware.IdentityMiddleware(userSvc), userHandler.Update)
		v1.DELETE("/:userId", middleware.IdentityMiddleware(userSvc), userHandler.Delete)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Each instance runs its own consumer group so every instance observes
	// every lifecycle event and keeps its view cache coherent.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "local"
		}
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "user-cache-" + hostname,
			Consumer: "user-consumer-1",
			Stream:   events.UserEventsStream,
			Handler:  cacheSyncHandler(readRepo),
		})
		if err := subscriber.Start(ctx); err != nil {
			logger.Info().Err(err).Msg("subscriber stopped")
		}
	}()

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info().Msg("shutting down")
		cancel()
	}()

	logger.Info().Str("port", cfg.Server.Port).Msg("user service starting")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}

// cacheSyncHandler drops the cached view of any user another instance
// updated or deleted. The next point lookup re-warms from PostgreSQL.
func cacheSyncHandler(readRepo *repository.UserReadRepository) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		switch event.Type {
		case events.UserUpdated, events.UserDeleted:
			dataBytes, err := json.Marshal(event.Data)
			if err != nil {
				return fmt.Errorf("failed to marshal %s event data: %w", event.Type, err)
			}
			var data struct {
				UserID string `json:"userId"`
			}
			if err := json.Unmarshal(dataBytes, &data); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", event.Type, err)
			}
			readRepo.InvalidateUserView(ctx, data.UserID)
		}
		return nil
	}
}

func runMigrations(db *sql.DB, sourceURL string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration init error: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
