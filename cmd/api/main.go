package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vidyalay/pariksha-api/internal/config"
	"github.com/vidyalay/pariksha-api/internal/database"
	"github.com/vidyalay/pariksha-api/internal/handler"
	"github.com/vidyalay/pariksha-api/internal/middleware"
	"github.com/vidyalay/pariksha-api/internal/models"
	"github.com/vidyalay/pariksha-api/internal/repository"
	"github.com/vidyalay/pariksha-api/internal/router"
	"github.com/vidyalay/pariksha-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Department{},
		&models.SubDepartment{},
		&models.Batch{},
		&models.Student{},
		&models.Exam{},
		&models.ExamMarkRecord{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentDirectory := repository.NewStudentDirectory(db)
	academicRepo := repository.NewAcademicRepository(db)
	examRepo := repository.NewExamRepository(db)
	markStore := repository.NewMarkStore(db)

	events := service.NewExamEventPublisher(redisClient, natsConn, cfg.EventSubject, logger)
	resolver := service.NewScopeResolver(studentDirectory, academicRepo, redisClient, cfg.ScopeCacheTTL, logger)
	examService := service.NewExamService(examRepo, resolver, events, validate, logger)
	marksEngine := service.NewMarksEngine(examRepo, markStore, resolver, events, validate, logger)

	examHandler := handler.NewExamHandler(examService, logger)
	markHandler := handler.NewMarkHandler(marksEngine, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExamHandler:   examHandler,
		MarkHandler:   markHandler,
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
