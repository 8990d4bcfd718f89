package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/qrwave/qrwave/internal/config"
	"github.com/qrwave/qrwave/internal/events"
	applog "github.com/qrwave/qrwave/internal/logger"
	"github.com/qrwave/qrwave/internal/resolve"
	"github.com/qrwave/qrwave/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	applog.InitFromEnv()
	ctx := context.Background()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{Logger: applog.NewGormLogger(cfg.GormLogLevel)})
	if err != nil {
		slog.Error("Unable to connect to database", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "err", err)
		os.Exit(1)
	}

	rabbitConn, err := amqp091.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		slog.Error("Unable to connect to RabbitMQ", "err", err)
		os.Exit(1)
	}
	defer rabbitConn.Close()

	rabbitCH, err := rabbitConn.Channel()
	if err != nil {
		slog.Error("Unable to open RabbitMQ channel", "err", err)
		os.Exit(1)
	}
	defer rabbitCH.Close()

	publisher, err := events.NewRabbitPublisher(rabbitCH, cfg.RabbitMQ.ScanQueue)
	if err != nil {
		slog.Error("Failed to set up scan event publisher", "err", err)
		os.Exit(1)
	}

	resolver := resolve.New(
		store.New(db),
		resolve.NewRedisCache(rdb, cfg.Redis.CacheTTL),
		publisher,
	)

	app := fiber.New()
	app.Use(applog.FiberMiddleware())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/:short_code", handleResolve(resolver))

	slog.Info("Starting redirect service", "addr", cfg.RedirectServiceAddr)
	if err := app.Listen(cfg.RedirectServiceAddr); err != nil {
		slog.Error("Redirect service failed", "err", err)
		os.Exit(1)
	}
}

func handleResolve(resolver *resolve.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := resolver.Resolve(c.Context(), c.Params("short_code"))
		if err != nil {
			slog.Error("Resolve failed", "short_code", c.Params("short_code"), "err", err)
			return sendHTML(c, fiber.StatusInternalServerError,
				"<!DOCTYPE html><html><body><h1>Something went wrong</h1></body></html>")
		}

		switch out.Kind {
		case resolve.OutcomeExpired:
			return sendHTML(c, fiber.StatusGone, resolve.ExpiredPage(out.Status))

		case resolve.OutcomeRedirect:
			visit := resolve.Visit{
				UserAgent: c.Get("User-Agent"),
				Country:   c.Get("CF-IPCountry"),
				City:      c.Get("CF-IPCity"),
			}
			// Background context: the scan event outlives the request and
			// must never delay the redirect.
			go resolver.RecordScan(context.Background(), out.QRCodeID, visit)

			return c.Redirect(out.Location, fiber.StatusFound)

		default:
			return sendHTML(c, fiber.StatusNotFound,
				"<!DOCTYPE html><html><body><h1>QR code not found</h1></body></html>")
		}
	}
}

func sendHTML(c *fiber.Ctx, status int, body string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).SendString(body)
}
