package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/qrwave/qrwave/internal"
	"github.com/qrwave/qrwave/internal/auth"
	"github.com/qrwave/qrwave/internal/billing"
	"github.com/qrwave/qrwave/internal/config"
	applog "github.com/qrwave/qrwave/internal/logger"
	"github.com/qrwave/qrwave/internal/store"
)

// apiStore is the slice of the persistence layer the handlers touch.
type apiStore interface {
	Create(ctx context.Context, qr *internal.QRCode) error
	FindOwned(ctx context.Context, id, ownerID string) (*internal.QRCode, error)
	TotalScans(ctx context.Context, qrCodeID string) (int64, error)
	DailyCounts(ctx context.Context, qrCodeID string, since time.Time) ([]internal.ScanDailyCount, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	applog.InitFromEnv()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{Logger: applog.NewGormLogger(cfg.GormLogLevel)})
	if err != nil {
		slog.Error("Unable to connect to database", "err", err)
		os.Exit(1)
	}

	slog.Info("Running GORM auto-migration")
	if err := db.AutoMigrate(&internal.QRCode{}, &internal.ScanEvent{}, &internal.ScanDailyCount{}); err != nil {
		slog.Error("Failed to auto-migrate database", "err", err)
		os.Exit(1)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		slog.Error("Failed to set up identity verification", "err", err)
		os.Exit(1)
	}

	st := store.New(db)
	orders := billing.NewService(st, billing.NewStripeProvider(cfg.Billing.StripeSecretKey), billing.Config{
		AmountMinor:   cfg.Billing.OrderAmountMinor,
		Currency:      cfg.Billing.OrderCurrency,
		PaidThreshold: cfg.Lifecycle.PaidThreshold(),
	})

	app := fiber.New()
	app.Use(applog.FiberMiddleware())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", auth.Middleware(verifier))
	api.Post("/qrcodes", handleCreateQR(cfg, st))
	api.Post("/orders", handleCreateOrder(orders))
	api.Get("/qrcodes/:id/stats", handleStats(st))

	slog.Info("Starting API service", "addr", cfg.APIServiceAddr)
	if err := app.Listen(cfg.APIServiceAddr); err != nil {
		slog.Error("API service failed", "err", err)
		os.Exit(1)
	}
}

func handleCreateQR(cfg *config.Config, st apiStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			DestinationURL string `json:"destination_url"`
			Kind           string `json:"kind"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.DestinationURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "destination_url is required"})
		}
		if req.Kind == "" {
			req.Kind = internal.KindDynamic
		}
		if req.Kind != internal.KindStatic && req.Kind != internal.KindDynamic {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind must be static or dynamic"})
		}

		shortCode, err := internal.NewShortCode()
		if err != nil {
			slog.Error("Failed to generate short code", "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create QR code"})
		}

		qr := internal.QRCode{
			ID:             uuid.NewString(),
			OwnerID:        auth.UserID(c),
			ShortCode:      shortCode,
			DestinationURL: req.DestinationURL,
			Kind:           req.Kind,
			Status:         internal.StatusActive,
		}
		// Dynamic codes start on the trial window; static codes never
		// pass through the resolver and carry no expiry.
		if qr.Kind == internal.KindDynamic {
			expires := time.Now().Add(cfg.Lifecycle.TrialWindow())
			qr.ExpiresAt = &expires
		}

		if err := st.Create(c.Context(), &qr); err != nil {
			slog.Error("Failed to create QR code", "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create QR code"})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":         qr.ID,
			"short_code": qr.ShortCode,
			"short_url":  fmt.Sprintf("%s/%s", cfg.AppDomain, qr.ShortCode),
			"kind":       qr.Kind,
			"status":     qr.Status,
			"expires_at": qr.ExpiresAt,
		})
	}
}

func handleCreateOrder(orders *billing.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			QRCodeID string `json:"qr_code_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if req.QRCodeID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "qr_code_id is required"})
		}

		ref, err := orders.CreateUpgradeOrder(c.Context(), auth.UserID(c), req.QRCodeID)
		switch {
		case errors.Is(err, billing.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "QR code not found or you don't have access"})
		case errors.Is(err, billing.ErrAlreadyUpgraded):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "This QR code is already upgraded to Pro"})
		case err != nil:
			slog.Error("Failed to create upgrade order", "qr_code_id", req.QRCodeID, "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create order"})
		}

		return c.JSON(ref)
	}
}

func handleStats(st apiStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		qr, err := st.FindOwned(c.Context(), c.Params("id"), auth.UserID(c))
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "QR code not found or you don't have access"})
		} else if err != nil {
			slog.Error("Failed to load QR code", "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load stats"})
		}

		total, err := st.TotalScans(c.Context(), qr.ID)
		if err != nil {
			slog.Error("Failed to load scan totals", "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load stats"})
		}

		daily, err := st.DailyCounts(c.Context(), qr.ID, time.Now().AddDate(0, 0, -30))
		if err != nil {
			slog.Error("Failed to load daily counts", "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load stats"})
		}

		type day struct {
			Day   string `json:"day"`
			Scans int64  `json:"scans"`
		}
		days := make([]day, 0, len(daily))
		for _, d := range daily {
			days = append(days, day{Day: d.Day.Format("2006-01-02"), Scans: d.ScanCount})
		}

		return c.JSON(fiber.Map{
			"qr_code_id":  qr.ID,
			"short_code":  qr.ShortCode,
			"status":      qr.Status,
			"total_scans": total,
			"daily":       days,
		})
	}
}
