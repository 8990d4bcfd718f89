package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/qrwave/qrwave/internal"
	"github.com/qrwave/qrwave/internal/config"
	"github.com/qrwave/qrwave/internal/events"
	applog "github.com/qrwave/qrwave/internal/logger"
	"github.com/qrwave/qrwave/internal/store"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
)

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
	st := store.New(db)

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

	q, err := rabbitCH.QueueDeclare(
		cfg.RabbitMQ.ScanQueue,
		true, false, false, false, nil,
	)
	if err != nil {
		slog.Error("Failed to declare queue", "err", err)
		os.Exit(1)
	}

	// Grab up to one batch of messages at a time.
	if err := rabbitCH.Qos(batchSize, 0, false); err != nil {
		slog.Error("Failed to set QoS", "err", err)
		os.Exit(1)
	}

	msgs, err := rabbitCH.Consume(
		q.Name, "", false, false, false, false, nil,
	)
	if err != nil {
		slog.Error("Failed to register consumer", "err", err)
		os.Exit(1)
	}

	slog.Info("Analytics worker started. Waiting for scan events...")

	var forever chan struct{}
	var batch []events.ScanEvent
	var deliveries []amqp091.Delivery

	ticker := time.NewTicker(flushInterval)

	go func() {
		for {
			select {
			case d, ok := <-msgs:
				if !ok {
					slog.Warn("RabbitMQ channel closed")
					return
				}
				var event events.ScanEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					slog.Error("Error decoding scan event. Rejecting.", "err", err)
					// 'false' means don't re-queue
					d.Reject(false)
					continue
				}
				batch = append(batch, event)
				deliveries = append(deliveries, d)

				if len(batch) >= batchSize {
					processBatch(st, batch, deliveries)
					batch, deliveries = nil, nil
					ticker.Reset(flushInterval)
				}

			case <-ticker.C:
				if len(batch) > 0 {
					slog.Info("Timer flush: processing queued scan events", "count", len(batch))
					processBatch(st, batch, deliveries)
					batch, deliveries = nil, nil
				}
			}
		}
	}()

	// Block forever
	<-forever
}

func processBatch(st *store.Store, batch []events.ScanEvent, deliveries []amqp091.Delivery) {
	if len(batch) == 0 {
		return
	}
	slog.Info("Processing scan event batch", "count", len(batch))

	rows := make([]internal.ScanEvent, 0, len(batch))
	for _, event := range batch {
		rows = append(rows, internal.ScanEvent{
			QRCodeID:   event.QRCodeID,
			Country:    event.Country,
			City:       event.City,
			DeviceType: event.DeviceType,
			ScannedAt:  event.Timestamp,
		})
	}

	if err := st.InsertScans(context.Background(), rows); err != nil {
		slog.Error("Failed to persist scan batch. Nacking messages.", "err", err)
		// Re-queue for another try
		nackAll(deliveries)
		return
	}

	ackAll(deliveries)
	slog.Info("Persisted and acked scan events", "count", len(deliveries))
}

func ackAll(deliveries []amqp091.Delivery) {
	for _, d := range deliveries {
		d.Ack(false)
	}
}

func nackAll(deliveries []amqp091.Delivery) {
	for _, d := range deliveries {
		d.Nack(false, true)
	}
}
