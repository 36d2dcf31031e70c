package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/config"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/ingest"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ingestEnvelope is the bridge message shape: the device identity plus the
// same RawReading JSON the HTTP endpoint accepts.
type ingestEnvelope struct {
	DeviceID string          `json:"device_id"`
	Reading  json.RawMessage `json:"reading"`
}

// Bridge feeds readings from a durable AMQP queue into the same ingestion
// service the HTTP surface uses. Malformed envelopes and client-input errors
// dead-letter; duplicates are normal and acknowledged.
type Bridge struct {
	ingest    *ingest.Service
	publisher *Publisher
	cfg       *config.RabbitMQConfig
	logger    *zap.Logger
}

// NewBridge creates a new ingest bridge
func NewBridge(ingestSvc *ingest.Service, publisher *Publisher, cfg *config.RabbitMQConfig, logger *zap.Logger) *Bridge {
	return &Bridge{
		ingest:    ingestSvc,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// ProcessMessage handles one queued envelope. The returned error decides
// ACK/NACK in the consumer; the core itself never retries.
func (b *Bridge) ProcessMessage(ctx context.Context, body []byte) error {
	msgLogger := logging.WithRequestID(b.logger, uuid.NewString())

	var env ingestEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.DeviceID == "" {
		return fmt.Errorf("envelope missing device_id")
	}

	result, err := b.ingest.Ingest(ctx, env.DeviceID, env.Reading)
	if err != nil {
		return fmt.Errorf("failed to ingest queued reading: %w", err)
	}

	msgLogger.Info("queued reading ingested",
		zap.String("device_id", result.DeviceID),
		zap.String("ts", result.TS),
		zap.Bool("created", result.Created),
	)

	if result.Created && b.publisher != nil {
		event := AcceptedEvent{DeviceID: result.DeviceID, TS: result.TS, Created: true}
		if err := b.publisher.PublishAcceptedEvent(ctx, event, b.cfg.AcceptedRoutingKey); err != nil {
			// The reading is already durable; a lost event is log-worthy
			// but must not dead-letter the message.
			msgLogger.Error("failed to publish accepted event", zap.Error(err))
		}
	}

	return nil
}
