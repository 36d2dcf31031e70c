package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/db"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/metrics"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/repository"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/tools/timecodec"
	"go.uber.org/zap"
)

// RawReading is the wire shape of an ingest payload. Numeric fields stay raw
// until coercion so that clients sending quoted numbers keep working while
// genuinely non-numeric values are rejected instead of silently dropped.
type RawReading struct {
	TS              *string         `json:"ts"`
	TemperatureC    json.RawMessage `json:"temperature_c"`
	HumidityPercent json.RawMessage `json:"humidity_percent"`
	BatteryV        json.RawMessage `json:"battery_v"`
	RSSI            json.RawMessage `json:"rssi"`
	SignalRSSI      json.RawMessage `json:"signal_rssi"`
}

// Result is the outcome reported back to the caller. Created is the sole
// idempotency signal: re-ingesting the same (device_id, ts) is always safe
// and reports Created=false on repeat.
type Result struct {
	DeviceID string
	TS       string
	Created  bool
}

// Service validates and stores individual readings.
type Service struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewService creates a new ingestion service
func NewService(repo *repository.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ParseRaw decodes and validates an ingest payload into a storable reading.
// An absent ts is stamped with the current UTC second; a present one must
// parse and is stored in canonical form regardless of which accepted variant
// the client sent.
func ParseRaw(deviceID string, body []byte) (*db.Reading, error) {
	var raw RawReading
	if err := json.Unmarshal(body, &raw); err != nil {
		// Unreadable bodies behave like empty ones and fail on the
		// missing required field below.
		raw = RawReading{}
	}

	// The required field is reported before a bad timestamp, matching the
	// wire behavior clients already rely on.
	if isAbsent(raw.TemperatureC) {
		return nil, ErrMissingTemperature
	}

	ts := timecodec.Format(timecodec.Now())
	if raw.TS != nil && *raw.TS != "" {
		parsed, err := timecodec.Parse(*raw.TS)
		if err != nil {
			return nil, ErrInvalidTimestamp
		}
		ts = timecodec.Format(parsed)
	}

	temperature, err := coerceFloat(raw.TemperatureC, "temperature_c")
	if err != nil {
		return nil, err
	}

	humidity, err := coerceOptionalFloat(raw.HumidityPercent, "humidity_percent")
	if err != nil {
		return nil, err
	}
	battery, err := coerceOptionalFloat(raw.BatteryV, "battery_v")
	if err != nil {
		return nil, err
	}

	// Legacy clients report signal strength as signal_rssi; when present it
	// takes priority over rssi.
	rawRSSI := raw.SignalRSSI
	if isAbsent(rawRSSI) {
		rawRSSI = raw.RSSI
	}
	rssi, err := coerceOptionalInt(rawRSSI, "rssi")
	if err != nil {
		return nil, err
	}

	return &db.Reading{
		DeviceID:        deviceID,
		TS:              ts,
		TemperatureC:    temperature,
		HumidityPercent: humidity,
		BatteryV:        battery,
		RSSI:            rssi,
	}, nil
}

// Ingest parses the payload and inserts the reading. Duplicate
// (device_id, ts) pairs succeed with Created=false.
func (s *Service) Ingest(ctx context.Context, deviceID string, body []byte) (*Result, error) {
	reading, err := ParseRaw(deviceID, body)
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	created, err := s.repo.Insert(ctx, reading)
	if err != nil {
		s.logger.Error("failed to store reading",
			zap.Error(err),
			zap.String("device_id", deviceID),
			zap.String("ts", reading.TS),
		)
		return nil, fmt.Errorf("failed to store reading: %w", err)
	}

	if created {
		metrics.ReadingsIngested.WithLabelValues(metrics.ResultCreated).Inc()
	} else {
		metrics.ReadingsIngested.WithLabelValues(metrics.ResultDuplicate).Inc()
		s.logger.Debug("duplicate reading ignored",
			zap.String("device_id", deviceID),
			zap.String("ts", reading.TS),
		)
	}

	return &Result{DeviceID: deviceID, TS: reading.TS, Created: created}, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func coerceFloat(raw json.RawMessage, field string) (float64, error) {
	var value float64
	if err := json.Unmarshal(raw, &value); err == nil {
		return value, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if value, err := strconv.ParseFloat(text, 64); err == nil {
			return value, nil
		}
	}

	return 0, &FieldError{Field: field, Kind: "a number"}
}

func coerceOptionalFloat(raw json.RawMessage, field string) (*float64, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	value, err := coerceFloat(raw, field)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func coerceOptionalInt(raw json.RawMessage, field string) (*int64, error) {
	if isAbsent(raw) {
		return nil, nil
	}

	// JSON numbers truncate toward zero; strings must be integral.
	var value float64
	if err := json.Unmarshal(raw, &value); err == nil {
		truncated := int64(value)
		return &truncated, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if value, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &value, nil
		}
	}

	return nil, &FieldError{Field: field, Kind: "an integer"}
}
