package mq_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/config"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/db"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/ingest"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/mq"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/repository"
	"go.uber.org/zap"
)

func newTestBridge(t *testing.T) (*mq.Bridge, *repository.Repository) {
	t.Helper()

	handle, err := db.Open(filepath.Join(t.TempDir(), "datalog.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	repo := repository.NewRepository(handle)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	logger := zap.NewNop()
	svc := ingest.NewService(repo, logger)
	return mq.NewBridge(svc, nil, &config.RabbitMQConfig{}, logger), repo
}

func TestProcessMessage_StoresReading(t *testing.T) {
	bridge, repo := newTestBridge(t)
	ctx := context.Background()

	body := []byte(`{"device_id":"dev-1","reading":{"ts":"2025-08-11T16:20:00Z","temperature_c":24.7}}`)
	if err := bridge.ProcessMessage(ctx, body); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	rows, err := repo.SelectRange(ctx, "dev-1", "", "", 10)
	if err != nil {
		t.Fatalf("SelectRange failed: %v", err)
	}
	if len(rows) != 1 || rows[0].TemperatureC != 24.7 {
		t.Errorf("Expected one stored reading, got %v", rows)
	}
}

func TestProcessMessage_DuplicateIsAcknowledged(t *testing.T) {
	bridge, _ := newTestBridge(t)
	ctx := context.Background()

	body := []byte(`{"device_id":"dev-1","reading":{"ts":"2025-08-11T16:20:00Z","temperature_c":24.7}}`)
	if err := bridge.ProcessMessage(ctx, body); err != nil {
		t.Fatalf("First ProcessMessage failed: %v", err)
	}
	if err := bridge.ProcessMessage(ctx, body); err != nil {
		t.Errorf("Expected duplicate message to succeed, got %v", err)
	}
}

func TestProcessMessage_MissingDeviceID(t *testing.T) {
	bridge, _ := newTestBridge(t)

	body := []byte(`{"reading":{"temperature_c":24.7}}`)
	if err := bridge.ProcessMessage(context.Background(), body); err == nil {
		t.Error("Expected error for envelope without device_id")
	}
}

func TestProcessMessage_ClientErrorDeadLetters(t *testing.T) {
	bridge, repo := newTestBridge(t)
	ctx := context.Background()

	body := []byte(`{"device_id":"dev-1","reading":{"humidity_percent":50}}`)
	if err := bridge.ProcessMessage(ctx, body); err == nil {
		t.Fatal("Expected error for payload missing temperature")
	}

	latest, err := repo.SelectLatest(ctx)
	if err != nil {
		t.Fatalf("SelectLatest failed: %v", err)
	}
	if latest != nil {
		t.Errorf("Expected store untouched after rejected message, got %v", latest)
	}
}
