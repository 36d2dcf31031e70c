package query

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/db"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/metrics"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/repository"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/tools/timecodec"
	"go.uber.org/zap"
)

// Default row caps applied when the caller supplies none.
const (
	DefaultListLimit      = 120
	DefaultAggregateLimit = 240
)

// CSVHeader is the first line of every export, present even when the store
// is empty.
const CSVHeader = "device_id,ts,temperature_c,humidity_percent,battery_v,rssi"

// ReadingView is a device-scoped projection of a stored reading; the device
// id is dropped since the caller already named it.
type ReadingView struct {
	TS              string   `json:"ts"`
	TemperatureC    float64  `json:"temperature_c"`
	HumidityPercent *float64 `json:"humidity_percent"`
	BatteryV        *float64 `json:"battery_v"`
	RSSI            *int64   `json:"rssi"`
}

// AggregatePoint is one cross-device chart point. EpochMS is derived from TS
// for plotting convenience and is null if the stored value fails to parse.
type AggregatePoint struct {
	TS           string  `json:"ts"`
	EpochMS      *int64  `json:"epoch_ms"`
	TemperatureC float64 `json:"temperature_c"`
	N            int64   `json:"n"`
}

// LatestView is the most recent reading across all devices.
type LatestView struct {
	TS           string  `json:"ts"`
	TemperatureC float64 `json:"temperature_c"`
	DeviceID     string  `json:"device_id"`
}

// Service reads time-ordered series and aggregates back out of the store.
type Service struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewService creates a new query service
func NewService(repo *repository.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ListReadings returns a device's readings ascending by ts. Bounds that fail
// to parse are treated as absent rather than rejected; a non-positive limit
// falls back to the default.
func (s *Service) ListReadings(ctx context.Context, deviceID, since, until string, limit int) ([]ReadingView, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	readings, err := s.repo.SelectRange(ctx, deviceID, normalizeBound(since), normalizeBound(until), limit)
	if err != nil {
		return nil, err
	}

	views := make([]ReadingView, 0, len(readings))
	for _, r := range readings {
		views = append(views, ReadingView{
			TS:              r.TS,
			TemperatureC:    r.TemperatureC,
			HumidityPercent: r.HumidityPercent,
			BatteryV:        r.BatteryV,
			RSSI:            r.RSSI,
		})
	}

	return views, nil
}

// Aggregate returns the most recent cross-device points in ascending
// chronological order.
func (s *Service) Aggregate(ctx context.Context, limit int) ([]AggregatePoint, error) {
	if limit <= 0 {
		limit = DefaultAggregateLimit
	}

	rows, err := s.repo.SelectAggregate(ctx, limit)
	if err != nil {
		return nil, err
	}

	points := make([]AggregatePoint, 0, len(rows))
	for _, row := range rows {
		point := AggregatePoint{
			TS:           row.TS,
			TemperatureC: row.MeanTemperatureC,
			N:            row.N,
		}
		// Store-originated timestamps should always parse; a failure
		// degrades the single point, not the whole response.
		if t, err := timecodec.Parse(row.TS); err == nil {
			ms := t.UnixMilli()
			point.EpochMS = &ms
		} else {
			s.logger.Warn("stored timestamp failed to parse", zap.String("ts", row.TS), zap.Error(err))
		}
		points = append(points, point)
	}

	return points, nil
}

// Latest returns the newest reading across all devices, or nil when the
// store is empty.
func (s *Service) Latest(ctx context.Context) (*LatestView, error) {
	reading, err := s.repo.SelectLatest(ctx)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, nil
	}

	return &LatestView{
		TS:           reading.TS,
		TemperatureC: reading.TemperatureC,
		DeviceID:     reading.DeviceID,
	}, nil
}

// ExportCSV streams the full table to w ascending by ts, one line per
// reading, driven directly off the store cursor. Optional fields render as
// empty strings when absent. Values are numeric or identifier-safe by
// construction, so no quoting is applied.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, CSVHeader+"\n"); err != nil {
		return err
	}

	return s.repo.ScanAllOrdered(ctx, func(r *db.Reading) error {
		line := fmt.Sprintf("%s,%s,%s,%s,%s,%s\n",
			r.DeviceID,
			r.TS,
			formatFloat(r.TemperatureC),
			formatOptionalFloat(r.HumidityPercent),
			formatOptionalFloat(r.BatteryV),
			formatOptionalInt(r.RSSI),
		)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
		metrics.CSVRowsExported.Inc()
		return nil
	})
}

// normalizeBound canonicalizes a user-supplied range bound; anything that
// fails to parse is dropped, by design.
func normalizeBound(s string) string {
	if s == "" {
		return ""
	}
	t, err := timecodec.Parse(s)
	if err != nil {
		return ""
	}
	return timecodec.Format(t)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
