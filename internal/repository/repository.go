package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/db"
)

// Repository handles database operations against the readings table.
type Repository struct {
	handle *sql.DB
}

// NewRepository creates a new repository
func NewRepository(handle *sql.DB) *Repository {
	return &Repository{handle: handle}
}

// EnsureSchema creates the readings table and its indexes. Idempotent; run
// once at startup before any read or write is issued.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			temperature_c REAL NOT NULL,
			humidity_percent REAL,
			battery_v REAL,
			rssi INTEGER,
			UNIQUE (device_id, ts)
		);
		CREATE INDEX IF NOT EXISTS idx_readings_device_ts ON readings(device_id, ts);
	`

	if _, err := r.handle.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure readings schema: %w", err)
	}
	return nil
}

// Insert stores a reading unless the (device_id, ts) pair already exists.
// The returned flag reports whether a new row was actually added; a
// duplicate pair is a silent no-op, never an overwrite and never an error.
func (r *Repository) Insert(ctx context.Context, reading *db.Reading) (bool, error) {
	query := `
		INSERT OR IGNORE INTO readings (device_id, ts, temperature_c, humidity_percent, battery_v, rssi)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := r.handle.ExecContext(ctx, query,
		reading.DeviceID,
		reading.TS,
		reading.TemperatureC,
		reading.HumidityPercent,
		reading.BatteryV,
		reading.RSSI,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert reading: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected == 1, nil
}

// SelectRange returns a device's readings ordered by ts ascending, bounded
// inclusively by since/until when non-empty. Bounds are canonical timestamp
// strings; lexical comparison matches chronological order.
func (r *Repository) SelectRange(ctx context.Context, deviceID, since, until string, limit int) ([]db.Reading, error) {
	query := `
		SELECT id, device_id, ts, temperature_c, humidity_percent, battery_v, rssi
		FROM readings
		WHERE device_id = ?
	`
	args := []any{deviceID}

	if since != "" {
		query += " AND ts >= ?"
		args = append(args, since)
	}
	if until != "" {
		query += " AND ts <= ?"
		args = append(args, until)
	}
	query += " ORDER BY ts ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.handle.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings range: %w", err)
	}
	defer rows.Close()

	var readings []db.Reading
	for rows.Next() {
		var reading db.Reading
		if err := scanReading(rows, &reading); err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return readings, nil
}

// AggregateRow is one cross-device point: all readings sharing an exact
// timestamp, collapsed to their mean temperature and contributor count.
type AggregateRow struct {
	TS               string
	MeanTemperatureC float64
	N                int64
}

// SelectAggregate groups all devices' readings by exact ts value and returns
// the most recent limit distinct timestamps in ascending chronological order.
func (r *Repository) SelectAggregate(ctx context.Context, limit int) ([]AggregateRow, error) {
	query := `
		SELECT ts, AVG(temperature_c), COUNT(*)
		FROM readings
		GROUP BY ts
		ORDER BY ts DESC
		LIMIT ?
	`

	rows, err := r.handle.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregate: %w", err)
	}
	defer rows.Close()

	var points []AggregateRow
	for rows.Next() {
		var point AggregateRow
		if err := rows.Scan(&point.TS, &point.MeanTemperatureC, &point.N); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	// Query fetched newest-first to apply the limit; callers chart oldest-first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

// SelectLatest returns the single reading with the greatest ts across all
// devices, ties broken by insertion order. Returns nil on an empty store.
func (r *Repository) SelectLatest(ctx context.Context) (*db.Reading, error) {
	query := `
		SELECT id, device_id, ts, temperature_c, humidity_percent, battery_v, rssi
		FROM readings
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`

	var reading db.Reading
	row := r.handle.QueryRowContext(ctx, query)
	err := row.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.TS,
		&reading.TemperatureC,
		&reading.HumidityPercent,
		&reading.BatteryV,
		&reading.RSSI,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}

	return &reading, nil
}

// ScanAllOrdered walks the whole table ordered by ts ascending, invoking fn
// once per reading. Rows are streamed off the cursor one at a time so bulk
// export never materializes the full table in memory.
func (r *Repository) ScanAllOrdered(ctx context.Context, fn func(*db.Reading) error) error {
	query := `
		SELECT id, device_id, ts, temperature_c, humidity_percent, battery_v, rssi
		FROM readings
		ORDER BY ts ASC
	`

	rows, err := r.handle.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query all readings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reading db.Reading
		if err := scanReading(rows, &reading); err != nil {
			return err
		}
		if err := fn(&reading); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}

	return nil
}

func scanReading(rows *sql.Rows, reading *db.Reading) error {
	err := rows.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.TS,
		&reading.TemperatureC,
		&reading.HumidityPercent,
		&reading.BatteryV,
		&reading.RSSI,
	)
	if err != nil {
		return fmt.Errorf("failed to scan reading: %w", err)
	}
	return nil
}
