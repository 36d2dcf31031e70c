package db

// Reading is a single sensor observation as stored in the readings table.
// The surrogate ID only orders ties between rows sharing a timestamp and is
// never exposed outside the process.
type Reading struct {
	ID              int64
	DeviceID        string
	TS              string
	TemperatureC    float64
	HumidityPercent *float64
	BatteryV        *float64
	RSSI            *int64
}
