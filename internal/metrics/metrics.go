package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest result labels.
const (
	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
)

// ReadingsIngested counts ingest attempts by outcome.
var ReadingsIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "datalog_readings_ingested_total",
		Help: "Number of reading ingest attempts by result (created, duplicate, rejected).",
	},
	[]string{"result"},
)

// CSVRowsExported counts rows streamed out through the CSV export.
var CSVRowsExported = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "datalog_csv_rows_exported_total",
		Help: "Number of reading rows written to CSV exports.",
	},
)
