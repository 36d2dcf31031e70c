// Simulator posts synthetic DHT11-style readings to the ingest endpoint at a
// fixed interval, standing in for a real ESP32 device.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/logging"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/tools/timecodec"
	"github.com/go-resty/resty/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type payload struct {
	TS              string  `json:"ts"`
	TemperatureC    float64 `json:"temperature_c"`
	HumidityPercent int     `json:"humidity_percent"`
}

// randomWalk nudges prev by at most step, clamped to [low, high].
func randomWalk(prev, step, low, high float64) float64 {
	value := prev + (rand.Float64()*2-1)*step
	return math.Max(low, math.Min(high, value))
}

func main() {
	deviceID := flag.String("device-id", "ESP32_SIM", "device identifier to report as")
	api := flag.String("api", "http://127.0.0.1:8080", "base URL of the datalog API")
	interval := flag.Int("interval", 60, "seconds between readings")
	token := flag.String("token", "", "bearer token (optional)")
	printOnly := flag.Bool("print-only", false, "log payloads without posting")
	flag.Parse()

	logger, err := logging.NewLogger("datalog-simulator")
	if err != nil {
		fmt.Println("failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	if *token != "" {
		client.SetAuthToken(*token)
	}

	endpoint := fmt.Sprintf("%s/api/v1/devices/%s/readings", *api, *deviceID)
	logger.Info("simulating device",
		zap.String("device_id", *deviceID),
		zap.String("endpoint", endpoint),
		zap.Int("interval_s", *interval),
	)

	temperature := 26.0
	humidity := 55.0

	post := func() {
		temperature = randomWalk(temperature, 0.3, 20.0, 32.0)
		humidity = randomWalk(humidity, 1.0, 30.0, 80.0)

		body := payload{
			TS:              timecodec.Format(timecodec.Now()),
			TemperatureC:    math.Round(temperature*10) / 10,
			HumidityPercent: int(math.Round(humidity)),
		}
		logger.Info("payload",
			zap.String("ts", body.TS),
			zap.Float64("temperature_c", body.TemperatureC),
			zap.Int("humidity_percent", body.HumidityPercent),
		)

		if *printOnly {
			return
		}

		resp, err := client.R().SetBody(body).Post(endpoint)
		if err != nil {
			logger.Error("post failed", zap.Error(err))
			return
		}
		logger.Info("posted reading",
			zap.Int("status", resp.StatusCode()),
			zap.String("response", resp.String()),
		)
	}

	post()

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %ds", *interval), post); err != nil {
		logger.Fatal("failed to schedule simulator", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	logger.Info("simulator stopped")
}
