package main

import (
	"os"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/w1xm/lisat_interface/events"
	"github.com/w1xm/lisat_interface/internal/logging"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	log := logging.Logger()
	if err := logging.Setup(getenv("LISAT_LOG_LEVEL", "info"), getenv("LISAT_LOG_FORMAT", "console")); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}
	log = logging.Logger()

	// Create client
	client := influxdb2.NewClient(getenv("INFLUX_SERVER", "http://localhost:9999"), os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	// Get non-blocking write client
	writeApi := client.WriteApi(getenv("INFLUX_ORG", "lisat"), getenv("INFLUX_BUCKET", "tilt.raw"))
	defer writeApi.Close()
	go func() {
		for err := range writeApi.Errors() {
			log.Warn().Err(err).Msg("write error")
		}
	}()

	url := getenv("LISAT_ADDRESS", "ws://localhost:8502/api/ws")
	for {
		if err := logData(url, writeApi); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("websocket")
		}
		time.Sleep(1 * time.Second)
	}
}

type sample struct {
	measurement string
	tags        map[string]string
	fields      map[string]interface{}
	ts          time.Time
}

// angleSample converts a confirmed tilt event into a sample. Other events
// are not recorded.
func angleSample(ev events.Event) (sample, bool) {
	if ev.Type != events.TypeAngle || ev.Angle == nil {
		return sample{}, false
	}
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var tags map[string]string
	if ev.Device != "" {
		tags = map[string]string{"device": ev.Device}
	}
	return sample{
		measurement: "tilt.angle",
		tags:        tags,
		fields:      map[string]interface{}{"angle": *ev.Angle},
		ts:          ts,
	}, true
}

func logData(url string, writeApi api.WriteApi) error {
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		// The first message is a snapshot; it decodes with an unknown type.
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		s, ok := angleSample(ev)
		if !ok {
			continue
		}
		// write asynchronously
		writeApi.WritePoint(influxdb2.NewPoint(s.measurement, s.tags, s.fields, s.ts))
	}
}
