//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/tailvane/windresource/internal/adapter/kafka"
	"github.com/tailvane/windresource/internal/adapter/netcdf"
	"github.com/tailvane/windresource/internal/adapter/turbine"
	"github.com/tailvane/windresource/internal/config"
	"github.com/tailvane/windresource/internal/domain"
	"github.com/tailvane/windresource/internal/observability"
	"github.com/tailvane/windresource/internal/pipeline"
)

const reportTopic = "assessment-reports"

// startKafka launches a single-node Kafka broker in a container and
// returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("windresource-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(broker string) *config.Config {
	return &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   reportTopic,
		KafkaTimeout: 30 * time.Second,
	}
}

// windDataset builds a uniform 2x2 grid with hourly u/v components at
// the given heights. Speeds at height h scale by (h/100)^0.2 so the
// shear exponent between any two heights is exactly 0.2.
func windDataset(t0 time.Time, n int, heights ...float64) *domain.Dataset {
	lats := []float64{51.0, 50.75}
	lons := []float64{6.5, 6.75}
	times := make([]time.Time, n)
	for i := range times {
		times[i] = t0.Add(time.Duration(i) * time.Hour)
	}

	ds := &domain.Dataset{Fields: map[string]*domain.Field{}}
	for _, h := range heights {
		ratio := math.Pow(h/100.0, 0.2)
		uVals := make([]float64, 0, n*len(lats)*len(lons))
		vVals := make([]float64, 0, n*len(lats)*len(lons))
		for i := 0; i < n; i++ {
			spd := (4 + 2*math.Sin(float64(i)/3) + 0.3*float64(i%5)) * ratio
			rad := float64((i*37)%360) * math.Pi / 180
			u := -spd * math.Sin(rad)
			v := -spd * math.Cos(rad)
			for range len(lats) * len(lons) {
				uVals = append(uVals, u)
				vVals = append(vVals, v)
			}
		}
		uName := fmt.Sprintf("u%g", h)
		vName := fmt.Sprintf("v%g", h)
		ds.Fields[uName] = &domain.Field{Name: uName, Height: h, Times: times, Lats: lats, Lons: lons, Values: uVals}
		ds.Fields[vName] = &domain.Field{Name: vName, Height: h, Times: times, Lats: lats, Lons: lons, Values: vVals}
	}
	return ds
}

// readReport consumes a single message from the report topic and
// deserializes it.
func readReport(ctx context.Context, t *testing.T, broker string) (kafkago.Message, pipeline.Report) {
	t.Helper()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       reportTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")

	var report pipeline.Report
	require.NoError(t, json.Unmarshal(msg.Value, &report), "unmarshal report message")
	return msg, report
}

// TestPublisherRoundTrip verifies the adapter layer: a report published
// through kafka.Publisher arrives keyed by run ID with its headers intact.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, reportTopic)

	pub := kafka.NewPublisher(testConfig(broker), discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	sent := &pipeline.Report{
		RunID:        "74a1b2c3d4e5f607",
		GeneratedAt:  time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC),
		Site:         domain.Location{Lat: 50.9, Lon: 6.6},
		SourceHeight: 100,
		HubHeight:    90,
		Turbine:      "nrel-5mw",
		AEP:          []pipeline.AEPEstimate{{Method: pipeline.AEPMethodWeibull, MWh: 12345.6}},
	}
	require.NoError(t, pub.Publish(ctx, sent))

	msg, got := readReport(ctx, t, broker)
	assert.Equal(t, []byte(sent.RunID), msg.Key)
	assert.Equal(t, sent.RunID, got.RunID)
	assert.Equal(t, sent.Site, got.Site)
	assert.Equal(t, sent.HubHeight, got.HubHeight)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "nrel-5mw", headers["turbine"])
	gen, err := time.Parse(time.RFC3339, headers["generated_at"])
	require.NoError(t, err, "generated_at should be valid RFC3339")
	assert.True(t, gen.Equal(sent.GeneratedAt), "generated_at header should match the report")
}

// TestAssessmentEndToEnd runs the whole chain with real parts: NetCDF
// files on disk, the file reader, the pipeline, and the Kafka sink.
func TestAssessmentEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, reportTopic)

	// Two input files covering consecutive days, listed newest first to
	// exercise the merge ordering.
	dir := t.TempDir()
	day1 := filepath.Join(dir, "era5-2020-06-01.nc")
	day2 := filepath.Join(dir, "era5-2020-06-02.nc")
	t0 := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, netcdf.WriteDataset(day1, windDataset(t0, 24, 10, 100)))
	require.NoError(t, netcdf.WriteDataset(day2, windDataset(t0.Add(24*time.Hour), 24, 10, 100)))

	trb, err := turbine.Builtin("nrel-5mw")
	require.NoError(t, err)

	pub := kafka.NewPublisher(testConfig(broker), discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	p := pipeline.New(netcdf.NewReader(discardLogger()), pub, discardLogger(), observability.NewMetricsForTesting())

	params := pipeline.Params{
		Site:          domain.Location{Lat: 50.9, Lon: 6.6},
		HubHeight:     trb.HubHeight,
		Curve:         trb.Curve,
		FallbackShear: domain.DefaultShearExponent,
	}
	result, err := p.Run(ctx, []string{day2, day1}, params)
	require.NoError(t, err)

	msg, got := readReport(ctx, t, broker)
	assert.Equal(t, []byte(result.Report.RunID), msg.Key)
	assert.Equal(t, result.Report.RunID, got.RunID)
	assert.Equal(t, 48, got.Samples)
	assert.Equal(t, 100.0, got.SourceHeight)
	assert.Equal(t, pipeline.MethodShear, got.ExtrapolationMethod)
	assert.Equal(t, "nrel-5mw", got.Turbine)
	require.Len(t, got.AEP, 2)
	for _, est := range got.AEP {
		assert.Greater(t, est.MWh, 0.0, est.Method)
	}
	assert.InDelta(t, result.Report.Weibull.Shape, got.Weibull.Shape, 1e-9)
	assert.InDelta(t, result.Report.Weibull.Scale, got.Weibull.Scale, 1e-9)
}
