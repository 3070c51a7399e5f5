// Command windassess estimates the wind resource at a site from ERA5
// style NetCDF extracts: hub-height speeds, a fitted Weibull
// distribution, and annual energy production for a chosen turbine.
//
// Assessment parameters are flags; deployment concerns (logging, the
// metrics push gateway, Kafka publishing) come from the environment.
//
// Usage:
//
//	windassess -lat 50.9 -lon 6.6 -turbine nrel-5mw era5-2020-01.nc era5-2020-02.nc
//	windassess -lat 50.9 -lon 6.6 -curve-file v90.csv -hub-height 80 \
//	  -years 2015-2018 -out report.json -series-out hub-speeds.csv merged.bundle
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tailvane/windresource/internal/adapter/bundle"
	"github.com/tailvane/windresource/internal/adapter/kafka"
	"github.com/tailvane/windresource/internal/adapter/netcdf"
	"github.com/tailvane/windresource/internal/adapter/turbine"
	"github.com/tailvane/windresource/internal/config"
	"github.com/tailvane/windresource/internal/domain"
	"github.com/tailvane/windresource/internal/observability"
	"github.com/tailvane/windresource/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("assessment failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	lat := flag.Float64("lat", math.NaN(), "site latitude in degrees north (required)")
	lon := flag.Float64("lon", math.NaN(), "site longitude in degrees east (required)")
	years := flag.String("years", "", "calendar years to assess, e.g. 2018 or 2015-2020 (default all)")
	turbineName := flag.String("turbine", "nrel-5mw", "builtin reference turbine: "+strings.Join(turbine.BuiltinNames(), ", "))
	curveFile := flag.String("curve-file", "", "power curve CSV overriding -turbine (needs -hub-height)")
	hubHeight := flag.Float64("hub-height", 0, "hub height in metres (default the turbine's)")
	alpha := flag.Float64("alpha", domain.DefaultShearExponent, "shear exponent used when only one measurement height is available")
	resolution := flag.Float64("resolution", 0, "AEP integration step in m/s (default 0.05)")
	out := flag.String("out", "", "report JSON output path (default stdout)")
	seriesOut := flag.String("series-out", "", "optional hub-height time series CSV output path")
	saveBundle := flag.String("save-bundle", "", "optional path to save the merged dataset for reuse")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 || math.IsNaN(*lat) || math.IsNaN(*lon) {
		flag.Usage()
		return fmt.Errorf("missing required inputs: -lat, -lon and at least one data file")
	}

	startYear, endYear, err := parseYears(*years)
	if err != nil {
		return err
	}
	trb, err := resolveTurbine(*turbineName, *curveFile, *hubHeight)
	if err != nil {
		return err
	}

	params := pipeline.Params{
		Site:          domain.Location{Lat: *lat, Lon: *lon},
		StartYear:     startYear,
		EndYear:       endYear,
		HubHeight:     trb.HubHeight,
		Curve:         trb.Curve,
		FallbackShear: *alpha,
		AEPResolution: *resolution,
	}

	var sink pipeline.ReportSink
	if cfg.PublishEnabled() {
		pub := kafka.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		sink = pub
		logger.Info("report publishing enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(datasetReader(paths, logger), sink, logger, metrics)

	result, err := p.Run(ctx, paths, params)
	if err != nil {
		return err
	}

	if *saveBundle != "" {
		if err := bundle.Save(*saveBundle, result.Dataset); err != nil {
			return fmt.Errorf("save bundle: %w", err)
		}
		logger.Info("dataset bundle written", "path", *saveBundle)
	}
	if *seriesOut != "" {
		if err := writeSeries(*seriesOut, result); err != nil {
			return fmt.Errorf("write series: %w", err)
		}
		logger.Info("hub-height series written", "path", *seriesOut, "samples", result.HubSpeed.Len())
	}
	if err := writeReport(*out, result.Report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.PushEnabled() {
		if err := observability.PushToGateway(cfg.PushgatewayURL, result.Report.RunID, cfg.PushTimeout); err != nil {
			logger.Error("metrics push failed", "gateway", cfg.PushgatewayURL, "error", err)
		}
	}
	return nil
}

// parseYears accepts a single year or an inclusive start-end range.
// Empty selects the dataset's full span.
func parseYears(s string) (start, end int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}
	start, err = strconv.Atoi(lo)
	if err == nil {
		end, err = strconv.Atoi(hi)
	}
	if err != nil || start == 0 || end == 0 {
		return 0, 0, fmt.Errorf("%w: bad -years %q, want a year or a start-end range", domain.ErrConfiguration, s)
	}
	return start, end, nil
}

func resolveTurbine(name, curveFile string, hubHeight float64) (turbine.Turbine, error) {
	if curveFile != "" {
		if hubHeight <= 0 {
			return turbine.Turbine{}, fmt.Errorf("%w: -hub-height is required with -curve-file", domain.ErrConfiguration)
		}
		curve, err := turbine.LoadCSV(curveFile)
		if err != nil {
			return turbine.Turbine{}, err
		}
		return turbine.Turbine{Curve: curve, HubHeight: hubHeight}, nil
	}
	trb, err := turbine.Builtin(name)
	if err != nil {
		return turbine.Turbine{}, err
	}
	if hubHeight > 0 {
		trb.HubHeight = hubHeight
	}
	return trb, nil
}

// datasetReader picks the source adapter from the input extension: a
// single .bundle file loads a saved snapshot, everything else goes
// through the NetCDF reader.
func datasetReader(paths []string, logger *slog.Logger) pipeline.DatasetReader {
	if len(paths) == 1 && filepath.Ext(paths[0]) == ".bundle" {
		return bundle.NewReader(logger)
	}
	return netcdf.NewReader(logger)
}

func writeReport(path string, report *pipeline.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// writeSeries exports the hub-height series as CSV. Missing samples
// stay visible as NaN values.
func writeSeries(path string, res *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "speed_ms", "direction_deg"}); err != nil {
		f.Close()
		return err
	}
	for i, ts := range res.HubSpeed.Times {
		row := []string{
			ts.UTC().Format(time.RFC3339),
			formatSample(res.HubSpeed.Values[i]),
			formatSample(res.Direction.Values[i]),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatSample(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
