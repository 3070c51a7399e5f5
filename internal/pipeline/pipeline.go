package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tailvane/windresource/internal/domain"
	"github.com/tailvane/windresource/internal/observability"
)

// DatasetReader loads gridded wind fields from input files and merges
// them into a single dataset.
type DatasetReader interface {
	ReadDataset(ctx context.Context, paths []string) (*domain.Dataset, error)
}

// ReportSink delivers a finished assessment report, e.g. to a Kafka
// topic. Publish is called at most once per run.
type ReportSink interface {
	Publish(ctx context.Context, report *Report) error
}

var validate = validator.New()

// Params are the inputs of one assessment run. They arrive as explicit
// values from command-line flags; nothing here is read from process
// environment or global state.
type Params struct {
	Site      domain.Location
	StartYear int `validate:"omitempty,gte=1800,lte=2200"` // 0 disables year subsetting
	EndYear   int `validate:"omitempty,gte=1800,lte=2200"`

	HubHeight float64 `validate:"gt=0"` // metres above ground
	Curve     domain.PowerCurve

	// FallbackShear is the power-law exponent applied when the dataset
	// carries only one measurement height.
	FallbackShear float64 `validate:"gt=0"`

	// AEPResolution is the integration step in m/s; 0 selects the default.
	AEPResolution float64 `validate:"gte=0"`
}

// Validate checks the parameter constraints, including the cross-field
// ones struct tags cannot express.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid parameters: %v: %w", err, domain.ErrConfiguration)
	}
	if (p.StartYear == 0) != (p.EndYear == 0) {
		return fmt.Errorf("year range needs both start and end: %w", domain.ErrConfiguration)
	}
	if p.StartYear != 0 && p.EndYear < p.StartYear {
		return fmt.Errorf("year range %d-%d is inverted: %w", p.StartYear, p.EndYear, domain.ErrConfiguration)
	}
	return p.Curve.Validate()
}

// SubsetRequested reports whether a year range was given.
func (p Params) SubsetRequested() bool { return p.StartYear != 0 || p.EndYear != 0 }

// Extrapolation method names as they appear in reports.
const (
	MethodNone       = "none"
	MethodShear      = "shear"
	MethodFixedAlpha = "fixed-alpha"
)

// Pipeline orchestrates one assessment run: load, subset, extract,
// derive, extrapolate, fit, and energy estimation, in that order.
type Pipeline struct {
	reader  DatasetReader
	sink    ReportSink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline. sink may be nil when reports are not
// published anywhere.
func New(reader DatasetReader, sink ReportSink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{reader: reader, sink: sink, logger: logger, metrics: metrics}
}

// Run executes one complete assessment and returns the result. Any
// stage error aborts the run; there are no partial results.
func (p *Pipeline) Run(ctx context.Context, paths []string, params Params) (*Result, error) {
	started := domain.Now()
	res, err := p.run(ctx, paths, params)
	p.metrics.RunDuration.Observe(domain.Now().Sub(started).Seconds())
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.WeibullShape.Set(res.Report.Weibull.Shape)
	p.metrics.WeibullScale.Set(res.Report.Weibull.Scale)
	for _, est := range res.Report.AEP {
		p.metrics.AEP.WithLabelValues(est.Method).Set(est.MWh)
	}
	p.logger.Info("assessment complete",
		"run_id", res.Report.RunID,
		"samples", res.Report.Samples,
		"mean_speed", res.Report.SpeedStats.Mean,
		"weibull_shape", res.Report.Weibull.Shape,
		"weibull_scale", res.Report.Weibull.Scale,
		"aep_mwh", res.Report.AEP[0].MWh,
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, paths []string, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	t := domain.Now()
	ds, err := p.reader.ReadDataset(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	p.metrics.FilesRead.Add(float64(len(paths)))
	p.stageDone("load", t)

	if params.SubsetRequested() {
		ds = ds.SubsetYears(params.StartYear, params.EndYear)
		if first, last, ok := ds.TimeSpan(); ok {
			p.logger.Info("years selected",
				"start_year", params.StartYear, "end_year", params.EndYear,
				"from", first, "to", last, "steps", ds.Steps())
		} else {
			p.logger.Warn("year subset selected no samples",
				"start_year", params.StartYear, "end_year", params.EndYear)
		}
	}

	srcHeight, err := p.sourceHeight(ds, params.HubHeight)
	if err != nil {
		return nil, err
	}

	t = domain.Now()
	speed, dir, err := p.siteWind(ds, srcHeight, params.Site)
	if err != nil {
		return nil, err
	}
	heightStats, err := p.heightStats(ds, params.Site)
	if err != nil {
		return nil, err
	}
	p.metrics.SamplesExtracted.Add(float64(speed.Len()))
	p.stageDone("extract", t)

	t = domain.Now()
	hubSpeed, method, err := p.extrapolate(ds, params, speed, srcHeight)
	if err != nil {
		return nil, fmt.Errorf("extrapolate to %g m: %w", params.HubHeight, err)
	}
	p.stageDone("extrapolate", t)

	t = domain.Now()
	usable := 0
	for _, v := range hubSpeed.ValidValues() {
		if v > 0 {
			usable++
		}
	}
	p.metrics.SamplesDropped.Add(float64(hubSpeed.Len() - usable))
	if usable < domain.MinFitSamples {
		p.logger.Warn("few samples for distribution fit",
			"samples", usable, "minimum", domain.MinFitSamples)
	}
	weibull, err := domain.FitWeibull(hubSpeed.Values)
	if err != nil {
		return nil, fmt.Errorf("fit wind speed distribution: %w", err)
	}
	p.stageDone("fit", t)

	t = domain.Now()
	aepWeibull, err := domain.AEP(weibull, params.Curve, params.AEPResolution)
	if err != nil {
		return nil, fmt.Errorf("estimate energy: %w", err)
	}
	aepSeries, err := domain.AEPFromSeries(hubSpeed, params.Curve)
	if err != nil {
		return nil, fmt.Errorf("estimate energy from series: %w", err)
	}
	p.stageDone("energy", t)

	report, err := buildReport(params, ds, srcHeight, method, hubSpeed, dir, weibull, heightStats, aepWeibull, aepSeries)
	if err != nil {
		return nil, err
	}

	if p.sink != nil {
		if err := p.sink.Publish(ctx, report); err != nil {
			return nil, fmt.Errorf("publish report: %w", err)
		}
		p.logger.Info("report published", "run_id", report.RunID)
	}

	return &Result{Report: report, Dataset: ds, HubSpeed: hubSpeed, Direction: dir}, nil
}

// heightStats summarises the site speed series at every measurement
// height the dataset carries, including a per-height distribution fit
// where the record supports one.
func (p *Pipeline) heightStats(ds *domain.Dataset, site domain.Location) ([]HeightStats, error) {
	heights := ds.Heights()
	stats := make([]HeightStats, 0, len(heights))
	for _, h := range heights {
		speed, _, err := p.siteWind(ds, h, site)
		if err != nil {
			return nil, err
		}
		hs := HeightStats{Height: h, Speed: speed.Stats()}
		if w, err := domain.FitWeibull(speed.Values); err != nil {
			p.logger.Warn("height distribution fit skipped", "height", h, "error", err)
		} else {
			hs.Weibull = &w
		}
		stats = append(stats, hs)
	}
	return stats, nil
}

// siteWind extracts u and v at the site and derives speed and
// meteorological direction.
func (p *Pipeline) siteWind(ds *domain.Dataset, height float64, site domain.Location) (speed, dir domain.TimeSeries, err error) {
	u, v, err := ds.UV(height)
	if err != nil {
		return domain.TimeSeries{}, domain.TimeSeries{}, err
	}
	uSeries, err := u.SeriesAt(site)
	if err != nil {
		return domain.TimeSeries{}, domain.TimeSeries{}, err
	}
	vSeries, err := v.SeriesAt(site)
	if err != nil {
		return domain.TimeSeries{}, domain.TimeSeries{}, err
	}
	return domain.SpeedDirection(uSeries, vSeries)
}

// sourceHeight picks the measurement height hub-height speeds are
// derived from: 100 m for hubs above 50 m, 10 m otherwise. When the
// preferred height is absent the nearest available one is used.
func (p *Pipeline) sourceHeight(ds *domain.Dataset, hub float64) (float64, error) {
	heights := ds.Heights()
	if len(heights) == 0 {
		return 0, fmt.Errorf("dataset has no u/v component pair: %w", domain.ErrConfiguration)
	}
	preferred := 10.0
	if hub > 50 {
		preferred = 100.0
	}
	if slices.Contains(heights, preferred) {
		return preferred, nil
	}
	nearest := heights[0]
	for _, h := range heights[1:] {
		if math.Abs(h-preferred) < math.Abs(nearest-preferred) {
			nearest = h
		}
	}
	p.logger.Warn("preferred source height not in dataset",
		"preferred", preferred, "using", nearest, "available", heights)
	return nearest, nil
}

// extrapolate lifts the source-height speed series to hub height. With
// two or more measurement heights the per-step shear exponent between
// the lowest and highest is applied; with a single height, the fixed
// fallback exponent.
func (p *Pipeline) extrapolate(ds *domain.Dataset, params Params, speed domain.TimeSeries, src float64) (domain.TimeSeries, string, error) {
	if src == params.HubHeight {
		return speed, MethodNone, nil
	}
	heights := ds.Heights()
	if len(heights) >= 2 {
		low, high := heights[0], heights[len(heights)-1]
		lowSpeed, _, err := p.siteWind(ds, low, params.Site)
		if err != nil {
			return domain.TimeSeries{}, "", err
		}
		highSpeed, _, err := p.siteWind(ds, high, params.Site)
		if err != nil {
			return domain.TimeSeries{}, "", err
		}
		out, err := domain.ExtrapolateBetween(lowSpeed, highSpeed, low, high, params.HubHeight)
		if err != nil {
			return domain.TimeSeries{}, "", err
		}
		p.logger.Debug("per-step shear extrapolation",
			"low", low, "high", high, "target", params.HubHeight)
		return out, MethodShear, nil
	}
	out, err := domain.ExtrapolatePowerLaw(speed, src, params.HubHeight, params.FallbackShear)
	if err != nil {
		return domain.TimeSeries{}, "", err
	}
	p.logger.Debug("fixed-exponent extrapolation",
		"alpha", params.FallbackShear, "from", src, "target", params.HubHeight)
	return out, MethodFixedAlpha, nil
}

func (p *Pipeline) stageDone(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(domain.Now().Sub(start).Seconds())
}
