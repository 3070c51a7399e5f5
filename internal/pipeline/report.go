package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tailvane/windresource/internal/domain"
)

// Report is the published summary of one assessment run. Everything in
// it is plain data, ready for JSON rendering or a message bus.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Site                domain.Location `json:"site"`
	SourceHeight        float64         `json:"source_height_m"`
	HubHeight           float64         `json:"hub_height_m"`
	ExtrapolationMethod string          `json:"extrapolation_method"`
	Turbine             string          `json:"turbine"`
	StartYear           int             `json:"start_year,omitempty"`
	EndYear             int             `json:"end_year,omitempty"`

	Samples    int                  `json:"samples"`
	SpeedStats domain.SeriesStats   `json:"speed_stats"`
	Weibull    domain.WeibullParams `json:"weibull"`

	// Heights summarises the site wind climate at each measurement
	// height before extrapolation.
	Heights []HeightStats `json:"height_stats"`

	Histogram []domain.HistogramBin `json:"speed_histogram"`
	Rose      []domain.RoseSector   `json:"wind_rose"`

	AEP []AEPEstimate `json:"aep_estimates"`
}

// HeightStats holds the speed statistics of the interpolated site
// series at one measurement height. Weibull is nil when that height's
// record cannot support a fit; only the hub-height fit fails the run.
type HeightStats struct {
	Height  float64               `json:"height_m"`
	Speed   domain.SeriesStats    `json:"speed"`
	Weibull *domain.WeibullParams `json:"weibull,omitempty"`
}

// AEPEstimate is one annual energy estimate and the method that
// produced it.
type AEPEstimate struct {
	Method string  `json:"method"`
	MWh    float64 `json:"mwh_per_year"`
}

// AEP estimate method names.
const (
	AEPMethodWeibull = "weibull-integral"
	AEPMethodSeries  = "time-series"
)

// Result bundles the published report with the loaded dataset and the
// full derived series for rendering or file export.
type Result struct {
	Report    *Report
	Dataset   *domain.Dataset
	HubSpeed  domain.TimeSeries
	Direction domain.TimeSeries
}

// buildReport assembles the report from the run's outputs.
func buildReport(params Params, ds *domain.Dataset, srcHeight float64, method string,
	hubSpeed, dir domain.TimeSeries, weibull domain.WeibullParams,
	heightStats []HeightStats, aepWeibull, aepSeries float64) (*Report, error) {

	rose, err := domain.WindRose(dir, hubSpeed, domain.DefaultRoseSectors)
	if err != nil {
		return nil, fmt.Errorf("wind rose: %w", err)
	}
	hist, err := domain.SpeedHistogram(hubSpeed, domain.DefaultHistogramBins)
	if err != nil {
		return nil, fmt.Errorf("speed histogram: %w", err)
	}

	return &Report{
		RunID:               runID(params, ds),
		GeneratedAt:         domain.Now().UTC(),
		Site:                params.Site,
		SourceHeight:        srcHeight,
		HubHeight:           params.HubHeight,
		ExtrapolationMethod: method,
		Turbine:             params.Curve.Name,
		StartYear:           params.StartYear,
		EndYear:             params.EndYear,
		Samples:             hubSpeed.Len(),
		SpeedStats:          hubSpeed.Stats(),
		Weibull:             weibull,
		Heights:             heightStats,
		Histogram:           hist,
		Rose:                rose,
		AEP: []AEPEstimate{
			{Method: AEPMethodWeibull, MWh: aepWeibull},
			{Method: AEPMethodSeries, MWh: aepSeries},
		},
	}, nil
}

// runID produces a deterministic ID from the run's defining inputs.
// Re-running the same assessment over the same data yields the same ID,
// so downstream consumers can deduplicate replayed reports.
func runID(params Params, ds *domain.Dataset) string {
	input := fmt.Sprintf("%s|%d|%d|%g|%g|%s",
		params.Site, params.StartYear, params.EndYear,
		params.HubHeight, params.FallbackShear, params.Curve.Name)
	if first, last, ok := ds.TimeSpan(); ok {
		input += fmt.Sprintf("|%d|%d|%d", first.Unix(), last.Unix(), ds.Steps())
	}
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}
