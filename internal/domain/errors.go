package domain

import "errors"

// Error kinds surfaced by the assessment pipeline. Every error returned from
// this package wraps one of these sentinels so callers can classify failures
// with errors.Is without string matching.
var (
	// ErrConfiguration marks problems knowable before computation starts:
	// missing or unreadable input files, mismatched grids between files,
	// a site outside the grid bounds, or invalid parameter ranges.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataQuality marks series that cannot support the requested
	// computation: empty after filtering, negative speeds reaching the
	// fitter, or mismatched timestamps between paired series.
	ErrDataQuality = errors.New("data quality error")

	// ErrNumerical marks degenerate numeric outcomes that must be surfaced
	// rather than returned silently, such as a distribution fit producing
	// non-finite parameters.
	ErrNumerical = errors.New("numerical error")
)
