// Package domain implements the numeric core of the wind-resource
// assessment: gridded reanalysis fields, point interpolation, wind-vector
// conversion, vertical extrapolation, Weibull fitting and annual energy
// estimates.
//
// # Input Data Conventions
//
// Fields follow ERA5 reanalysis naming: wind components are stored per
// reference height as u<height>/v<height> pairs, conventionally u10/v10 at
// 10 m and u100/v100 at 100 m. Each variable is a 3D cube over
// (time, latitude, longitude); latitude axes commonly run north to south
// (descending), which every grid operation here accepts. Units are m/s for
// wind components, degrees for coordinates.
//
// # Direction Convention
//
// Direction is meteorological: the compass bearing the wind blows FROM,
// 0° = from north, 90° = from east, increasing clockwise:
//
//	dir = degrees(atan2(-u, -v)) normalised to [0, 360)
//
// Cardinal fixtures (u = zonal/east, v = meridional/north component):
//
//	u=0,  v=1   → 180°  southerly flow, wind from the south
//	u=1,  v=0   → 270°  westerly component, wind from the west
//	u=0,  v=-1  →   0°  wind from the north
//	u=-1, v=0   →  90°  wind from the east
//
// Getting the sign convention backward flips the rose by 180°, so the full
// quadrant table is pinned by tests.
//
// # Vertical Extrapolation
//
// The power-law profile V(z) = V_ref · (z/z_ref)^α relates speeds across
// heights. With two reference heights the exponent is estimated per time
// step as α = ln(v2/v1)/ln(h2/h1); samples with a non-positive reference
// speed produce NaN, which propagates to the fitter's filters rather than
// failing the run. With one reference height a fixed α applies
// (DefaultShearExponent = 0.14).
//
// # Weibull Fit
//
// Wind-speed records are summarised by a two-parameter Weibull distribution
// fitted with the method-of-moments estimator k = (σ/μ)^−1.086,
// λ = μ/Γ(1+1/k). Exact zeros are excluded (the support is (0, ∞)),
// negative speeds are rejected as corrupted data, and degenerate parameter
// outcomes are surfaced as numerical errors.
//
// # Energy Estimates
//
// Annual energy production is computed two ways: from the fitted
// distribution, 8760 h × ∫ P(v)·f(v) dv against a turbine power curve, and
// directly from the hub-height series as mean power × 8760 h. Curves are in
// kW, results in MWh per year.
package domain
