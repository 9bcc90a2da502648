package models

// BetType classifies the size of the bet a forecast is about.
type BetType string

const (
	BetNewProduct BetType = "New Product"
	BetFeature    BetType = "Feature"
	BetIteration  BetType = "Iteration"
	BetExperiment BetType = "Experiment"
)

// BetTypes lists every bet type in canonical display order.
var BetTypes = []BetType{BetNewProduct, BetFeature, BetIteration, BetExperiment}

// Valid reports whether b is one of the known bet types.
func (b BetType) Valid() bool {
	for _, known := range BetTypes {
		if b == known {
			return true
		}
	}
	return false
}

// Novelty describes how unfamiliar the problem space is.
type Novelty string

const (
	NoveltyNewBehavior  Novelty = "New Behavior"
	NoveltyNewPersona   Novelty = "New Persona"
	NoveltyKnownProblem Novelty = "Known Problem"
)

// Novelties lists every novelty value in canonical order.
var Novelties = []Novelty{NoveltyNewBehavior, NoveltyNewPersona, NoveltyKnownProblem}

// Valid reports whether n is one of the known novelty values.
func (n Novelty) Valid() bool {
	for _, known := range Novelties {
		if n == known {
			return true
		}
	}
	return false
}

// SuccessMetric is an informational tag; it plays no part in scoring.
type SuccessMetric string

const (
	MetricGrowth       SuccessMetric = "Growth"
	MetricMonetisation SuccessMetric = "Monetisation"
	MetricRetention    SuccessMetric = "Retention"
	MetricActivation   SuccessMetric = "Activation"
	MetricConversion   SuccessMetric = "Conversion"
	MetricEngagement   SuccessMetric = "Engagement"
	MetricRevenue      SuccessMetric = "Revenue"
	MetricNPS          SuccessMetric = "NPS"
	MetricSatisfaction SuccessMetric = "Satisfaction"
)

// SuccessMetrics lists every success metric.
var SuccessMetrics = []SuccessMetric{
	MetricGrowth, MetricMonetisation, MetricRetention, MetricActivation, MetricConversion,
	MetricEngagement, MetricRevenue, MetricNPS, MetricSatisfaction,
}

// Valid reports whether m is one of the known success metrics.
func (m SuccessMetric) Valid() bool {
	for _, known := range SuccessMetrics {
		if m == known {
			return true
		}
	}
	return false
}

// OutcomeLevel is the observed result of a closed forecast, ordered from best to worst.
type OutcomeLevel string

const (
	OutcomeHitTarget    OutcomeLevel = "Hit Target"
	OutcomeMetTarget    OutcomeLevel = "Met Target"
	OutcomeStrongResult OutcomeLevel = "Strong Result"
	OutcomeMixedResult  OutcomeLevel = "Mixed Result"
	OutcomeWeakResult   OutcomeLevel = "Weak Result"
	OutcomeFailed       OutcomeLevel = "Failed"
)

// OutcomeLevels lists every outcome level from best to worst.
var OutcomeLevels = []OutcomeLevel{
	OutcomeHitTarget, OutcomeMetTarget, OutcomeStrongResult,
	OutcomeMixedResult, OutcomeWeakResult, OutcomeFailed,
}

// outcomeScores is the canonical outcome score per level. Not configurable.
var outcomeScores = map[OutcomeLevel]float64{
	OutcomeHitTarget:    1.0,
	OutcomeMetTarget:    0.8,
	OutcomeStrongResult: 0.6,
	OutcomeMixedResult:  0.4,
	OutcomeWeakResult:   0.2,
	OutcomeFailed:       0.0,
}

var outcomeDescriptions = map[OutcomeLevel]string{
	OutcomeHitTarget:    "≥100% of target achieved",
	OutcomeMetTarget:    "80-99% of target achieved",
	OutcomeStrongResult: "60-79% of target achieved",
	OutcomeMixedResult:  "40-59% of target achieved",
	OutcomeWeakResult:   "20-39% of target achieved",
	OutcomeFailed:       "<20% of target achieved",
}

// Score returns the canonical outcome score for the level.
func (o OutcomeLevel) Score() (float64, bool) {
	s, ok := outcomeScores[o]
	return s, ok
}

// Description returns the share-of-target band the level stands for.
func (o OutcomeLevel) Description() string {
	return outcomeDescriptions[o]
}

// Valid reports whether o is one of the known outcome levels.
func (o OutcomeLevel) Valid() bool {
	_, ok := outcomeScores[o]
	return ok
}

// BrierLevel is the interpretation band for a Brier score.
type BrierLevel string

const (
	LevelElite         BrierLevel = "Elite Judgment"
	LevelStrong        BrierLevel = "Strong Calibration"
	LevelTypical       BrierLevel = "Typical PM"
	LevelOverconfident BrierLevel = "Overconfident"
	LevelUncalibrated  BrierLevel = "Uncalibrated"
)

// ForecastStatus is the lifecycle state of a forecast. open -> closed only.
type ForecastStatus string

const (
	StatusOpen   ForecastStatus = "open"
	StatusClosed ForecastStatus = "closed"
)

// ForecastFilter selects forecasts by status for listing.
type ForecastFilter string

const (
	FilterAll    ForecastFilter = "all"
	FilterOpen   ForecastFilter = "open"
	FilterClosed ForecastFilter = "closed"
)

// Match reports whether f passes the filter.
func (ff ForecastFilter) Match(f *Forecast) bool {
	switch ff {
	case FilterOpen:
		return f.Status == StatusOpen
	case FilterClosed:
		return f.Status == StatusClosed
	default:
		return true
	}
}
