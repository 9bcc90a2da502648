// Package models defines the core domain entities for the sense forecast tracker.
// These models represent forecasts, the user profile, scoring weights and the
// export/import envelope. Input models include built-in validation so that
// malformed data is rejected before any state changes.
//
// Terminology:
//   - Forecast: a single prediction with a stated probability, closed later with an outcome.
//   - Weight: betType weight × novelty weight, frozen when the forecast is created.
//   - Brier score: (probability/100 − outcome score)², lower is better.
package models

import (
	"strings"
	"time"
)

// Forecast is a recorded prediction. Fields up to Weight are fixed at creation;
// the closing fields are nil until the forecast is closed and never change afterwards.
type Forecast struct {
	ID               string         `json:"id"` // "F001", "F002", ...
	DateCreated      time.Time      `json:"dateCreated"`
	Status           ForecastStatus `json:"status"`
	BetType          BetType        `json:"betType"`
	Prediction       string         `json:"prediction"`
	SuccessMetric    SuccessMetric  `json:"successMetric"`
	TargetThreshold  string         `json:"targetThreshold"`
	ByWhen           string         `json:"byWhen"`
	Probability      int            `json:"probability"`      // 0-100
	ConfidenceBucket string         `json:"confidenceBucket"` // e.g. "70-80%"
	Novelty          Novelty        `json:"novelty"`
	Weight           float64        `json:"weight"`

	Risks     string `json:"risks,omitempty"`
	Evidence  string `json:"evidence,omitempty"`
	ImageData string `json:"imageData,omitempty"` // data URL, stored opaquely
	ImageName string `json:"imageName,omitempty"`

	ActualOutcome *OutcomeLevel `json:"actualOutcome,omitempty"`
	OutcomeScore  *float64      `json:"outcomeScore,omitempty"`
	BrierScore    *float64      `json:"brierScore,omitempty"`
	WeightedBrier *float64      `json:"weightedBrier,omitempty"`
	LearningNote  string        `json:"learningNote,omitempty"`
	ClosedAt      *time.Time    `json:"closedAt,omitempty"`
}

// IsClosed reports whether the forecast has been closed.
func (f *Forecast) IsClosed() bool {
	return f.Status == StatusClosed
}

// Clone returns a copy that shares no pointers with f.
func (f Forecast) Clone() Forecast {
	c := f
	if f.ActualOutcome != nil {
		v := *f.ActualOutcome
		c.ActualOutcome = &v
	}
	c.OutcomeScore = cloneFloat(f.OutcomeScore)
	c.BrierScore = cloneFloat(f.BrierScore)
	c.WeightedBrier = cloneFloat(f.WeightedBrier)
	if f.ClosedAt != nil {
		v := *f.ClosedAt
		c.ClosedAt = &v
	}
	return c
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CloneForecasts deep-copies a forecast slice. A nil input yields an empty slice.
func CloneForecasts(fs []Forecast) []Forecast {
	out := make([]Forecast, len(fs))
	for i := range fs {
		out[i] = fs[i].Clone()
	}
	return out
}

// NewForecastData is the user input for creating a forecast.
type NewForecastData struct {
	BetType         BetType       `json:"betType"`
	Prediction      string        `json:"prediction"`
	SuccessMetric   SuccessMetric `json:"successMetric"`
	TargetThreshold string        `json:"targetThreshold"`
	ByWhen          string        `json:"byWhen"`
	Probability     int           `json:"probability"`
	Novelty         Novelty       `json:"novelty"`
	Risks           string        `json:"risks,omitempty"`
	Evidence        string        `json:"evidence,omitempty"`
	ImageData       string        `json:"imageData,omitempty"`
	ImageName       string        `json:"imageName,omitempty"`
}

// Validate checks the required text fields. Probability range is enforced by
// the input surface and deliberately not re-checked here.
func (d *NewForecastData) Validate() error {
	if strings.TrimSpace(d.Prediction) == "" {
		return NewValidationError("prediction", "must not be empty")
	}
	if strings.TrimSpace(d.TargetThreshold) == "" {
		return NewValidationError("targetThreshold", "must not be empty")
	}
	if strings.TrimSpace(d.ByWhen) == "" {
		return NewValidationError("byWhen", "must not be empty")
	}
	return nil
}

// CloseForecastData is the user input for closing a forecast.
type CloseForecastData struct {
	ActualOutcome OutcomeLevel `json:"actualOutcome"`
	LearningNote  string       `json:"learningNote"`
}

// Validate checks that the outcome is a known level.
func (d *CloseForecastData) Validate() error {
	if !d.ActualOutcome.Valid() {
		return NewValidationError("actualOutcome", "must be a known outcome level, got "+string(d.ActualOutcome))
	}
	return nil
}
