// Package analytics aggregates a snapshot of forecasts into dashboard statistics:
// the weighted overall Brier score, calibration per confidence bucket, average
// Brier per bet type and the best/worst individual predictions.
//
// Every function recomputes from the slice it is given; nothing is cached and
// the input is never modified. Closed forecasts whose scoring fields are
// missing or out of range are skipped and reported, never allowed to abort
// the rest of the computation.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/rewired-gh/sense/internal/logger"
	"github.com/rewired-gh/sense/internal/models"
	"github.com/rewired-gh/sense/internal/scoring"
)

// DefaultTopN is the number of best/worst predictions shown on the dashboard.
const DefaultTopN = 3

// ForecastIssue records a closed forecast that was left out of a statistic.
type ForecastIssue struct {
	ForecastID string
	Err        error
}

func (e ForecastIssue) Error() string {
	return fmt.Sprintf("skipped forecast %s: %v", e.ForecastID, e.Err)
}

// StatusCounts holds forecast counts by status.
type StatusCounts struct {
	Total  int `json:"total"`
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

// CalibrationBucket compares stated confidence with observed outcomes for one bucket.
type CalibrationBucket struct {
	Bucket        string  `json:"bucket"`
	ForecastCount int     `json:"forecastCount"`
	AvgPredicted  float64 `json:"avgPredictedProbability"` // mean probability, 0-100
	AvgActualPct  float64 `json:"avgActualOutcome"`        // mean outcome score × 100
}

// CurvePoint is a calibration bucket rounded for charting.
type CurvePoint struct {
	Name      string `json:"name"`
	Predicted int    `json:"predicted"`
	Actual    int    `json:"actual"`
	Count     int    `json:"count"`
}

// BetTypeScore is the unweighted mean Brier score for one bet type.
type BetTypeScore struct {
	BetType  models.BetType `json:"betType"`
	AvgBrier float64        `json:"avgBrier"`
	Count    int            `json:"count"`
}

// Stats is everything the dashboard shows, computed in one pass over a snapshot.
type Stats struct {
	Counts       StatusCounts        `json:"counts"`
	OverallBrier *float64            `json:"overallBrier"`
	OverallLevel models.BrierLevel   `json:"overallLevel,omitempty"`
	Calibration  []CalibrationBucket `json:"calibrationData"`
	Curve        []CurvePoint        `json:"calibrationCurveData"`
	BetTypes     []BetTypeScore      `json:"betTypeData"`
	Best         []models.Forecast   `json:"bestPredictions"`
	Worst        []models.Forecast   `json:"worstPredictions"`
	Skipped      []ForecastIssue     `json:"-"`
}

// Counts returns the number of forecasts by status.
func Counts(forecasts []models.Forecast) StatusCounts {
	c := StatusCounts{Total: len(forecasts)}
	for i := range forecasts {
		switch forecasts[i].Status {
		case models.StatusOpen:
			c.Open++
		case models.StatusClosed:
			c.Closed++
		}
	}
	return c
}

// OverallBrierScore returns Σ weightedBrier ÷ Σ weight over closed forecasts.
// The second result is false when there is nothing to score or the total
// weight is not positive.
func OverallBrierScore(forecasts []models.Forecast) (float64, bool) {
	score, ok, _ := overallBrier(forecasts)
	return score, ok
}

func overallBrier(forecasts []models.Forecast) (float64, bool, []ForecastIssue) {
	var issues []ForecastIssue
	var totalWeighted, totalWeight float64
	scored := 0

	for i := range forecasts {
		f := &forecasts[i]
		if !f.IsClosed() || f.WeightedBrier == nil {
			continue
		}
		if !finite(*f.WeightedBrier) || *f.WeightedBrier < 0 {
			issues = append(issues, ForecastIssue{ForecastID: f.ID, Err: fmt.Errorf("weighted brier %v is not a valid score", *f.WeightedBrier)})
			continue
		}
		if !finite(f.Weight) || !(f.Weight > 0) {
			issues = append(issues, ForecastIssue{ForecastID: f.ID, Err: fmt.Errorf("weight %v is not a valid weight", f.Weight)})
			continue
		}
		totalWeighted += *f.WeightedBrier
		totalWeight += f.Weight
		scored++
	}

	if scored == 0 || totalWeight <= 0 {
		return 0, false, issues
	}
	return totalWeighted / totalWeight, true, issues
}

// CalibrationByBucket groups closed forecasts by their frozen confidence bucket
// and compares mean stated probability with mean outcome. Buckets are ordered
// by numeric lower bound; buckets without closed forecasts are omitted.
func CalibrationByBucket(forecasts []models.Forecast) []CalibrationBucket {
	buckets, _ := calibration(forecasts)
	return buckets
}

func calibration(forecasts []models.Forecast) ([]CalibrationBucket, []ForecastIssue) {
	type group struct {
		lower         int
		probabilities []float64
		outcomes      []float64
	}

	var issues []ForecastIssue
	groups := make(map[string]*group)
	var order []string

	for i := range forecasts {
		f := &forecasts[i]
		if !f.IsClosed() || f.OutcomeScore == nil {
			continue
		}
		if !unitInterval(*f.OutcomeScore) {
			issues = append(issues, ForecastIssue{ForecastID: f.ID, Err: fmt.Errorf("outcome score %v outside [0,1]", *f.OutcomeScore)})
			continue
		}
		lower, err := scoring.BucketLowerBound(f.ConfidenceBucket)
		if err != nil {
			issues = append(issues, ForecastIssue{ForecastID: f.ID, Err: err})
			continue
		}

		g, exists := groups[f.ConfidenceBucket]
		if !exists {
			g = &group{lower: lower}
			groups[f.ConfidenceBucket] = g
			order = append(order, f.ConfidenceBucket)
		}
		g.probabilities = append(g.probabilities, float64(f.Probability))
		g.outcomes = append(g.outcomes, *f.OutcomeScore)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return groups[order[a]].lower < groups[order[b]].lower
	})

	result := make([]CalibrationBucket, 0, len(order))
	for _, label := range order {
		g := groups[label]
		avgPredicted, err := stats.Mean(g.probabilities)
		if err != nil {
			continue
		}
		avgOutcome, err := stats.Mean(g.outcomes)
		if err != nil {
			continue
		}
		result = append(result, CalibrationBucket{
			Bucket:        label,
			ForecastCount: len(g.probabilities),
			AvgPredicted:  avgPredicted,
			AvgActualPct:  avgOutcome * 100,
		})
	}
	return result, issues
}

// CalibrationCurve returns the calibration buckets rounded to whole percentages.
func CalibrationCurve(forecasts []models.Forecast) []CurvePoint {
	return curveFrom(CalibrationByBucket(forecasts))
}

func curveFrom(buckets []CalibrationBucket) []CurvePoint {
	points := make([]CurvePoint, len(buckets))
	for i, b := range buckets {
		points[i] = CurvePoint{
			Name:      b.Bucket,
			Predicted: int(math.Round(b.AvgPredicted)),
			Actual:    int(math.Round(b.AvgActualPct)),
			Count:     b.ForecastCount,
		}
	}
	return points
}

// BrierByBetType returns the unweighted mean Brier score per bet type in
// canonical bet type order, omitting types with no closed forecasts.
func BrierByBetType(forecasts []models.Forecast) []BetTypeScore {
	scores, _ := brierByBetType(forecasts)
	return scores
}

func brierByBetType(forecasts []models.Forecast) ([]BetTypeScore, []ForecastIssue) {
	var issues []ForecastIssue
	byType := make(map[models.BetType][]float64)

	for i := range forecasts {
		f := &forecasts[i]
		if !f.IsClosed() || f.BrierScore == nil {
			continue
		}
		if !unitInterval(*f.BrierScore) {
			issues = append(issues, ForecastIssue{ForecastID: f.ID, Err: fmt.Errorf("brier score %v outside [0,1]", *f.BrierScore)})
			continue
		}
		if !f.BetType.Valid() {
			issues = append(issues, ForecastIssue{ForecastID: f.ID, Err: fmt.Errorf("unknown bet type %q", f.BetType)})
			continue
		}
		byType[f.BetType] = append(byType[f.BetType], *f.BrierScore)
	}

	var result []BetTypeScore
	for _, bt := range models.BetTypes {
		briers := byType[bt]
		if len(briers) == 0 {
			continue
		}
		avg, err := stats.Mean(briers)
		if err != nil {
			continue
		}
		result = append(result, BetTypeScore{BetType: bt, AvgBrier: avg, Count: len(briers)})
	}
	return result, issues
}

// BestPredictions returns up to n closed forecasts with the lowest Brier scores.
// Ties keep their input order.
func BestPredictions(forecasts []models.Forecast, n int) []models.Forecast {
	ranked, _ := rankByBrier(forecasts, false)
	return head(ranked, n)
}

// WorstPredictions returns up to n closed forecasts with the highest Brier scores.
// Ties keep their input order.
func WorstPredictions(forecasts []models.Forecast, n int) []models.Forecast {
	ranked, _ := rankByBrier(forecasts, true)
	return head(ranked, n)
}

func rankByBrier(forecasts []models.Forecast, descending bool) ([]models.Forecast, []ForecastIssue) {
	var issues []ForecastIssue
	var ranked []models.Forecast

	for i := range forecasts {
		f := &forecasts[i]
		if !f.IsClosed() || f.BrierScore == nil {
			continue
		}
		if !unitInterval(*f.BrierScore) {
			issues = append(issues, ForecastIssue{ForecastID: f.ID, Err: fmt.Errorf("brier score %v outside [0,1]", *f.BrierScore)})
			continue
		}
		ranked = append(ranked, f.Clone())
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if descending {
			return *ranked[a].BrierScore > *ranked[b].BrierScore
		}
		return *ranked[a].BrierScore < *ranked[b].BrierScore
	})
	return ranked, issues
}

func head(fs []models.Forecast, n int) []models.Forecast {
	if n <= 0 {
		return []models.Forecast{}
	}
	if n > len(fs) {
		n = len(fs)
	}
	out := make([]models.Forecast, n)
	copy(out, fs[:n])
	return out
}

// DashboardStats composes every statistic the dashboard shows. topN controls
// the length of the best/worst lists; values below 1 fall back to DefaultTopN.
// Malformed closed forecasts are skipped and listed once each in Stats.Skipped.
func DashboardStats(forecasts []models.Forecast, topN int) Stats {
	if topN < 1 {
		topN = DefaultTopN
	}

	overall, ok, overallIssues := overallBrier(forecasts)
	buckets, bucketIssues := calibration(forecasts)
	betTypes, betTypeIssues := brierByBetType(forecasts)
	ascending, rankIssues := rankByBrier(forecasts, false)
	descending, _ := rankByBrier(forecasts, true)

	s := Stats{
		Counts:      Counts(forecasts),
		Calibration: buckets,
		Curve:       curveFrom(buckets),
		BetTypes:    betTypes,
		Best:        head(ascending, topN),
		Worst:       head(descending, topN),
		Skipped:     dedupeIssues(overallIssues, bucketIssues, betTypeIssues, rankIssues),
	}
	if ok {
		s.OverallBrier = &overall
		s.OverallLevel = scoring.Level(overall)
	}

	for _, issue := range s.Skipped {
		logger.Warn("DashboardStats: %v", issue)
	}
	logger.Debug("DashboardStats: total=%d open=%d closed=%d buckets=%d skipped=%d",
		s.Counts.Total, s.Counts.Open, s.Counts.Closed, len(s.Calibration), len(s.Skipped))

	return s
}

// dedupeIssues keeps the first issue reported for each forecast.
func dedupeIssues(lists ...[]ForecastIssue) []ForecastIssue {
	seen := make(map[string]bool)
	var out []ForecastIssue
	for _, list := range lists {
		for _, issue := range list {
			if seen[issue.ForecastID] {
				continue
			}
			seen[issue.ForecastID] = true
			out = append(out, issue)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func unitInterval(v float64) bool {
	return finite(v) && v >= 0 && v <= 1
}
