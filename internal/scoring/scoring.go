// Package scoring provides the pure functions that turn a forecast into a
// weighted calibration score.
//
//	weight        = betTypeWeight × noveltyWeight        (frozen at creation)
//	brier         = (probability/100 − outcomeScore)²    ∈ [0, 1]
//	weightedBrier = brier × weight
//
// Nothing in this package performs I/O or keeps state. Functions either return
// a well-defined value or an error wrapping one of the models sentinels; they
// never return NaN for malformed input.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rewired-gh/sense/internal/models"
)

// levelThresholds are checked in ascending order; the first bound the score is
// strictly below wins. Scores at or above the last bound are Uncalibrated.
var levelThresholds = []struct {
	max   float64
	level models.BrierLevel
}{
	{0.10, models.LevelElite},
	{0.15, models.LevelStrong},
	{0.25, models.LevelTypical},
	{0.40, models.LevelOverconfident},
}

// ComputeWeight returns settings.BetType[betType] × settings.Novelty[novelty].
// Settings may come from imported data, so a missing key or a non-positive
// weight is reported as a config error instead of yielding 0 or NaN.
func ComputeWeight(betType models.BetType, novelty models.Novelty, settings models.WeightSettings) (float64, error) {
	bw, ok := settings.BetType[betType]
	if !ok {
		return 0, models.NewConfigError("betType."+string(betType), "has no weight")
	}
	nw, ok := settings.Novelty[novelty]
	if !ok {
		return 0, models.NewConfigError("novelty."+string(novelty), "has no weight")
	}
	w := bw * nw
	if !(w > 0) || math.IsInf(w, 0) {
		return 0, models.NewConfigError(fmt.Sprintf("%s/%s", betType, novelty), "weight must be positive")
	}
	return w, nil
}

// ConfidenceBucket returns the 10-point bucket label for a probability,
// e.g. 75 -> "70-80%". 100 yields "100-110%"; the label is kept as-is.
func ConfidenceBucket(probability int) string {
	lower := int(math.Floor(float64(probability)/10)) * 10
	return fmt.Sprintf("%d-%d%%", lower, lower+10)
}

// BucketLowerBound parses the numeric lower bound out of a bucket label.
func BucketLowerBound(bucket string) (int, error) {
	s, sign := bucket, ""
	if strings.HasPrefix(s, "-") {
		// "-10-0%" for probabilities below zero that slipped past the input surface.
		s, sign = s[1:], "-"
	}
	lower, _, found := strings.Cut(s, "-")
	if !found {
		return 0, fmt.Errorf("malformed confidence bucket %q", bucket)
	}
	n, err := strconv.Atoi(sign + lower)
	if err != nil {
		return 0, fmt.Errorf("malformed confidence bucket %q: %w", bucket, err)
	}
	return n, nil
}

// OutcomeScore returns the canonical score for an outcome level.
func OutcomeScore(level models.OutcomeLevel) (float64, error) {
	s, ok := level.Score()
	if !ok {
		return 0, models.NewValidationError("actualOutcome", "unknown outcome level "+strconv.Quote(string(level)))
	}
	return s, nil
}

// BrierScore returns ((probability/100) − outcomeScore)². Probabilities outside
// [0, 100] are rejected so the result always lies in [0, 1].
func BrierScore(probability int, level models.OutcomeLevel) (float64, error) {
	if probability < 0 || probability > 100 {
		return 0, models.NewValidationError("probability", fmt.Sprintf("must be between 0 and 100, got %d", probability))
	}
	outcome, err := OutcomeScore(level)
	if err != nil {
		return 0, err
	}
	d := float64(probability)/100 - outcome
	return d * d, nil
}

// WeightedBrier returns brier × weight.
func WeightedBrier(brier, weight float64) float64 {
	return brier * weight
}

// Level classifies a Brier score into its interpretation band.
func Level(score float64) models.BrierLevel {
	for _, t := range levelThresholds {
		if score < t.max {
			return t.level
		}
	}
	return models.LevelUncalibrated
}

// FormatScore renders a Brier score with four decimal places.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 4, 64)
}
