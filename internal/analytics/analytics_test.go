package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rewired-gh/sense/internal/models"
	"github.com/rewired-gh/sense/internal/scoring"
)

const eps = 1e-9

// closedForecast builds a closed forecast the way the tracker would.
func closedForecast(t *testing.T, id string, bet models.BetType, novelty models.Novelty, probability int, outcome models.OutcomeLevel) models.Forecast {
	t.Helper()
	weight, err := scoring.ComputeWeight(bet, novelty, models.DefaultWeightSettings())
	if err != nil {
		t.Fatalf("ComputeWeight failed: %v", err)
	}
	brier, err := scoring.BrierScore(probability, outcome)
	if err != nil {
		t.Fatalf("BrierScore failed: %v", err)
	}
	score, _ := outcome.Score()
	weighted := scoring.WeightedBrier(brier, weight)
	closedAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.Forecast{
		ID:               id,
		DateCreated:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Status:           models.StatusClosed,
		BetType:          bet,
		Prediction:       "prediction " + id,
		SuccessMetric:    models.MetricGrowth,
		TargetThreshold:  "target",
		ByWhen:           "2026-05-01",
		Probability:      probability,
		ConfidenceBucket: scoring.ConfidenceBucket(probability),
		Novelty:          novelty,
		Weight:           weight,
		ActualOutcome:    &outcome,
		OutcomeScore:     &score,
		BrierScore:       &brier,
		WeightedBrier:    &weighted,
		ClosedAt:         &closedAt,
	}
}

func openForecast(id string, probability int) models.Forecast {
	return models.Forecast{
		ID:               id,
		Status:           models.StatusOpen,
		BetType:          models.BetIteration,
		Prediction:       "open " + id,
		Probability:      probability,
		ConfidenceBucket: scoring.ConfidenceBucket(probability),
		Novelty:          models.NoveltyKnownProblem,
		Weight:           1.0,
	}
}

func TestOverallBrierScore_Empty(t *testing.T) {
	if _, ok := OverallBrierScore(nil); ok {
		t.Error("expected no score for an empty collection")
	}
	if _, ok := OverallBrierScore([]models.Forecast{openForecast("F001", 60)}); ok {
		t.Error("expected no score when nothing is closed")
	}
}

func TestOverallBrierScore_SingleForecastEqualsBrier(t *testing.T) {
	f := closedForecast(t, "F001", models.BetNewProduct, models.NoveltyNewBehavior, 70, models.OutcomeMixedResult)
	got, ok := OverallBrierScore([]models.Forecast{f})
	if !ok {
		t.Fatal("expected a score")
	}
	if math.Abs(got-*f.BrierScore) > eps {
		t.Errorf("expected overall %v to equal the forecast's brier %v", got, *f.BrierScore)
	}
}

func TestOverallBrierScore_IsWeightedMean(t *testing.T) {
	// weight 4.5, brier 0.64 and weight 1.0, brier 0.0
	heavy := closedForecast(t, "F001", models.BetNewProduct, models.NoveltyNewBehavior, 80, models.OutcomeFailed)
	light := closedForecast(t, "F002", models.BetIteration, models.NoveltyKnownProblem, 100, models.OutcomeHitTarget)

	got, ok := OverallBrierScore([]models.Forecast{heavy, light, openForecast("F003", 50)})
	if !ok {
		t.Fatal("expected a score")
	}
	want := (0.64*4.5 + 0.0*1.0) / (4.5 + 1.0)
	if math.Abs(got-want) > eps {
		t.Errorf("expected weighted mean %v, got %v", want, got)
	}
	simple := (0.64 + 0.0) / 2
	if math.Abs(got-simple) < 1e-6 {
		t.Error("overall score should not be the simple mean")
	}
}

func TestOverallBrierScore_ZeroTotalWeight(t *testing.T) {
	f := closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 60, models.OutcomeHitTarget)
	f.Weight = 0
	got, ok := OverallBrierScore([]models.Forecast{f})
	if ok {
		t.Errorf("expected no score for zero total weight, got %v", got)
	}
	if math.IsNaN(got) {
		t.Error("score must never be NaN")
	}
}

func TestDashboardStats_SkipsZeroWeightWithScore(t *testing.T) {
	good := closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 80, models.OutcomeHitTarget)
	zero := closedForecast(t, "F002", models.BetFeature, models.NoveltyKnownProblem, 20, models.OutcomeHitTarget)
	zero.Weight = 0

	s := DashboardStats([]models.Forecast{good, zero}, 3)
	if s.OverallBrier == nil || math.Abs(*s.OverallBrier-0.04) > 1e-9 {
		t.Fatalf("expected overall 0.04 from the well-formed forecast only, got %v", s.OverallBrier)
	}
	found := false
	for _, issue := range s.Skipped {
		if issue.ForecastID == "F002" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected F002 to be reported as skipped, got %v", s.Skipped)
	}
}

func TestCalibrationByBucket(t *testing.T) {
	forecasts := []models.Forecast{
		closedForecast(t, "F005", models.BetFeature, models.NoveltyKnownProblem, 95, models.OutcomeHitTarget),
		closedForecast(t, "F004", models.BetFeature, models.NoveltyKnownProblem, 15, models.OutcomeFailed),
		closedForecast(t, "F003", models.BetFeature, models.NoveltyKnownProblem, 72, models.OutcomeMetTarget),
		closedForecast(t, "F002", models.BetFeature, models.NoveltyKnownProblem, 78, models.OutcomeMixedResult),
		closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 5, models.OutcomeFailed),
		openForecast("F006", 45),
	}

	got := CalibrationByBucket(forecasts)
	want := []CalibrationBucket{
		{Bucket: "0-10%", ForecastCount: 1, AvgPredicted: 5, AvgActualPct: 0},
		{Bucket: "10-20%", ForecastCount: 1, AvgPredicted: 15, AvgActualPct: 0},
		{Bucket: "70-80%", ForecastCount: 2, AvgPredicted: 75, AvgActualPct: 60},
		{Bucket: "90-100%", ForecastCount: 1, AvgPredicted: 95, AvgActualPct: 100},
	}

	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < eps })); diff != "" {
		t.Errorf("CalibrationByBucket mismatch (-want +got):\n%s", diff)
	}
}

func TestCalibrationByBucket_NumericOrderNotLexicographic(t *testing.T) {
	forecasts := []models.Forecast{
		closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 100, models.OutcomeHitTarget),
		closedForecast(t, "F002", models.BetFeature, models.NoveltyKnownProblem, 20, models.OutcomeFailed),
		closedForecast(t, "F003", models.BetFeature, models.NoveltyKnownProblem, 3, models.OutcomeFailed),
		closedForecast(t, "F004", models.BetFeature, models.NoveltyKnownProblem, 90, models.OutcomeHitTarget),
	}
	var labels []string
	for _, b := range CalibrationByBucket(forecasts) {
		labels = append(labels, b.Bucket)
	}
	want := []string{"0-10%", "20-30%", "90-100%", "100-110%"}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("bucket order mismatch (-want +got):\n%s", diff)
	}
}

func TestCalibrationByBucket_Idempotent(t *testing.T) {
	forecasts := []models.Forecast{
		closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 65, models.OutcomeStrongResult),
		closedForecast(t, "F002", models.BetExperiment, models.NoveltyNewPersona, 35, models.OutcomeWeakResult),
		closedForecast(t, "F003", models.BetNewProduct, models.NoveltyNewBehavior, 61, models.OutcomeFailed),
	}
	before := models.CloneForecasts(forecasts)

	first := CalibrationByBucket(forecasts)
	second := CalibrationByBucket(forecasts)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("CalibrationByBucket is not deterministic (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, forecasts); diff != "" {
		t.Errorf("input was modified (-before +after):\n%s", diff)
	}
}

func TestCalibrationCurve(t *testing.T) {
	forecasts := []models.Forecast{
		closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 71, models.OutcomeMetTarget),
		closedForecast(t, "F002", models.BetFeature, models.NoveltyKnownProblem, 74, models.OutcomeStrongResult),
	}
	got := CalibrationCurve(forecasts)
	want := []CurvePoint{{Name: "70-80%", Predicted: 73, Actual: 70, Count: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CalibrationCurve mismatch (-want +got):\n%s", diff)
	}
}

func TestBrierByBetType(t *testing.T) {
	forecasts := []models.Forecast{
		closedForecast(t, "F001", models.BetExperiment, models.NoveltyKnownProblem, 50, models.OutcomeMixedResult), // 0.01
		closedForecast(t, "F002", models.BetFeature, models.NoveltyKnownProblem, 80, models.OutcomeHitTarget),      // 0.04
		closedForecast(t, "F003", models.BetNewProduct, models.NoveltyNewBehavior, 80, models.OutcomeFailed),       // 0.64
		closedForecast(t, "F004", models.BetFeature, models.NoveltyNewPersona, 80, models.OutcomeFailed),           // 0.64
		openForecast("F005", 50),
	}

	got := BrierByBetType(forecasts)
	want := []BetTypeScore{
		{BetType: models.BetNewProduct, AvgBrier: 0.64, Count: 1},
		{BetType: models.BetFeature, AvgBrier: 0.34, Count: 2}, // unweighted
		{BetType: models.BetExperiment, AvgBrier: 0.01, Count: 1},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < eps })); diff != "" {
		t.Errorf("BrierByBetType mismatch (-want +got):\n%s", diff)
	}
}

func TestBestAndWorstPredictions(t *testing.T) {
	forecasts := []models.Forecast{
		closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 80, models.OutcomeHitTarget),   // 0.04
		closedForecast(t, "F002", models.BetFeature, models.NoveltyKnownProblem, 90, models.OutcomeFailed),      // 0.81
		openForecast("F003", 99),
		closedForecast(t, "F004", models.BetFeature, models.NoveltyKnownProblem, 100, models.OutcomeHitTarget),  // 0.00
		closedForecast(t, "F005", models.BetFeature, models.NoveltyKnownProblem, 20, models.OutcomeWeakResult),  // 0.00
		closedForecast(t, "F006", models.BetFeature, models.NoveltyKnownProblem, 40, models.OutcomeHitTarget),   // 0.36
	}

	ids := func(fs []models.Forecast) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.ID)
		}
		return out
	}

	// Ties (F004, F005) keep input order.
	if diff := cmp.Diff([]string{"F004", "F005", "F001"}, ids(BestPredictions(forecasts, 3))); diff != "" {
		t.Errorf("BestPredictions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"F002", "F006", "F001"}, ids(WorstPredictions(forecasts, 3))); diff != "" {
		t.Errorf("WorstPredictions mismatch (-want +got):\n%s", diff)
	}

	all := BestPredictions(forecasts, 50)
	if len(all) != 5 {
		t.Errorf("expected all 5 closed forecasts without padding, got %d", len(all))
	}
	for _, f := range all {
		if !f.IsClosed() {
			t.Errorf("open forecast %s included in best predictions", f.ID)
		}
	}
	for _, f := range WorstPredictions(forecasts, 50) {
		if !f.IsClosed() {
			t.Errorf("open forecast %s included in worst predictions", f.ID)
		}
	}

	if got := BestPredictions(forecasts, 0); len(got) != 0 {
		t.Errorf("expected no predictions for n=0, got %d", len(got))
	}
	if got := WorstPredictions(nil, 3); len(got) != 0 {
		t.Errorf("expected no predictions for empty input, got %d", len(got))
	}
}

func TestDashboardStats(t *testing.T) {
	forecasts := []models.Forecast{
		openForecast("F004", 55),
		closedForecast(t, "F003", models.BetFeature, models.NoveltyKnownProblem, 80, models.OutcomeHitTarget),
		closedForecast(t, "F002", models.BetNewProduct, models.NoveltyNewBehavior, 80, models.OutcomeFailed),
		openForecast("F001", 30),
	}

	s := DashboardStats(forecasts, 0)

	if s.Counts != (StatusCounts{Total: 4, Open: 2, Closed: 2}) {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	if s.OverallBrier == nil {
		t.Fatal("expected an overall score")
	}
	want := (0.04*1.5 + 0.64*4.5) / (1.5 + 4.5)
	if math.Abs(*s.OverallBrier-want) > eps {
		t.Errorf("expected overall %v, got %v", want, *s.OverallBrier)
	}
	if s.OverallLevel != scoring.Level(want) {
		t.Errorf("expected level %q, got %q", scoring.Level(want), s.OverallLevel)
	}
	if len(s.Calibration) != 1 || s.Calibration[0].ForecastCount != 2 {
		t.Errorf("unexpected calibration buckets: %+v", s.Calibration)
	}
	if len(s.Curve) != len(s.Calibration) {
		t.Errorf("curve should mirror calibration buckets")
	}
	if len(s.BetTypes) != 2 {
		t.Errorf("expected 2 bet types, got %d", len(s.BetTypes))
	}
	if len(s.Best) != 2 || s.Best[0].ID != "F003" {
		t.Errorf("unexpected best predictions: %v", s.Best)
	}
	if len(s.Worst) != 2 || s.Worst[0].ID != "F002" {
		t.Errorf("unexpected worst predictions: %v", s.Worst)
	}
	if len(s.Skipped) != 0 {
		t.Errorf("expected nothing skipped, got %v", s.Skipped)
	}
}

func TestDashboardStats_EmptyCollection(t *testing.T) {
	s := DashboardStats(nil, 3)
	if s.OverallBrier != nil {
		t.Errorf("expected no overall score, got %v", *s.OverallBrier)
	}
	if s.Counts.Total != 0 || len(s.Calibration) != 0 || len(s.Best) != 0 || len(s.Worst) != 0 {
		t.Errorf("expected empty stats, got %+v", s)
	}
}

func TestDashboardStats_SkipsMalformedForecasts(t *testing.T) {
	good := closedForecast(t, "F001", models.BetFeature, models.NoveltyKnownProblem, 80, models.OutcomeHitTarget)

	badBrier := closedForecast(t, "F002", models.BetFeature, models.NoveltyKnownProblem, 80, models.OutcomeHitTarget)
	nan := math.NaN()
	badBrier.BrierScore = &nan
	badBrier.WeightedBrier = &nan

	badBucket := closedForecast(t, "F003", models.BetIteration, models.NoveltyKnownProblem, 40, models.OutcomeFailed)
	badBucket.ConfidenceBucket = "somewhere"

	badType := closedForecast(t, "F004", models.BetFeature, models.NoveltyKnownProblem, 30, models.OutcomeFailed)
	badType.BetType = "Moonshot"

	s := DashboardStats([]models.Forecast{good, badBrier, badBucket, badType}, 3)

	if s.OverallBrier == nil || math.IsNaN(*s.OverallBrier) {
		t.Fatalf("expected a finite overall score, got %v", s.OverallBrier)
	}
	skipped := make(map[string]bool)
	for _, issue := range s.Skipped {
		if skipped[issue.ForecastID] {
			t.Errorf("forecast %s reported twice", issue.ForecastID)
		}
		skipped[issue.ForecastID] = true
	}
	for _, id := range []string{"F002", "F003", "F004"} {
		if !skipped[id] {
			t.Errorf("expected %s to be reported as skipped", id)
		}
	}
	if skipped["F001"] {
		t.Error("well-formed forecast must not be skipped")
	}
	for _, f := range s.Best {
		if f.ID == "F002" {
			t.Error("forecast with NaN brier must not be ranked")
		}
	}
	// The malformed bucket is excluded but the rest of the table is still built.
	for _, b := range s.Calibration {
		if b.Bucket == "somewhere" {
			t.Error("malformed bucket should be omitted")
		}
	}
	if len(s.Calibration) == 0 {
		t.Error("calibration should still be computed for well-formed forecasts")
	}
}
