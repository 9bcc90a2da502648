package cmd

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/sense/internal/models"
)

// matchOption finds value among options, ignoring case and surrounding space.
func matchOption[T ~string](kind, value string, options []T) (T, error) {
	v := strings.TrimSpace(value)
	for _, o := range options {
		if strings.EqualFold(string(o), v) {
			return o, nil
		}
	}
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = fmt.Sprintf("%q", string(o))
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q, expected one of %s", kind, value, strings.Join(names, ", "))
}

func parseBetType(s string) (models.BetType, error) {
	return matchOption("bet type", s, models.BetTypes)
}

func parseNovelty(s string) (models.Novelty, error) {
	return matchOption("novelty", s, models.Novelties)
}

func parseMetric(s string) (models.SuccessMetric, error) {
	return matchOption("success metric", s, models.SuccessMetrics)
}

func parseOutcome(s string) (models.OutcomeLevel, error) {
	return matchOption("outcome", s, models.OutcomeLevels)
}

func parseFilter(s string) (models.ForecastFilter, error) {
	return matchOption("filter", s, []models.ForecastFilter{models.FilterAll, models.FilterOpen, models.FilterClosed})
}
