package tracker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rewired-gh/sense/internal/models"
)

const idPrefix = "F"

// formatID renders a sequence number as "F001", "F002", ... Numbers above 999
// simply grow wider.
func formatID(n int) string {
	return fmt.Sprintf("%s%03d", idPrefix, n)
}

// parseID extracts the numeric suffix of a forecast ID.
func parseID(id string) (int, bool) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, idPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// maxSequence scans every ID, not just the first element, so the result does
// not depend on collection order. IDs without a numeric suffix are ignored.
func maxSequence(forecasts []models.Forecast) int {
	highest := 0
	for i := range forecasts {
		if n, ok := parseID(forecasts[i].ID); ok && n > highest {
			highest = n
		}
	}
	return highest
}
