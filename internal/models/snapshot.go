package models

import (
	"time"
)

// ExportData is the full application state as written to an export file.
type ExportData struct {
	Forecasts      []Forecast     `json:"forecasts"`
	UserProfile    *UserProfile   `json:"userProfile"`
	WeightSettings WeightSettings `json:"weightSettings"`
	ExportedAt     time.Time      `json:"exportedAt"`
}

// ImportData carries the parts of an import payload that were present.
// Forecasts and WeightSettings are nil when absent. A null profile is a
// meaningful value (it clears the profile), so presence is tracked separately.
type ImportData struct {
	Forecasts      []Forecast
	UserProfile    *UserProfile
	HasUserProfile bool
	WeightSettings *WeightSettings
}

// ImportDataFromExport turns an export snapshot into a payload that replaces
// every part of the state.
func ImportDataFromExport(e ExportData) ImportData {
	forecasts := e.Forecasts
	if forecasts == nil {
		forecasts = []Forecast{}
	}
	settings := e.WeightSettings
	return ImportData{
		Forecasts:      forecasts,
		UserProfile:    e.UserProfile,
		HasUserProfile: true,
		WeightSettings: &settings,
	}
}
