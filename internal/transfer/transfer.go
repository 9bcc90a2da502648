// Package transfer reads and writes the export file: a single JSON document
// holding the forecasts, the user profile and the weight settings.
//
// Decoding checks the shape of the payload before anything is handed to the
// tracker. Any mismatch is reported as an import format error and nothing is
// returned, so a bad file can never partially replace state.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/sense/internal/models"
)

// FilePermissions is the mode of written export files.
const FilePermissions os.FileMode = 0o600

// optionalStringFields must be strings when present on a forecast.
var optionalStringFields = []string{"risks", "evidence", "imageData", "imageName"}

// Encode writes data as indented JSON.
func Encode(w io.Writer, data models.ExportData) error {
	if data.Forecasts == nil {
		data.Forecasts = []models.Forecast{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// Decode reads and validates an import payload. Only the parts present in the
// document are set on the result.
func Decode(r io.Reader) (models.ImportData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return models.ImportData{}, fmt.Errorf("failed to read import: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return models.ImportData{}, models.NewImportFormatError("not a JSON object")
	}

	var out models.ImportData

	forecastsRaw, ok := doc["forecasts"]
	if !ok {
		return models.ImportData{}, models.NewImportFormatError("missing forecasts array")
	}
	forecasts, err := decodeForecasts(forecastsRaw)
	if err != nil {
		return models.ImportData{}, err
	}
	out.Forecasts = forecasts

	if p, ok := doc["userProfile"]; ok {
		switch kind(p) {
		case 'n':
			out.HasUserProfile = true
		case '{':
			var profile models.UserProfile
			if err := json.Unmarshal(p, &profile); err != nil {
				return models.ImportData{}, models.NewImportFormatError("userProfile: " + err.Error())
			}
			out.UserProfile = &profile
			out.HasUserProfile = true
		default:
			return models.ImportData{}, models.NewImportFormatError("userProfile must be an object or null")
		}
	}

	if s, ok := doc["weightSettings"]; ok && kind(s) != 'n' {
		var settings models.WeightSettings
		if err := json.Unmarshal(s, &settings); err != nil {
			return models.ImportData{}, models.NewImportFormatError("weightSettings: " + err.Error())
		}
		if err := settings.Validate(); err != nil {
			return models.ImportData{}, models.NewImportFormatError("weightSettings: " + err.Error())
		}
		out.WeightSettings = &settings
	}

	return out, nil
}

func decodeForecasts(raw json.RawMessage) ([]models.Forecast, error) {
	if kind(raw) != '[' {
		return nil, models.NewImportFormatError("forecasts must be an array")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, models.NewImportFormatError("forecasts: " + err.Error())
	}

	forecasts := make([]models.Forecast, 0, len(elems))
	for i, elem := range elems {
		if err := checkForecastShape(elem); err != nil {
			return nil, models.NewImportFormatError(fmt.Sprintf("forecast %d: %v", i, err))
		}
		var f models.Forecast
		if err := json.Unmarshal(elem, &f); err != nil {
			return nil, models.NewImportFormatError(fmt.Sprintf("forecast %d: %v", i, err))
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, nil
}

func checkForecastShape(elem json.RawMessage) error {
	if kind(elem) != '{' {
		return fmt.Errorf("not an object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil {
		return err
	}

	if kind(fields["id"]) != '"' {
		return fmt.Errorf("id must be a string")
	}
	if kind(fields["prediction"]) != '"' {
		return fmt.Errorf("prediction must be a string")
	}
	if !isNumber(fields["probability"]) {
		return fmt.Errorf("probability must be a number")
	}
	for _, name := range optionalStringFields {
		if v, ok := fields[name]; ok && kind(v) != '"' {
			return fmt.Errorf("%s must be a string", name)
		}
	}
	return nil
}

// kind returns the first byte of a JSON value, which identifies its type:
// '{', '[', '"', 'n', 't', 'f', or a digit or '-' for numbers. Zero means empty.
func kind(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNumber(raw json.RawMessage) bool {
	k := kind(raw)
	return k == '-' || (k >= '0' && k <= '9')
}

// ReadFile decodes the import payload at path.
func ReadFile(path string) (models.ImportData, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.ImportData{}, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile writes an export atomically: the document goes to a temporary
// file in the same directory that is then renamed over path.
func WriteFile(path string, data models.ExportData) error {
	var buf bytes.Buffer
	if err := Encode(&buf, data); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), FilePermissions); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename export: %w", err)
	}
	return nil
}

// Filename returns the default export file name for t, e.g.
// "sense-export-2026-03-14.json". The date is taken in UTC.
func Filename(t time.Time) string {
	return "sense-export-" + t.UTC().Format("2006-01-02") + ".json"
}

// Size returns the length of the compact JSON encoding of data.
func Size(data models.ExportData) (int, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	return len(b), nil
}

// FormatSize renders a byte count for display, e.g. "1.5 kB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
