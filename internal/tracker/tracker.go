// Package tracker owns the forecast collection, the user profile and the
// weight settings, and mediates every change to them.
//
// Each mutation is computed on a copy, written through the storage port and
// only then committed in memory, so a failed write leaves the manager
// unchanged and a read after a successful write always sees the new state.
//
// Forecast IDs come from a counter persisted next to the collection. The next
// ID is one above both the counter and the highest existing ID, which means a
// deleted forecast's number is never handed out again.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/sense/internal/analytics"
	"github.com/rewired-gh/sense/internal/logger"
	"github.com/rewired-gh/sense/internal/models"
	"github.com/rewired-gh/sense/internal/scoring"
	"github.com/rewired-gh/sense/internal/storage"
)

// Keys of the persisted records.
const (
	KeyForecasts      = "sense_forecasts"
	KeyUserProfile    = "sense_user_profile"
	KeyWeightSettings = "sense_weight_settings"
	KeySequence       = "sense_forecast_seq"
)

// ErrUsageUnsupported is returned by StorageUsage when the store cannot report its size.
var ErrUsageUnsupported = errors.New("storage backend does not report usage")

// Manager is the single owner and writer of the tracker state.
type Manager struct {
	mu    sync.RWMutex
	store storage.Store

	forecasts []models.Forecast // most recent first
	profile   *models.UserProfile
	settings  models.WeightSettings
	seq       int

	now   func() time.Time
	newID func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the UUID generator used for the profile ID.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// New creates a Manager and loads any state already in the store. Missing
// records start from defaults: no forecasts, no profile, default weights.
func New(store storage.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store:     store,
		forecasts: []models.Forecast{},
		settings:  models.DefaultWeightSettings(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	var forecasts []models.Forecast
	if _, err := m.loadJSON(KeyForecasts, &forecasts); err != nil {
		return err
	}
	if forecasts != nil {
		m.forecasts = forecasts
	}

	var profile *models.UserProfile
	if _, err := m.loadJSON(KeyUserProfile, &profile); err != nil {
		return err
	}
	m.profile = profile

	var settings models.WeightSettings
	found, err := m.loadJSON(KeyWeightSettings, &settings)
	if err != nil {
		return err
	}
	if found {
		if err := settings.Validate(); err != nil {
			logger.Warn("Stored weight settings are incomplete, scoring may fail: %v", err)
		}
		m.settings = settings
	}

	var seq int
	if _, err := m.loadJSON(KeySequence, &seq); err != nil {
		return err
	}
	m.seq = max(seq, maxSequence(m.forecasts))

	logger.Debug("Loaded state: %d forecasts, profile=%v, next ID %s",
		len(m.forecasts), m.profile != nil, formatID(m.seq+1))
	return nil
}

func (m *Manager) loadJSON(key string, v interface{}) (bool, error) {
	data, err := m.store.Load(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) saveJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := m.store.Save(key, data); err != nil {
		logger.Error("Failed to persist %s: %v", key, err)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC()
}

// indexOf returns the position of id in the collection. Caller holds the lock.
func (m *Manager) indexOf(id string) int {
	for i := range m.forecasts {
		if m.forecasts[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateForecast validates the input, freezes the confidence bucket and weight
// from the current settings, and prepends the new open forecast.
func (m *Manager) CreateForecast(data models.NewForecastData) (models.Forecast, error) {
	if err := data.Validate(); err != nil {
		return models.Forecast{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	weight, err := scoring.ComputeWeight(data.BetType, data.Novelty, m.settings)
	if err != nil {
		return models.Forecast{}, err
	}

	seq := max(m.seq, maxSequence(m.forecasts)) + 1
	f := models.Forecast{
		ID:               formatID(seq),
		DateCreated:      m.timestamp(),
		Status:           models.StatusOpen,
		BetType:          data.BetType,
		Prediction:       data.Prediction,
		SuccessMetric:    data.SuccessMetric,
		TargetThreshold:  data.TargetThreshold,
		ByWhen:           data.ByWhen,
		Probability:      data.Probability,
		ConfidenceBucket: scoring.ConfidenceBucket(data.Probability),
		Novelty:          data.Novelty,
		Weight:           weight,
		Risks:            data.Risks,
		Evidence:         data.Evidence,
		ImageData:        data.ImageData,
		ImageName:        data.ImageName,
	}

	next := make([]models.Forecast, 0, len(m.forecasts)+1)
	next = append(next, f)
	next = append(next, m.forecasts...)

	// The counter goes first: if the collection write then fails, skipping a
	// number is harmless.
	if err := m.saveJSON(KeySequence, seq); err != nil {
		return models.Forecast{}, err
	}
	if err := m.saveJSON(KeyForecasts, next); err != nil {
		return models.Forecast{}, err
	}
	m.seq = seq
	m.forecasts = next

	logger.Info("Created forecast %s (%s, p=%d, weight=%.2f)", f.ID, f.BetType, f.Probability, f.Weight)
	return f.Clone(), nil
}

// CloseForecast records the outcome of an open forecast and computes its
// scores from the weight frozen at creation. Closing twice is an error.
func (m *Manager) CloseForecast(id string, data models.CloseForecastData) (models.Forecast, error) {
	if err := data.Validate(); err != nil {
		return models.Forecast{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return models.Forecast{}, models.NewNotFoundError(id)
	}
	current := m.forecasts[idx]
	if current.IsClosed() {
		return models.Forecast{}, models.NewAlreadyClosedError(id)
	}

	outcomeScore, err := scoring.OutcomeScore(data.ActualOutcome)
	if err != nil {
		return models.Forecast{}, err
	}
	brier, err := scoring.BrierScore(current.Probability, data.ActualOutcome)
	if err != nil {
		return models.Forecast{}, fmt.Errorf("cannot score forecast %s: %w", id, err)
	}
	weighted := scoring.WeightedBrier(brier, current.Weight)
	outcome := data.ActualOutcome
	closedAt := m.timestamp()

	closed := current.Clone()
	closed.Status = models.StatusClosed
	closed.ActualOutcome = &outcome
	closed.OutcomeScore = &outcomeScore
	closed.BrierScore = &brier
	closed.WeightedBrier = &weighted
	closed.LearningNote = data.LearningNote
	closed.ClosedAt = &closedAt

	next := make([]models.Forecast, len(m.forecasts))
	copy(next, m.forecasts)
	next[idx] = closed

	if err := m.saveJSON(KeyForecasts, next); err != nil {
		return models.Forecast{}, err
	}
	m.forecasts = next

	logger.Info("Closed forecast %s: %s, brier=%s (%s)", id, outcome, scoring.FormatScore(brier), scoring.Level(brier))
	return closed.Clone(), nil
}

// DeleteForecast removes a forecast. Remaining IDs are not renumbered.
func (m *Manager) DeleteForecast(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return models.NewNotFoundError(id)
	}

	next := make([]models.Forecast, 0, len(m.forecasts)-1)
	next = append(next, m.forecasts[:idx]...)
	next = append(next, m.forecasts[idx+1:]...)

	if err := m.saveJSON(KeyForecasts, next); err != nil {
		return err
	}
	m.forecasts = next

	logger.Info("Deleted forecast %s", id)
	return nil
}

// Forecast returns a copy of the forecast with the given ID.
func (m *Manager) Forecast(id string) (models.Forecast, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.indexOf(id)
	if idx < 0 {
		return models.Forecast{}, models.NewNotFoundError(id)
	}
	return m.forecasts[idx].Clone(), nil
}

// Forecasts returns a snapshot of the collection, most recent first.
func (m *Manager) Forecasts() []models.Forecast {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.CloneForecasts(m.forecasts)
}

// List returns the forecasts matching filter, most recent first.
func (m *Manager) List(filter models.ForecastFilter) []models.Forecast {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Forecast{}
	for i := range m.forecasts {
		if filter.Match(&m.forecasts[i]) {
			out = append(out, m.forecasts[i].Clone())
		}
	}
	return out
}

// Dashboard computes dashboard statistics over the current collection.
func (m *Manager) Dashboard(topN int) analytics.Stats {
	return analytics.DashboardStats(m.Forecasts(), topN)
}

// UpdateProfile creates the profile on first call and afterwards replaces the
// editable fields, keeping the original ID and creation time.
func (m *Manager) UpdateProfile(data models.ProfileData) (models.UserProfile, error) {
	if err := data.Validate(); err != nil {
		return models.UserProfile{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := models.UserProfile{
		FullName: data.FullName,
		Company:  data.Company,
		Email:    data.Email,
	}
	if m.profile != nil {
		p.ID = m.profile.ID
		p.CreatedAt = m.profile.CreatedAt
	} else {
		p.ID = m.newID()
		p.CreatedAt = m.timestamp()
	}

	if err := m.saveJSON(KeyUserProfile, &p); err != nil {
		return models.UserProfile{}, err
	}
	m.profile = &p

	logger.Info("Updated profile %s", p.ID)
	return p, nil
}

// Profile returns the user profile, if one exists.
func (m *Manager) Profile() (models.UserProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.profile == nil {
		return models.UserProfile{}, false
	}
	return *m.profile, true
}

// HasProfile reports whether onboarding has been completed.
func (m *Manager) HasProfile() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile != nil
}

// WeightSettings returns a copy of the current weight settings.
func (m *Manager) WeightSettings() models.WeightSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Clone()
}

// UpdateWeightSettings replaces the settings wholesale. Weights already frozen
// on existing forecasts are not touched.
func (m *Manager) UpdateWeightSettings(settings models.WeightSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := settings.Clone()
	if err := m.saveJSON(KeyWeightSettings, next); err != nil {
		return err
	}
	m.settings = next

	logger.Info("Updated weight settings")
	return nil
}

// ClearAll resets forecasts, profile, settings and the ID counter. Each field
// is committed as soon as its own key is saved, so a failure part way leaves
// memory matching what was persisted.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.saveJSON(KeyForecasts, []models.Forecast{}); err != nil {
		return err
	}
	m.forecasts = []models.Forecast{}

	if err := m.saveJSON(KeyUserProfile, nil); err != nil {
		return err
	}
	m.profile = nil

	defaults := models.DefaultWeightSettings()
	if err := m.saveJSON(KeyWeightSettings, defaults); err != nil {
		return err
	}
	m.settings = defaults

	if err := m.saveJSON(KeySequence, 0); err != nil {
		return err
	}
	m.seq = 0

	logger.Info("Cleared all data")
	return nil
}

// Import replaces whichever parts of the state are present in data. Nothing is
// merged or deduplicated; field-level validation is the caller's job. The ID
// counter is raised to cover imported IDs. Each part is committed once its key
// is saved; a failure stops the import with earlier parts already applied.
func (m *Manager) Import(data models.ImportData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if data.Forecasts != nil {
		forecasts := models.CloneForecasts(data.Forecasts)
		seq := max(m.seq, maxSequence(forecasts))
		if err := m.saveJSON(KeySequence, seq); err != nil {
			return err
		}
		m.seq = seq
		if err := m.saveJSON(KeyForecasts, forecasts); err != nil {
			return err
		}
		m.forecasts = forecasts
	}

	if data.HasUserProfile {
		var profile *models.UserProfile
		if data.UserProfile != nil {
			p := *data.UserProfile
			profile = &p
		}
		if err := m.saveJSON(KeyUserProfile, profile); err != nil {
			return err
		}
		m.profile = profile
	}

	if data.WeightSettings != nil {
		settings := data.WeightSettings.Clone()
		if err := m.saveJSON(KeyWeightSettings, settings); err != nil {
			return err
		}
		m.settings = settings
	}

	logger.Info("Imported data: forecasts=%v profile=%v settings=%v",
		data.Forecasts != nil, data.HasUserProfile, data.WeightSettings != nil)
	return nil
}

// Export returns a snapshot of the full state stamped with the export time.
func (m *Manager) Export() models.ExportData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var profile *models.UserProfile
	if m.profile != nil {
		p := *m.profile
		profile = &p
	}
	return models.ExportData{
		Forecasts:      models.CloneForecasts(m.forecasts),
		UserProfile:    profile,
		WeightSettings: m.settings.Clone(),
		ExportedAt:     m.timestamp(),
	}
}

// StorageUsage returns the bytes used by persisted state.
func (m *Manager) StorageUsage() (int64, error) {
	r, ok := m.store.(storage.UsageReporter)
	if !ok {
		return 0, ErrUsageUnsupported
	}
	return r.Usage()
}
