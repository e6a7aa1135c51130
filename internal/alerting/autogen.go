package alerting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
)

// AutoRunSummary reports one auto-generation sweep.
type AutoRunSummary struct {
	RunID           string `json:"run_id"`
	UsersProcessed  int    `json:"users_processed"`
	AlertsGenerated int    `json:"alerts_generated"`
	Duplicates      int    `json:"duplicates"`
	Errors          int    `json:"errors"`
}

// AutoService drives scheduled alert generation from user preferences. Each
// sweep walks the preferences with auto-generation enabled, checks whether
// the preference's schedule is due and runs the matching generator family.
type AutoService struct {
	prefs     repository.PreferenceRepository
	generator *Generator
	metrics   *Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewAutoService creates the auto-generation service.
func NewAutoService(prefs repository.PreferenceRepository, generator *Generator, metrics *Metrics, log *zap.Logger, clock func() time.Time) *AutoService {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &AutoService{
		prefs:     prefs,
		generator: generator,
		metrics:   metrics,
		log:       log,
		now:       clock,
	}
}

// RunAutoGeneration executes one sweep. Preferences whose schedule is not due
// are skipped; a failing user does not stop the sweep. A preference is marked
// as generated only after its generator ran, so a failed run is retried on
// the next sweep.
func (s *AutoService) RunAutoGeneration(ctx context.Context) (*AutoRunSummary, error) {
	summary := &AutoRunSummary{RunID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", summary.RunID))

	prefs, err := s.prefs.ListAutoEnabled(ctx)
	if err != nil {
		return summary, err
	}

	now := s.now()
	processed := map[uint]bool{}
	for i := range prefs {
		pref := &prefs[i]
		if processed[pref.UserID] {
			// One pass per user per sweep. The extra preference stays
			// un-stamped so its schedule fires on a later sweep.
			continue
		}
		if !pref.ShouldAutoGenerate(now) {
			continue
		}

		var created, duplicates int
		var genErr error
		// A planting-only preference runs just the monthly suggestions;
		// anything else triggers the full generator pass for the user.
		if pref.AlertType == entities.AlertTypePlanting {
			created, duplicates, genErr = s.generator.GeneratePlantingForUser(ctx, pref.UserID)
		} else {
			created, duplicates, genErr = s.generator.GenerateForUser(ctx, pref.UserID)
		}
		if genErr != nil {
			summary.Errors++
			log.Error("auto-generation failed for user",
				zap.Uint("user_id", pref.UserID),
				zap.String("alert_type", string(pref.AlertType)),
				zap.Error(genErr))
			continue
		}

		processed[pref.UserID] = true
		summary.UsersProcessed++
		summary.AlertsGenerated += created
		summary.Duplicates += duplicates

		if err := s.prefs.MarkAutoGenerated(ctx, pref.ID, now); err != nil {
			summary.Errors++
			log.Error("failed to record auto-generation timestamp",
				zap.Uint("preference_id", pref.ID), zap.Error(err))
		}
	}

	s.metrics.AutoGenerationRuns.Inc()
	log.Info("auto-generation sweep finished",
		zap.Int("users_processed", summary.UsersProcessed),
		zap.Int("alerts_generated", summary.AlertsGenerated),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// EnsureDefaultPreferences creates the baseline planting preference for a
// user who has none: weekly suggestions on Monday mornings, web channel only.
// Existing rows are left untouched.
func EnsureDefaultPreferences(ctx context.Context, prefs repository.PreferenceRepository, userID uint) error {
	_, err := prefs.Get(ctx, userID, entities.AlertTypePlanting)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrPreferenceNotFound) {
		return err
	}

	autoTime, err := entities.ParseDayTime("08:00")
	if err != nil {
		return err
	}
	monday := 0

	pref := entities.DefaultPreference(userID, entities.AlertTypePlanting)
	pref.EmailEnabled = false
	pref.AutoFrequency = entities.FrequencyWeekly
	pref.AutoTime = &autoTime
	pref.AutoWeekday = &monday
	return prefs.Upsert(ctx, pref)
}
