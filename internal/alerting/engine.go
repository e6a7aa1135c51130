package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
	"github.com/agroalert/agroalert/internal/notify"
	"github.com/agroalert/agroalert/internal/weather"
)

// EngineConfig collects the engine's dependencies.
type EngineConfig struct {
	Alerts      repository.AlertRepository
	Rules       repository.AlertRuleRepository
	Preferences repository.PreferenceRepository
	Users       repository.UserRepository
	Weather     weather.Provider
	Notifier    notify.Notifier
	Metrics     *Metrics
	Log         *zap.Logger

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// Engine evaluates rules against per-user context snapshots, creates alerts,
// delivers pending ones and sweeps expired ones.
type Engine struct {
	alerts   repository.AlertRepository
	rules    repository.AlertRuleRepository
	prefs    repository.PreferenceRepository
	users    repository.UserRepository
	weather  weather.Provider
	notifier notify.Notifier
	metrics  *Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewEngine creates a new alert engine.
func NewEngine(cfg EngineConfig) *Engine {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{
		alerts:   cfg.Alerts,
		rules:    cfg.Rules,
		prefs:    cfg.Preferences,
		users:    cfg.Users,
		weather:  cfg.Weather,
		notifier: cfg.Notifier,
		metrics:  metrics,
		log:      log,
		now:      now,
	}
}

// ProcessSummary reports what a full processing batch did.
type ProcessSummary struct {
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Expired    int `json:"expired"`
	Errors     int `json:"errors"`
}

// ProcessAllAlerts runs one full batch: deliver due pending alerts, evaluate
// all active rules against all active users, then sweep expired alerts.
// Per-alert and per-user failures are logged and counted, never fatal; only
// the phase-level queries propagate errors.
func (e *Engine) ProcessAllAlerts(ctx context.Context) (*ProcessSummary, error) {
	start := e.now()
	defer func() {
		e.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	summary := &ProcessSummary{}

	if err := e.deliverPending(ctx, summary); err != nil {
		return summary, err
	}
	if err := e.evaluateRules(ctx, summary); err != nil {
		return summary, err
	}

	expired, err := e.alerts.ExpireOverdue(ctx, e.now())
	if err != nil {
		return summary, fmt.Errorf("expiry sweep failed: %w", err)
	}
	summary.Expired = int(expired)
	e.metrics.AlertsExpired.Add(float64(expired))

	e.log.Info("alert processing completed",
		zap.Int("delivered", summary.Delivered),
		zap.Int("created", summary.Created),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("expired", summary.Expired),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// deliverPending delivers every pending alert whose schedule has arrived and
// that passes the user's preference gate. Failed deliveries increment the
// retry bookkeeping; after maxDeliveryRetries the alert is forced to expired.
func (e *Engine) deliverPending(ctx context.Context, summary *ProcessSummary) error {
	now := e.now()
	pending, err := e.alerts.ListPendingDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load pending alerts: %w", err)
	}

	for i := range pending {
		alert := &pending[i]
		if alert.IsExpired(now) {
			// The sweep at the end of the batch will mark it.
			continue
		}

		pref, err := e.prefs.GetOrDefault(ctx, alert.UserID, alert.Type)
		if err != nil {
			e.log.Error("preference lookup failed",
				zap.Uint("alert_id", alert.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if !pref.ShouldDeliver(alert.Priority, now) {
			// Suppressed for now (quiet hours, min priority); the alert
			// stays pending and is reconsidered next batch.
			continue
		}

		if e.deliverAlert(ctx, alert, pref, now) {
			summary.Delivered++
		} else {
			summary.Failed++
		}
	}
	return nil
}

// deliverAlert attempts delivery on every enabled channel. The web channel
// always succeeds: a persisted alert row is the web delivery. Reports whether
// the alert ended up sent.
func (e *Engine) deliverAlert(ctx context.Context, alert *entities.Alert, pref *entities.UserAlertPreference, now time.Time) bool {
	var failures []error
	for _, channel := range pref.EnabledChannels() {
		var err error
		switch channel {
		case entities.ChannelWeb:
			// Nothing to do: the row itself is the web notification.
		case entities.ChannelEmail:
			if e.notifier == nil {
				continue
			}
			err = e.notifier.SendEmailAlert(ctx, alert)
		case entities.ChannelSMS:
			if e.notifier == nil {
				continue
			}
			err = e.notifier.SendSMSAlert(ctx, alert)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			failures = append(failures, err)
		}
		e.metrics.Deliveries.WithLabelValues(channel, outcome).Inc()
	}

	if len(failures) > 0 {
		alert.RetryCount++
		alert.LastRetryAt = &now
		if alert.RetryCount >= maxDeliveryRetries {
			alert.Status = entities.StatusExpired
			e.metrics.AlertsExpired.Inc()
			e.log.Warn("alert expired after repeated delivery failures",
				zap.Uint("alert_id", alert.ID),
				zap.Int("retry_count", alert.RetryCount),
				zap.Error(errors.Join(failures...)))
		} else {
			e.log.Warn("alert delivery failed, will retry",
				zap.Uint("alert_id", alert.ID),
				zap.Int("retry_count", alert.RetryCount),
				zap.Error(errors.Join(failures...)))
		}
		if err := e.alerts.Update(ctx, alert); err != nil {
			e.log.Error("failed to record delivery failure",
				zap.Uint("alert_id", alert.ID), zap.Error(err))
		}
		return false
	}

	alert.MarkAsSent(now)
	if err := e.alerts.Update(ctx, alert); err != nil {
		e.log.Error("failed to mark alert sent",
			zap.Uint("alert_id", alert.ID), zap.Error(err))
		return false
	}
	return true
}

// evaluateRules tests every active rule against every active user, respecting
// per-user cooldowns, and persists deduplicated matches.
func (e *Engine) evaluateRules(ctx context.Context, summary *ProcessSummary) error {
	rules, err := e.rules.GetActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active rules: %w", err)
	}
	compiled := make([]*CompiledRule, 0, len(rules))
	for i := range rules {
		cr, err := CompileRule(rules[i])
		if err != nil {
			// Fail-closed: a malformed rule never alerts.
			e.metrics.RuleFailures.Inc()
			e.log.Error("skipping malformed alert rule",
				zap.Uint("rule_id", rules[i].ID), zap.Error(err))
			continue
		}
		compiled = append(compiled, cr)
	}
	if len(compiled) == 0 {
		return nil
	}

	users, err := e.users.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active users: %w", err)
	}

	for i := range users {
		user := &users[i]
		created, duplicates, err := e.evaluateRulesForUser(ctx, user, compiled)
		if err != nil {
			// One user's bad data must not block the others.
			e.log.Error("rule evaluation failed for user",
				zap.Uint("user_id", user.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		summary.Created += created
		summary.Duplicates += duplicates
	}
	return nil
}

func (e *Engine) evaluateRulesForUser(ctx context.Context, user *entities.User, compiled []*CompiledRule) (created, duplicates int, err error) {
	now := e.now()
	snapshot, err := e.currentWeather(ctx, user)
	if err != nil {
		return 0, 0, fmt.Errorf("weather snapshot failed: %w", err)
	}
	userCtx := BuildUserContext(user, user.Cultures, snapshot, now)

	var candidates []entities.Alert
	for _, cr := range compiled {
		rule := &cr.Rule
		if rule.CooldownHours > 0 {
			since := now.Add(-time.Duration(rule.CooldownHours) * time.Hour)
			recent, err := e.alerts.HasRecentRuleAlert(ctx, user.ID, rule.ID, since)
			if err != nil {
				return 0, 0, err
			}
			if recent {
				continue
			}
		}

		e.metrics.RulesEvaluated.Inc()
		if !cr.Matches(userCtx) {
			continue
		}
		e.metrics.RuleMatches.Inc()

		rendered, err := cr.Render(userCtx)
		if err != nil {
			e.metrics.RuleFailures.Inc()
			e.log.Error("rule rendering failed",
				zap.Uint("rule_id", rule.ID), zap.Error(err))
			continue
		}

		expiresAt := now.Add(time.Duration(rule.ExpiresAfterHours) * time.Hour)
		alert := entities.Alert{
			UserID:     user.ID,
			Type:       rule.AlertType,
			Priority:   rule.Priority,
			Status:     entities.StatusPending,
			Title:      rendered.Title,
			Message:    rendered.Message,
			ActionText: rendered.ActionText,
			ActionURL:  rendered.ActionURL,
			ExpiresAt:  &expiresAt,
		}
		if err := alert.SetMetadata(map[string]any{
			MetaRuleID:   rule.ID,
			MetaRuleName: rule.Name,
		}); err != nil {
			e.log.Error("failed to tag alert metadata",
				zap.Uint("rule_id", rule.ID), zap.Error(err))
			continue
		}
		candidates = append(candidates, alert)
	}

	return e.persistCandidates(ctx, user.ID, candidates)
}

// persistCandidates runs the dedup filter against the user's active alerts
// and stores the survivors.
func (e *Engine) persistCandidates(ctx context.Context, userID uint, candidates []entities.Alert) (created, duplicates int, err error) {
	return persistWithDedup(ctx, e.alerts, e.metrics, e.log, userID, candidates)
}

// persistWithDedup is shared by the rule engine and the generators: both
// produce candidate batches that must be checked against the user's still
// active alerts before they hit the database.
func persistWithDedup(ctx context.Context, alerts repository.AlertRepository, metrics *Metrics, log *zap.Logger, userID uint, candidates []entities.Alert) (created, duplicates int, err error) {
	if len(candidates) == 0 {
		return 0, 0, nil
	}
	existing, err := alerts.ListByUser(ctx, repository.AlertFilter{
		UserID:   userID,
		Statuses: entities.ActiveStatuses,
	})
	if err != nil {
		return 0, 0, err
	}

	kept := FilterDuplicates(candidates, existing)
	duplicates = len(candidates) - len(kept)
	if duplicates > 0 {
		metrics.DuplicatesFiltered.Add(float64(duplicates))
		log.Info("duplicate alerts suppressed",
			zap.Uint("user_id", userID), zap.Int("count", duplicates))
	}

	for i := range kept {
		if err := alerts.Create(ctx, &kept[i]); err != nil {
			return created, duplicates, err
		}
		metrics.AlertsCreated.WithLabelValues(string(kept[i].Type)).Inc()
		created++
	}
	return created, duplicates, nil
}

func (e *Engine) currentWeather(ctx context.Context, user *entities.User) (*weather.Snapshot, error) {
	if e.weather == nil {
		return nil, nil
	}
	var lat, lng float64
	if user.LocationLat != nil {
		lat = *user.LocationLat
	}
	if user.LocationLng != nil {
		lng = *user.LocationLng
	}
	return e.weather.Current(ctx, lat, lng)
}

// ManualAlertParams are the inputs for direct alert creation.
type ManualAlertParams struct {
	UserID     uint
	Type       entities.AlertType
	Priority   entities.AlertPriority
	Title      string
	Message    string
	ActionText string
	ActionURL  string
	CultureID  *uint
	TTLHours   int
}

// CreateManualAlert inserts an alert directly, bypassing rule evaluation.
// Defaults: type general, priority medium, TTL 72 hours. The alert is tagged
// manual in its metadata for provenance.
func (e *Engine) CreateManualAlert(ctx context.Context, params ManualAlertParams) (*entities.Alert, error) {
	if params.UserID == 0 {
		return nil, fmt.Errorf("manual alert requires a user")
	}
	if params.Title == "" {
		return nil, fmt.Errorf("manual alert requires a title")
	}
	if params.Type == "" {
		params.Type = entities.AlertTypeGeneral
	}
	if params.Priority == "" {
		params.Priority = entities.PriorityMedium
	}
	if params.TTLHours <= 0 {
		params.TTLHours = manualAlertTTLHours
	}

	now := e.now()
	expiresAt := now.Add(time.Duration(params.TTLHours) * time.Hour)
	alert := &entities.Alert{
		UserID:     params.UserID,
		Type:       params.Type,
		Priority:   params.Priority,
		Status:     entities.StatusPending,
		Title:      params.Title,
		Message:    params.Message,
		ActionText: params.ActionText,
		ActionURL:  params.ActionURL,
		CultureID:  params.CultureID,
		ExpiresAt:  &expiresAt,
	}
	if err := alert.SetMetadata(map[string]any{MetaManual: true}); err != nil {
		return nil, fmt.Errorf("failed to tag manual alert: %w", err)
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	e.metrics.AlertsCreated.WithLabelValues(string(alert.Type)).Inc()
	return alert, nil
}

// GetUserAlerts returns the user's alerts, newest first, excluding expired
// ones and optionally excluding read ones.
func (e *Engine) GetUserAlerts(ctx context.Context, userID uint, limit int, includeRead bool) ([]entities.Alert, error) {
	statuses := []entities.AlertStatus{
		entities.StatusPending, entities.StatusActive, entities.StatusSent,
		entities.StatusResolved, entities.StatusDismissed,
	}
	if includeRead {
		statuses = append(statuses, entities.StatusRead)
	}
	return e.alerts.ListByUser(ctx, repository.AlertFilter{
		UserID:   userID,
		Statuses: statuses,
		Limit:    limit,
	})
}

// MarkAlertAsRead marks the user's alert read. Returns (false, nil) when the
// alert does not exist or belongs to someone else; repeated calls on an
// already-read alert return true without touching ReadAt.
func (e *Engine) MarkAlertAsRead(ctx context.Context, alertID, userID uint) (bool, error) {
	return e.transition(ctx, alertID, userID, entities.StatusRead, func(a *entities.Alert, now time.Time) bool {
		return a.MarkAsRead(now)
	})
}

// DismissAlert dismisses the user's alert. Ownership and idempotency follow
// MarkAlertAsRead.
func (e *Engine) DismissAlert(ctx context.Context, alertID, userID uint) (bool, error) {
	return e.transition(ctx, alertID, userID, entities.StatusDismissed, func(a *entities.Alert, now time.Time) bool {
		return a.Dismiss(now)
	})
}

// ResolveAlert resolves the user's alert.
func (e *Engine) ResolveAlert(ctx context.Context, alertID, userID uint) (bool, error) {
	return e.transition(ctx, alertID, userID, entities.StatusResolved, func(a *entities.Alert, _ time.Time) bool {
		return a.Resolve()
	})
}

func (e *Engine) transition(ctx context.Context, alertID, userID uint, target entities.AlertStatus, apply func(*entities.Alert, time.Time) bool) (bool, error) {
	alert, err := e.alerts.Get(ctx, alertID)
	if errors.Is(err, repository.ErrAlertNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if alert.UserID != userID {
		return false, nil
	}
	if !apply(alert, e.now()) {
		// Already in the target state counts as success (idempotent);
		// any other terminal state refuses the transition.
		return alert.Status == target, nil
	}
	if err := e.alerts.Update(ctx, alert); err != nil {
		return false, err
	}
	return true, nil
}

// GetAlertStats returns per-user alert counters.
func (e *Engine) GetAlertStats(ctx context.Context, userID uint) (*repository.AlertStats, error) {
	return e.alerts.Stats(ctx, userID)
}

// Cleanup applies the retention policy (expiry sweep plus purges).
func (e *Engine) Cleanup(ctx context.Context) {
	CleanupOldAlerts(ctx, e.alerts, e.now(), e.log)
}
