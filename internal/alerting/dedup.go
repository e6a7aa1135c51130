package alerting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
)

// dedupSignature identifies an alert for duplicate suppression.
// User scoping is implicit: candidates and existing alerts are compared per
// user, so the signature itself only carries (type, title).
func dedupSignature(alertType entities.AlertType, title string) string {
	return string(alertType) + ":" + title
}

// FilterDuplicates drops candidates whose (type, title) signature matches an
// existing active alert or an earlier candidate in the same batch. First
// occurrence wins. Pure function; persistence is the caller's job.
func FilterDuplicates(candidates []entities.Alert, existing []entities.Alert) []entities.Alert {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for i := range existing {
		seen[dedupSignature(existing[i].Type, existing[i].Title)] = struct{}{}
	}

	kept := make([]entities.Alert, 0, len(candidates))
	for i := range candidates {
		sig := dedupSignature(candidates[i].Type, candidates[i].Title)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		kept = append(kept, candidates[i])
	}
	return kept
}

// CleanupOldAlerts applies the retention policy: mark overdue alerts expired,
// delete long-expired rows and purge stale planting-opportunity alerts.
// This bounds storage growth; it is not a correctness requirement.
func CleanupOldAlerts(ctx context.Context, alerts repository.AlertRepository, now time.Time, log *zap.Logger) {
	expired, err := alerts.ExpireOverdue(ctx, now)
	if err != nil {
		log.Error("expiry sweep failed", zap.Error(err))
	} else if expired > 0 {
		log.Info("expired overdue alerts", zap.Int64("count", expired))
	}

	deleted, err := alerts.DeleteExpiredBefore(ctx, now.AddDate(0, 0, -plantingRetentionDays))
	if err != nil {
		log.Error("expired alert purge failed", zap.Error(err))
	}

	purged, err := alerts.DeleteTypeOlderThan(ctx, entities.AlertTypePlanting, now.AddDate(0, 0, -plantingRetentionDays))
	if err != nil {
		log.Error("planting alert purge failed", zap.Error(err))
	}
	if deleted+purged > 0 {
		log.Info("alert cleanup completed",
			zap.Int64("expired_deleted", deleted),
			zap.Int64("planting_purged", purged))
	}
}
