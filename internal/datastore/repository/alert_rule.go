package repository

import (
	"context"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// AlertRuleRepository handles alert rule CRUD.
type AlertRuleRepository interface {
	ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error)
	GetRule(ctx context.Context, id uint) (*entities.AlertRule, error)
	CreateRule(ctx context.Context, rule *entities.AlertRule) error
	UpdateRule(ctx context.Context, rule *entities.AlertRule) error
	DeleteRule(ctx context.Context, id uint) error
	ToggleRule(ctx context.Context, id uint, active bool) error

	GetActiveRules(ctx context.Context) ([]entities.AlertRule, error)
	CountRulesByName(ctx context.Context, name string) (int64, error)
}

// AlertRuleFilter controls rule listing queries.
type AlertRuleFilter struct {
	AlertType entities.AlertType
	Active    *bool
	BuiltIn   *bool
}
