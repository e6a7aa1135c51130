package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/alerting"
	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
)

// ListRules returns all alert rules, optionally filtered.
func (c *Controller) ListRules(ctx echo.Context) error {
	filter := repository.AlertRuleFilter{
		AlertType: entities.AlertType(ctx.QueryParam("alert_type")),
	}
	if raw := ctx.QueryParam("active"); raw != "" {
		v := raw == "true"
		filter.Active = &v
	}
	if raw := ctx.QueryParam("built_in"); raw != "" {
		v := raw == "true"
		filter.BuiltIn = &v
	}

	rules, err := c.rules.ListRules(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list alert rules", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to list alert rules"))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule returns a single alert rule by ID.
func (c *Controller) GetRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid rule ID"))
	}

	rule, err := c.rules.GetRule(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, errorBody("Alert rule not found"))
		}
		c.log.Error("failed to get alert rule", zap.Uint("rule_id", id), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to get alert rule"))
	}
	return ctx.JSON(http.StatusOK, rule)
}

// validateRule checks the fields every stored rule needs. The condition tree
// is compiled here so malformed trees are rejected at write time instead of
// silently never matching.
func validateRule(rule *entities.AlertRule) string {
	if rule.Name == "" {
		return "Rule name is required"
	}
	if rule.AlertType == "" {
		return "Alert type is required"
	}
	if rule.TitleTemplate == "" {
		return "Title template is required"
	}
	if _, err := alerting.CompileRule(*rule); err != nil {
		return "Invalid conditions: " + err.Error()
	}
	return ""
}

// CreateRule creates a new alert rule.
func (c *Controller) CreateRule(ctx echo.Context) error {
	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	if msg := validateRule(&rule); msg != "" {
		return ctx.JSON(http.StatusBadRequest, errorBody(msg))
	}

	// Prevent duplicate names.
	count, err := c.rules.CountRulesByName(ctx.Request().Context(), rule.Name)
	if err != nil {
		c.log.Error("failed to check rule name uniqueness", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to create alert rule"))
	}
	if count > 0 {
		return ctx.JSON(http.StatusConflict, errorBody("A rule with this name already exists"))
	}

	rule.BuiltIn = false
	if err := c.rules.CreateRule(ctx.Request().Context(), &rule); err != nil {
		c.log.Error("failed to create alert rule", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to create alert rule"))
	}

	c.log.Info("alert rule created", zap.String("name", rule.Name), zap.Uint("rule_id", rule.ID))
	return ctx.JSON(http.StatusCreated, rule)
}

// UpdateRule replaces an existing alert rule.
func (c *Controller) UpdateRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid rule ID"))
	}

	existing, err := c.rules.GetRule(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, errorBody("Alert rule not found"))
		}
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to get alert rule"))
	}

	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	if msg := validateRule(&rule); msg != "" {
		return ctx.JSON(http.StatusBadRequest, errorBody(msg))
	}

	rule.ID = existing.ID
	rule.BuiltIn = existing.BuiltIn
	rule.CreatedAt = existing.CreatedAt

	if err := c.rules.UpdateRule(ctx.Request().Context(), &rule); err != nil {
		c.log.Error("failed to update alert rule", zap.Uint("rule_id", id), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to update alert rule"))
	}
	return ctx.JSON(http.StatusOK, rule)
}

// DeleteRule deletes an alert rule.
func (c *Controller) DeleteRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid rule ID"))
	}

	if err := c.rules.DeleteRule(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, errorBody("Alert rule not found"))
		}
		c.log.Error("failed to delete alert rule", zap.Uint("rule_id", id), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to delete alert rule"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ToggleRule activates or deactivates an alert rule.
func (c *Controller) ToggleRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid rule ID"))
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	if err := c.rules.ToggleRule(ctx.Request().Context(), id, body.Active); err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, errorBody("Alert rule not found"))
		}
		c.log.Error("failed to toggle alert rule", zap.Uint("rule_id", id), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to toggle alert rule"))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "active": body.Active})
}
