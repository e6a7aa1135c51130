package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/alerting"
	"github.com/agroalert/agroalert/internal/datastore/entities"
)

const defaultAlertLimit = 50

// ListAlerts returns the acting user's alerts, newest first. Read alerts are
// excluded unless include_read=true.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	limit := defaultAlertLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return ctx.JSON(http.StatusBadRequest, errorBody("Invalid limit"))
		}
		limit = parsed
	}
	includeRead := ctx.QueryParam("include_read") == "true"

	alerts, err := c.engine.GetUserAlerts(ctx.Request().Context(), userID, limit, includeRead)
	if err != nil {
		c.log.Error("failed to list alerts", zap.Uint("user_id", userID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to list alerts"))
	}

	payload := make([]map[string]any, 0, len(alerts))
	for i := range alerts {
		payload = append(payload, alerts[i].ToDict())
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": payload,
		"count":  len(payload),
	})
}

// createAlertRequest is the manual alert creation payload.
type createAlertRequest struct {
	Type       string `json:"type"`
	Priority   string `json:"priority"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	ActionText string `json:"action_text"`
	ActionURL  string `json:"action_url"`
	CultureID  *uint  `json:"culture_id"`
	TTLHours   int    `json:"ttl_hours"`
}

// CreateAlert creates an alert directly for the acting user.
func (c *Controller) CreateAlert(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	var req createAlertRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	if req.Title == "" {
		return ctx.JSON(http.StatusBadRequest, errorBody("Alert title is required"))
	}
	// Empty type and priority fall back to the engine defaults; anything
	// else must be a known value or the alert would silently never pass a
	// minimum-priority gate.
	if req.Type != "" && !entities.AlertType(req.Type).Valid() {
		return ctx.JSON(http.StatusBadRequest, errorBody("Unknown alert type: "+req.Type))
	}
	if req.Priority != "" && !entities.AlertPriority(req.Priority).Valid() {
		return ctx.JSON(http.StatusBadRequest, errorBody("Unknown alert priority: "+req.Priority))
	}

	alert, err := c.engine.CreateManualAlert(ctx.Request().Context(), alerting.ManualAlertParams{
		UserID:     userID,
		Type:       entities.AlertType(req.Type),
		Priority:   entities.AlertPriority(req.Priority),
		Title:      req.Title,
		Message:    req.Message,
		ActionText: req.ActionText,
		ActionURL:  req.ActionURL,
		CultureID:  req.CultureID,
		TTLHours:   req.TTLHours,
	})
	if err != nil {
		c.log.Error("failed to create alert", zap.Uint("user_id", userID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to create alert"))
	}

	return ctx.JSON(http.StatusCreated, alert.ToDict())
}

// GetAlertStats returns the acting user's alert counters.
func (c *Controller) GetAlertStats(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	stats, err := c.engine.GetAlertStats(ctx.Request().Context(), userID)
	if err != nil {
		c.log.Error("failed to get alert stats", zap.Uint("user_id", userID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to get alert stats"))
	}
	return ctx.JSON(http.StatusOK, stats)
}

// ProcessAlerts triggers a full processing batch and returns its summary.
func (c *Controller) ProcessAlerts(ctx echo.Context) error {
	summary, err := c.engine.ProcessAllAlerts(ctx.Request().Context())
	if err != nil {
		c.log.Error("alert processing failed", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Alert processing failed"))
	}
	return ctx.JSON(http.StatusOK, summary)
}

// GenerateAlerts runs the condition-driven generators for the acting user.
func (c *Controller) GenerateAlerts(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	created, duplicates, err := c.generator.GenerateForUser(ctx.Request().Context(), userID)
	if err != nil {
		c.log.Error("alert generation failed", zap.Uint("user_id", userID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Alert generation failed"))
	}
	return ctx.JSON(http.StatusOK, map[string]int{
		"created":    created,
		"duplicates": duplicates,
	})
}

func (c *Controller) transitionAlert(ctx echo.Context, action string, apply func(ctxReq echo.Context, alertID, userID uint) (bool, error)) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}
	alertID, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid alert ID"))
	}

	ok, err := apply(ctx, alertID, userID)
	if err != nil {
		c.log.Error("alert transition failed",
			zap.String("action", action), zap.Uint("alert_id", alertID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to update alert"))
	}
	if !ok {
		return ctx.JSON(http.StatusNotFound, errorBody("Alert not found or not updatable"))
	}
	return ctx.JSON(http.StatusOK, map[string]any{"id": alertID, "status": action})
}

// MarkAlertRead marks the alert read.
func (c *Controller) MarkAlertRead(ctx echo.Context) error {
	return c.transitionAlert(ctx, "read", func(ctxReq echo.Context, alertID, userID uint) (bool, error) {
		return c.engine.MarkAlertAsRead(ctxReq.Request().Context(), alertID, userID)
	})
}

// DismissAlert dismisses the alert.
func (c *Controller) DismissAlert(ctx echo.Context) error {
	return c.transitionAlert(ctx, "dismissed", func(ctxReq echo.Context, alertID, userID uint) (bool, error) {
		return c.engine.DismissAlert(ctxReq.Request().Context(), alertID, userID)
	})
}

// ResolveAlert resolves the alert.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	return c.transitionAlert(ctx, "resolved", func(ctxReq echo.Context, alertID, userID uint) (bool, error) {
		return c.engine.ResolveAlert(ctxReq.Request().Context(), alertID, userID)
	})
}
