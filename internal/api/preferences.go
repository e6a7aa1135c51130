package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
)

// ListPreferences returns every stored preference row for the acting user.
func (c *Controller) ListPreferences(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	prefs, err := c.prefs.ListByUser(ctx.Request().Context(), userID)
	if err != nil {
		c.log.Error("failed to list preferences", zap.Uint("user_id", userID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to list preferences"))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"preferences": prefs,
		"count":       len(prefs),
	})
}

// GetPreference returns the preference for one alert type. When no row is
// stored the synthesized default is returned, so clients always get the
// effective settings.
func (c *Controller) GetPreference(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}
	alertType := entities.AlertType(ctx.Param("type"))

	pref, err := c.prefs.GetOrDefault(ctx.Request().Context(), userID, alertType)
	if err != nil {
		c.log.Error("failed to get preference",
			zap.Uint("user_id", userID), zap.String("alert_type", string(alertType)), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to get preference"))
	}
	return ctx.JSON(http.StatusOK, pref)
}

// UpsertPreference stores the preference for one alert type. The path type
// wins over whatever the body carries.
func (c *Controller) UpsertPreference(ctx echo.Context) error {
	userID, err := c.userID(ctx)
	if err != nil {
		return err
	}

	var pref entities.UserAlertPreference
	if err := ctx.Bind(&pref); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	pref.UserID = userID
	pref.AlertType = entities.AlertType(ctx.Param("type"))
	if pref.AlertType == "" {
		return ctx.JSON(http.StatusBadRequest, errorBody("Alert type is required"))
	}
	switch pref.AutoFrequency {
	case "", entities.FrequencyDaily, entities.FrequencyWeekly, entities.FrequencyMonthly:
	default:
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid auto frequency"))
	}

	if err := c.prefs.Upsert(ctx.Request().Context(), &pref); err != nil {
		if errors.Is(err, repository.ErrPreferenceNotFound) {
			return ctx.JSON(http.StatusNotFound, errorBody("Preference not found"))
		}
		c.log.Error("failed to save preference",
			zap.Uint("user_id", userID), zap.String("alert_type", string(pref.AlertType)), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to save preference"))
	}
	return ctx.JSON(http.StatusOK, pref)
}
