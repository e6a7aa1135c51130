package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/alerting"
	"github.com/agroalert/agroalert/internal/knowledge"
)

// ListCrops returns the crop catalog, optionally filtered by category.
func (c *Controller) ListCrops(ctx echo.Context) error {
	crops, err := c.crops.ByCategory(ctx.Request().Context(), ctx.QueryParam("category"))
	if err != nil {
		c.log.Error("failed to list crops", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to list crops"))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"crops": crops,
		"count": len(crops),
	})
}

// GetCrop returns one catalog entry by key.
func (c *Controller) GetCrop(ctx echo.Context) error {
	crop, err := c.crops.Get(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		if errors.Is(err, knowledge.ErrCropNotFound) {
			return ctx.JSON(http.StatusNotFound, errorBody("Crop not found"))
		}
		c.log.Error("failed to get crop", zap.String("key", ctx.Param("key")), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to get crop"))
	}
	return ctx.JSON(http.StatusOK, crop)
}

// SuggestCrops returns the crops plantable in the given month (defaults to
// the current one).
func (c *Controller) SuggestCrops(ctx echo.Context) error {
	month := ctx.QueryParam("month")
	if month == "" {
		month = alerting.MonthName(time.Now().Month())
	}

	crops, err := c.crops.SuggestForMonth(ctx.Request().Context(), month)
	if err != nil {
		c.log.Error("failed to suggest crops", zap.String("month", month), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to suggest crops"))
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"month": month,
		"crops": crops,
		"count": len(crops),
	})
}

// EstimateCrop projects costs and returns for growing the crop on the area
// given by the area query parameter (square meters).
func (c *Controller) EstimateCrop(ctx echo.Context) error {
	area, err := strconv.ParseFloat(ctx.QueryParam("area"), 64)
	if err != nil || area <= 0 {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid area"))
	}

	estimate, err := c.crops.EstimateCosts(ctx.Request().Context(), ctx.Param("key"), area)
	if err != nil {
		if errors.Is(err, knowledge.ErrCropNotFound) {
			return ctx.JSON(http.StatusNotFound, errorBody("Crop not found"))
		}
		c.log.Error("failed to estimate crop costs", zap.String("key", ctx.Param("key")), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to estimate costs"))
	}
	return ctx.JSON(http.StatusOK, estimate)
}

// AddCrop stores a runtime crop catalog entry.
func (c *Controller) AddCrop(ctx echo.Context) error {
	var crop knowledge.Crop
	if err := ctx.Bind(&crop); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	if err := c.crops.Add(ctx.Request().Context(), crop); err != nil {
		if crop.Key == "" || crop.Name == "" {
			return ctx.JSON(http.StatusBadRequest, errorBody(err.Error()))
		}
		c.log.Error("failed to add crop", zap.String("key", crop.Key), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, errorBody("Failed to add crop"))
	}
	return ctx.JSON(http.StatusCreated, crop)
}
