// Package api exposes the alerting engine, rule management, preferences and
// the crop knowledge base over HTTP.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/alerting"
	"github.com/agroalert/agroalert/internal/datastore/repository"
	"github.com/agroalert/agroalert/internal/knowledge"
)

// userIDHeader carries the acting user's ID. Authentication is expected to
// happen upstream (reverse proxy or gateway); this API only scopes data.
const userIDHeader = "X-User-ID"

// Controller holds the API dependencies and registers the routes.
type Controller struct {
	engine    *alerting.Engine
	generator *alerting.Generator
	auto      *alerting.AutoService
	rules     repository.AlertRuleRepository
	prefs     repository.PreferenceRepository
	crops     *knowledge.Store
	log       *zap.Logger
}

// ControllerConfig collects the controller dependencies.
type ControllerConfig struct {
	Engine    *alerting.Engine
	Generator *alerting.Generator
	Auto      *alerting.AutoService
	Rules     repository.AlertRuleRepository
	Prefs     repository.PreferenceRepository
	Crops     *knowledge.Store
	Log       *zap.Logger
}

// NewController creates the API controller.
func NewController(cfg ControllerConfig) *Controller {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		engine:    cfg.Engine,
		generator: cfg.Generator,
		auto:      cfg.Auto,
		rules:     cfg.Rules,
		prefs:     cfg.Prefs,
		crops:     cfg.Crops,
		log:       log,
	}
}

// Register wires all routes under /api/v1 on the given echo instance.
func (c *Controller) Register(e *echo.Echo) {
	e.Use(middleware.Recover())

	e.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := e.Group("/api/v1")

	alerts := g.Group("/alerts")
	alerts.GET("", c.ListAlerts)
	alerts.POST("", c.CreateAlert)
	alerts.GET("/stats", c.GetAlertStats)
	alerts.POST("/process", c.ProcessAlerts)
	alerts.POST("/generate", c.GenerateAlerts)
	alerts.POST("/:id/read", c.MarkAlertRead)
	alerts.POST("/:id/dismiss", c.DismissAlert)
	alerts.POST("/:id/resolve", c.ResolveAlert)

	rules := g.Group("/rules")
	rules.GET("", c.ListRules)
	rules.POST("", c.CreateRule)
	rules.GET("/:id", c.GetRule)
	rules.PUT("/:id", c.UpdateRule)
	rules.DELETE("/:id", c.DeleteRule)
	rules.PATCH("/:id/toggle", c.ToggleRule)

	prefs := g.Group("/preferences")
	prefs.GET("", c.ListPreferences)
	prefs.GET("/:type", c.GetPreference)
	prefs.PUT("/:type", c.UpsertPreference)

	crops := g.Group("/crops")
	crops.GET("", c.ListCrops)
	crops.POST("", c.AddCrop)
	crops.GET("/suggestions", c.SuggestCrops)
	crops.GET("/:key", c.GetCrop)
	crops.GET("/:key/estimate", c.EstimateCrop)
}

// RegisterMetrics exposes the Prometheus registry on /metrics.
func (c *Controller) RegisterMetrics(e *echo.Echo, reg *prometheus.Registry) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}

// userID extracts the acting user from the request header.
func (c *Controller) userID(ctx echo.Context) (uint, error) {
	raw := ctx.Request().Header.Get(userIDHeader)
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing "+userIDHeader+" header")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+userIDHeader+" header")
	}
	return uint(id), nil
}

func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
