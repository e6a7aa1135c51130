package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/agroalert/agroalert/internal/alerting"
	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
	"github.com/agroalert/agroalert/internal/knowledge"
	"github.com/agroalert/agroalert/internal/weather"
)

type testAPI struct {
	e  *echo.Echo
	db *gorm.DB
}

// setupAPI wires a controller against an in-memory SQLite database.
func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Culture{},
		&entities.Alert{},
		&entities.AlertRule{},
		&entities.UserAlertPreference{},
		&entities.CropProfile{},
	))

	alerts := repository.NewAlertRepository(db)
	rules := repository.NewAlertRuleRepository(db)
	prefs := repository.NewPreferenceRepository(db)
	users := repository.NewUserRepository(db)
	crops := knowledge.NewStore(repository.NewCropProfileRepository(db))

	engine := alerting.NewEngine(alerting.EngineConfig{
		Alerts:      alerts,
		Rules:       rules,
		Preferences: prefs,
		Users:       users,
		Weather:     weather.NewStaticProvider(),
	})
	generator := alerting.NewGenerator(alerting.GeneratorConfig{
		Alerts:  alerts,
		Users:   users,
		Weather: weather.NewStaticProvider(),
		Crops:   crops,
	})
	auto := alerting.NewAutoService(prefs, generator, nil, nil, nil)

	controller := NewController(ControllerConfig{
		Engine:    engine,
		Generator: generator,
		Auto:      auto,
		Rules:     rules,
		Prefs:     prefs,
		Crops:     crops,
	})

	e := echo.New()
	controller.Register(e)
	return &testAPI{e: e, db: db}
}

func (a *testAPI) request(t *testing.T, method, path string, userID uint, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != 0 {
		req.Header.Set(userIDHeader, strconv.FormatUint(uint64(userID), 10))
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) createUser(t *testing.T, email string) *entities.User {
	t.Helper()
	user := &entities.User{Email: email, Name: "Maria Santos", IsActive: true}
	require.NoError(t, a.db.Create(user).Error)
	return user
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAPI_Healthz(t *testing.T) {
	a := setupAPI(t)
	rec := a.request(t, http.MethodGet, "/healthz", 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_ListAlertsRequiresUser(t *testing.T) {
	a := setupAPI(t)
	rec := a.request(t, http.MethodGet, "/api/v1/alerts", 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_CreateAndListAlerts(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPost, "/api/v1/alerts", user.ID,
		`{"title":"Verificar estufa","message":"Janela partida","type":"general","priority":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	assert.Equal(t, "Verificar estufa", created["title"])
	assert.Equal(t, "high", created["priority"])
	assert.Equal(t, false, created["is_read"])
	assert.Contains(t, created, "alert_metadata")

	rec = a.request(t, http.MethodGet, "/api/v1/alerts", user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])

	listed := body["alerts"].([]any)
	require.Len(t, listed, 1)
	first := listed[0].(map[string]any)
	assert.Equal(t, created["id"], first["id"])
	assert.Contains(t, first, "expires_at")
	assert.Contains(t, first, "alert_metadata")

	// Other users see nothing.
	other := a.createUser(t, "rui@example.com")
	rec = a.request(t, http.MethodGet, "/api/v1/alerts", other.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody(t, rec)["count"])
}

func TestAPI_CreateAlertRequiresTitle(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPost, "/api/v1/alerts", user.ID, `{"message":"sem título"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CreateAlertRejectsUnknownEnums(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPost, "/api/v1/alerts", user.ID,
		`{"title":"Urgente","priority":"urgent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request(t, http.MethodPost, "/api/v1/alerts", user.ID,
		`{"title":"Tipo estranho","type":"locusts"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Omitted enums still fall back to the engine defaults.
	rec = a.request(t, http.MethodPost, "/api/v1/alerts", user.ID, `{"title":"Sem tipo"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.Equal(t, "general", created["type"])
	assert.Equal(t, "medium", created["priority"])
}

func TestAPI_AlertTransitions(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPost, "/api/v1/alerts", user.ID, `{"title":"Para ler"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	alertID := uint64(created["id"].(float64))

	alertPath := "/api/v1/alerts/" + strconv.FormatUint(alertID, 10)

	// Another user cannot touch it.
	other := a.createUser(t, "rui@example.com")
	rec = a.request(t, http.MethodPost, alertPath+"/read", other.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.request(t, http.MethodPost, alertPath+"/read", user.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.request(t, http.MethodPost, "/api/v1/alerts/99999/dismiss", user.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AlertStats(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPost, "/api/v1/alerts", user.ID, `{"title":"Um","priority":"critical"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/v1/alerts/stats", user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["unread"])
}

func TestAPI_ProcessAlerts(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPost, "/api/v1/alerts", user.ID, `{"title":"Entregar"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.request(t, http.MethodPost, "/api/v1/alerts/process", user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["delivered"])
}

func TestAPI_RuleCRUD(t *testing.T) {
	a := setupAPI(t)

	payload := `{
		"name": "Alerta de Seca",
		"alert_type": "irrigation",
		"priority": "high",
		"conditions": "{\"field\":\"weather.days_without_rain\",\"operator\":\"gte\",\"value\":7}",
		"title_template": "Seca prolongada",
		"message_template": "Sem chuva há {weather.days_without_rain} dias.",
		"cooldown_hours": 24,
		"expires_after_hours": 48,
		"is_active": true
	}`

	rec := a.request(t, http.MethodPost, "/api/v1/rules", 0, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rule entities.AlertRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rule))
	require.NotZero(t, rule.ID)

	// Duplicate name is rejected.
	rec = a.request(t, http.MethodPost, "/api/v1/rules", 0, payload)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rulePath := "/api/v1/rules/" + strconv.FormatUint(uint64(rule.ID), 10)

	rec = a.request(t, http.MethodGet, rulePath, 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.request(t, http.MethodPatch, rulePath+"/toggle", 0, `{"active":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/v1/rules?active=false", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = a.request(t, http.MethodDelete, rulePath, 0, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.request(t, http.MethodGet, rulePath, 0, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateRuleRejectsMalformedConditions(t *testing.T) {
	a := setupAPI(t)

	rec := a.request(t, http.MethodPost, "/api/v1/rules", 0, `{
		"name": "Regra inválida",
		"alert_type": "weather",
		"title_template": "t",
		"message_template": "m",
		"conditions": "{\"operator\":\"banana\"}"
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Preferences(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	// Default is synthesized when nothing is stored.
	rec := a.request(t, http.MethodGet, "/api/v1/preferences/weather", user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["is_enabled"])

	rec = a.request(t, http.MethodPut, "/api/v1/preferences/weather", user.ID, `{
		"is_enabled": true,
		"web_enabled": true,
		"email_enabled": false,
		"min_priority": "high",
		"auto_frequency": "weekly"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.request(t, http.MethodGet, "/api/v1/preferences", user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])
}

func TestAPI_PreferenceRejectsBadFrequency(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPut, "/api/v1/preferences/weather", user.ID,
		`{"auto_frequency":"hourly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Crops(t *testing.T) {
	a := setupAPI(t)

	rec := a.request(t, http.MethodGet, "/api/v1/crops", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.GreaterOrEqual(t, body["count"].(float64), float64(12))

	rec = a.request(t, http.MethodGet, "/api/v1/crops/tomate", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/v1/crops/abacaxi", 0, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.request(t, http.MethodGet, "/api/v1/crops/suggestions?month=Março", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, decodeBody(t, rec)["count"].(float64))

	rec = a.request(t, http.MethodGet, "/api/v1/crops/tomate/estimate?area=10", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	estimate := decodeBody(t, rec)
	assert.InDelta(t, 50.0, estimate["total_cost"].(float64), 0.001)

	rec = a.request(t, http.MethodGet, "/api/v1/crops/tomate/estimate?area=-1", 0, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.request(t, http.MethodPost, "/api/v1/crops", 0,
		`{"key":"abobora","name":"Abóbora","category":"Hortícola","planting_months":["Maio"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.request(t, http.MethodGet, "/api/v1/crops/abobora", 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_GenerateAlerts(t *testing.T) {
	a := setupAPI(t)
	user := a.createUser(t, "maria@example.com")

	rec := a.request(t, http.MethodPost, "/api/v1/alerts/generate", user.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	// The static weather provider reports mild conditions, so nothing weather
	// driven fires; the endpoint still reports both counters.
	assert.Contains(t, body, "created")
	assert.Contains(t, body, "duplicates")
}
