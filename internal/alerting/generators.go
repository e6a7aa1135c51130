package alerting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
	"github.com/agroalert/agroalert/internal/knowledge"
	"github.com/agroalert/agroalert/internal/weather"
)

// Weather thresholds for the condition-driven generators. Temperatures in °C,
// wind in m/s, humidity in percent.
const (
	extremeHeatThreshold  = 35.0
	frostThreshold        = 5.0
	forecastFrostMinimum  = 2.0
	lowHumidityThreshold  = 30.0
	highHumidityThreshold = 85.0
	strongWindThreshold   = 10.0

	// forecastLookaheadDays bounds how far ahead the forecast generators look.
	forecastLookaheadDays = 3

	// harvestWarnDays and harvestOverdueDays frame the harvest window: warn
	// this many days before the expected harvest, escalate this many days
	// after it.
	harvestWarnDays    = 5
	harvestOverdueDays = 10

	// plantingSuggestionCap limits how many crops a monthly planting alert
	// names; plantingSpotlightCap limits the per-crop follow-up alerts.
	plantingSuggestionCap = 5
	plantingSpotlightCap  = 2
)

// irrigationIntervals maps crop name to the recommended days between
// waterings. Crops not listed fall back to defaultIrrigationInterval.
var irrigationIntervals = map[string]int{
	"tomate":   2,
	"alface":   1,
	"cenoura":  3,
	"batata":   3,
	"milho":    4,
	"feijao":   3,
	"espargos": 3,
}

const defaultIrrigationInterval = 3

// harvestTimes maps crop name to the approximate days from planting to
// harvest. Crops not listed fall back to defaultHarvestDays.
var harvestTimes = map[string]int{
	"alface":  45,
	"cenoura": 90,
	"tomate":  75,
	"batata":  120,
	"milho":   100,
	"feijao":  60,
}

const defaultHarvestDays = 75

// GeneratorConfig collects the generator dependencies.
type GeneratorConfig struct {
	Alerts  repository.AlertRepository
	Users   repository.UserRepository
	Weather weather.Provider
	Crops   *knowledge.Store
	Metrics *Metrics
	Log     *zap.Logger

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
}

// Generator produces condition-driven alerts outside the rule engine: weather
// extremes, per-culture care reminders and monthly planting opportunities.
// Every batch runs through the duplicate filter before anything is stored.
type Generator struct {
	alerts  repository.AlertRepository
	users   repository.UserRepository
	weather weather.Provider
	crops   *knowledge.Store
	metrics *Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewGenerator creates a generator service.
func NewGenerator(cfg GeneratorConfig) *Generator {
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
	return &Generator{
		alerts:  cfg.Alerts,
		users:   cfg.Users,
		weather: cfg.Weather,
		crops:   cfg.Crops,
		metrics: metrics,
		log:     log,
		now:     now,
	}
}

// GenerateForUser runs every generator family for one user and persists the
// deduplicated results. It returns how many alerts were created and how many
// candidates were dropped as duplicates.
func (g *Generator) GenerateForUser(ctx context.Context, userID uint) (created, duplicates int, err error) {
	user, err := g.users.Get(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	existing, err := g.alerts.ListByUser(ctx, repository.AlertFilter{
		UserID:   userID,
		Statuses: entities.ActiveStatuses,
	})
	if err != nil {
		return 0, 0, err
	}

	now := g.now()
	var candidates []entities.Alert

	snapshot, err := g.currentWeather(ctx, user)
	if err != nil {
		// Weather being down must not block the culture reminders.
		g.log.Warn("weather snapshot unavailable, skipping weather alerts",
			zap.Uint("user_id", userID), zap.Error(err))
	} else if snapshot != nil {
		candidates = append(candidates, weatherAlerts(user.ID, snapshot)...)
	}

	for i := range user.Cultures {
		culture := &user.Cultures[i]
		candidates = append(candidates, g.cultureAlerts(user.ID, culture, existing, now)...)
	}

	planting, err := g.plantingAlerts(ctx, user.ID, existing, now)
	if err != nil {
		g.log.Warn("planting suggestions unavailable",
			zap.Uint("user_id", userID), zap.Error(err))
	} else {
		candidates = append(candidates, planting...)
	}

	return persistWithDedup(ctx, g.alerts, g.metrics, g.log, userID, candidates)
}

// GeneratePlantingForUser runs only the monthly planting generator. Used by
// auto-generation schedules restricted to planting suggestions.
func (g *Generator) GeneratePlantingForUser(ctx context.Context, userID uint) (created, duplicates int, err error) {
	existing, err := g.alerts.ListByUser(ctx, repository.AlertFilter{
		UserID:   userID,
		Statuses: entities.ActiveStatuses,
	})
	if err != nil {
		return 0, 0, err
	}

	candidates, err := g.plantingAlerts(ctx, userID, existing, g.now())
	if err != nil {
		return 0, 0, err
	}
	return persistWithDedup(ctx, g.alerts, g.metrics, g.log, userID, candidates)
}

func (g *Generator) currentWeather(ctx context.Context, user *entities.User) (*weather.Snapshot, error) {
	if g.weather == nil {
		return nil, nil
	}
	var lat, lng float64
	if user.LocationLat != nil {
		lat = *user.LocationLat
	}
	if user.LocationLng != nil {
		lng = *user.LocationLng
	}
	return g.weather.Current(ctx, lat, lng)
}

// weatherAlerts builds the candidates derived from the current conditions and
// the short-range forecast. Heat and frost are mutually exclusive, as are low
// and high humidity; the forecast loops stop at the first hit.
func weatherAlerts(userID uint, snapshot *weather.Snapshot) []entities.Alert {
	var alerts []entities.Alert

	switch {
	case snapshot.Temperature > extremeHeatThreshold:
		alerts = append(alerts, newWeatherAlert(userID, entities.PriorityCritical,
			"🌡️ Temperatura Extrema Detectada",
			fmt.Sprintf("Temperatura atual de %.1f°C pode danificar suas culturas. Considere irrigação extra e sombreamento.", snapshot.Temperature),
			map[string]any{
				"temperature":    snapshot.Temperature,
				"threshold":      extremeHeatThreshold,
				"recommendation": "increase_irrigation",
			}))
	case snapshot.Temperature < frostThreshold:
		alerts = append(alerts, newWeatherAlert(userID, entities.PriorityCritical,
			"🥶 Risco de Geada",
			fmt.Sprintf("Temperatura atual de %.1f°C representa risco de geada. Proteja suas culturas sensíveis.", snapshot.Temperature),
			map[string]any{
				"temperature":    snapshot.Temperature,
				"threshold":      frostThreshold,
				"recommendation": "protect_from_frost",
			}))
	}

	for _, day := range forecastWindow(snapshot.Forecast) {
		if day.TemperatureMin < forecastFrostMinimum {
			alerts = append(alerts, newWeatherAlert(userID, entities.PriorityMedium,
				"❄️ Previsão de Geada",
				fmt.Sprintf("Geada prevista para os próximos dias (mínima de %.1f°C). Prepare proteções para suas culturas.", day.TemperatureMin),
				map[string]any{
					"temperature_min": day.TemperatureMin,
					"date":            day.Date,
					"recommendation":  "prepare_frost_protection",
				}))
			break
		}
	}

	switch {
	case snapshot.Humidity < lowHumidityThreshold:
		alerts = append(alerts, newWeatherAlert(userID, entities.PriorityMedium,
			"💧 Humidade Baixa",
			fmt.Sprintf("Humidade de %.0f%% está baixa. Suas plantas podem precisar de irrigação adicional.", snapshot.Humidity),
			map[string]any{
				"humidity":       snapshot.Humidity,
				"threshold":      lowHumidityThreshold,
				"recommendation": "increase_irrigation",
			}))
	case snapshot.Humidity > highHumidityThreshold:
		alerts = append(alerts, newWeatherAlert(userID, entities.PriorityMedium,
			"🍄 Humidade Alta - Risco de Fungos",
			fmt.Sprintf("Humidade de %.0f%% favorece o aparecimento de fungos. Monitore suas plantas.", snapshot.Humidity),
			map[string]any{
				"humidity":       snapshot.Humidity,
				"threshold":      highHumidityThreshold,
				"recommendation": "monitor_fungal_diseases",
			}))
	}

	if snapshot.WindSpeed > strongWindThreshold {
		alerts = append(alerts, newWeatherAlert(userID, entities.PriorityMedium,
			"💨 Vento Forte",
			fmt.Sprintf("Ventos de %.1f m/s podem danificar plantas jovens. Verifique suportes e proteções.", snapshot.WindSpeed),
			map[string]any{
				"wind_speed":     snapshot.WindSpeed,
				"threshold":      strongWindThreshold,
				"recommendation": "check_plant_supports",
			}))
	}

	for _, day := range forecastWindow(snapshot.Forecast) {
		condition := strings.ToLower(day.Condition)
		if strings.Contains(condition, "chuva") || strings.Contains(condition, "rain") {
			alerts = append(alerts, newWeatherAlert(userID, entities.PriorityLow,
				"🌧️ Previsão de Chuva",
				"Chuva prevista para os próximos dias. Ajuste a programação de irrigação.",
				map[string]any{
					"condition":      condition,
					"date":           day.Date,
					"recommendation": "adjust_irrigation",
				}))
			break
		}
	}

	return alerts
}

func forecastWindow(forecast []weather.ForecastDay) []weather.ForecastDay {
	if len(forecast) > forecastLookaheadDays {
		return forecast[:forecastLookaheadDays]
	}
	return forecast
}

func newWeatherAlert(userID uint, priority entities.AlertPriority, title, message string, meta map[string]any) entities.Alert {
	alert := entities.Alert{
		UserID:   userID,
		Type:     entities.AlertTypeWeather,
		Priority: priority,
		Status:   entities.StatusPending,
		Title:    title,
		Message:  message,
	}
	// Metadata here is built from plain values and cannot fail to marshal.
	_ = alert.SetMetadata(meta)
	return alert
}

// cultureAlerts builds irrigation, harvest, health and weekly-check reminders
// for one culture. Families that already have an active alert for this
// culture are skipped so the user is not nagged every run.
func (g *Generator) cultureAlerts(userID uint, culture *entities.Culture, existing []entities.Alert, now time.Time) []entities.Alert {
	var alerts []entities.Alert

	if alert := irrigationAlert(userID, culture, existing, now); alert != nil {
		alerts = append(alerts, *alert)
	}
	if alert := harvestAlert(userID, culture, existing, now); alert != nil {
		alerts = append(alerts, *alert)
	}
	if alert := healthAlert(userID, culture, existing); alert != nil {
		alerts = append(alerts, *alert)
	}
	if alert := weeklyCheckAlert(userID, culture, now); alert != nil {
		alerts = append(alerts, *alert)
	}
	return alerts
}

func irrigationAlert(userID uint, culture *entities.Culture, existing []entities.Alert, now time.Time) *entities.Alert {
	if hasActiveCultureAlert(existing, entities.AlertTypeIrrigation, culture.ID) {
		return nil
	}
	if culture.PlantingDate == nil {
		return nil
	}

	days := int(now.Sub(*culture.PlantingDate).Hours() / 24)
	interval := defaultIrrigationInterval
	if v, ok := irrigationIntervals[strings.ToLower(culture.Name)]; ok {
		interval = v
	}
	if days <= interval {
		return nil
	}

	alert := entities.Alert{
		UserID:    userID,
		CultureID: &culture.ID,
		Type:      entities.AlertTypeIrrigation,
		Priority:  entities.PriorityMedium,
		Status:    entities.StatusPending,
		Title:     fmt.Sprintf("💧 Irrigação Necessária - %s", culture.Name),
		Message:   fmt.Sprintf("Sua cultura de %s precisa de irrigação. Plantada há %d dias.", culture.Name, days),
	}
	_ = alert.SetMetadata(map[string]any{
		"culture_name":        culture.Name,
		"days_since_planting": days,
		"watering_interval":   interval,
		"recommendation":      "irrigate_now",
	})
	return &alert
}

func harvestAlert(userID uint, culture *entities.Culture, existing []entities.Alert, now time.Time) *entities.Alert {
	if hasActiveCultureAlert(existing, entities.AlertTypeHarvest, culture.ID) {
		return nil
	}

	planted := culture.CreatedAt
	if culture.PlantingDate != nil {
		planted = *culture.PlantingDate
	}
	days := int(now.Sub(planted).Hours() / 24)

	harvestDays := defaultHarvestDays
	if v, ok := harvestTimes[strings.ToLower(culture.Name)]; ok {
		harvestDays = v
	}

	switch {
	case days >= harvestDays-harvestWarnDays && days <= harvestDays:
		alert := entities.Alert{
			UserID:    userID,
			CultureID: &culture.ID,
			Type:      entities.AlertTypeHarvest,
			Priority:  entities.PriorityMedium,
			Status:    entities.StatusPending,
			Title:     fmt.Sprintf("🌾 Colheita Próxima - %s", culture.Name),
			Message:   fmt.Sprintf("Sua cultura de %s estará pronta para colheita em breve. Verifique o desenvolvimento.", culture.Name),
		}
		_ = alert.SetMetadata(map[string]any{
			"culture_name":          culture.Name,
			"expected_harvest_days": harvestDays,
			"days_since_planting":   days,
			"recommendation":        "check_harvest_readiness",
		})
		return &alert
	case days > harvestDays+harvestOverdueDays:
		alert := entities.Alert{
			UserID:    userID,
			CultureID: &culture.ID,
			Type:      entities.AlertTypeHarvest,
			Priority:  entities.PriorityCritical,
			Status:    entities.StatusPending,
			Title:     fmt.Sprintf("⚠️ Colheita Atrasada - %s", culture.Name),
			Message:   fmt.Sprintf("Sua cultura de %s passou do tempo ideal de colheita. Colha o quanto antes.", culture.Name),
		}
		_ = alert.SetMetadata(map[string]any{
			"culture_name":          culture.Name,
			"expected_harvest_days": harvestDays,
			"days_since_planting":   days,
			"days_overdue":          days - harvestDays,
			"recommendation":        "harvest_immediately",
		})
		return &alert
	}
	return nil
}

func healthAlert(userID uint, culture *entities.Culture, existing []entities.Alert) *entities.Alert {
	// Health reminders ride on the general type, so the per-culture check
	// also matches on the title to avoid suppressing unrelated alerts.
	for i := range existing {
		a := &existing[i]
		if a.Type == entities.AlertTypeGeneral &&
			a.CultureID != nil && *a.CultureID == culture.ID &&
			strings.Contains(a.Title, "Saúde") {
			return nil
		}
	}

	var priority entities.AlertPriority
	var title, message, recommendation string
	switch culture.HealthStatus {
	case "poor":
		priority = entities.PriorityCritical
		title = fmt.Sprintf("🚨 Problemas de Saúde - %s", culture.Name)
		message = fmt.Sprintf("Sua cultura de %s apresenta problemas de saúde. Investigação necessária.", culture.Name)
		recommendation = "investigate_health_issues"
	case "fair":
		priority = entities.PriorityMedium
		title = fmt.Sprintf("⚠️ Atenção Necessária - %s", culture.Name)
		message = fmt.Sprintf("Sua cultura de %s precisa de atenção. Monitore mais de perto.", culture.Name)
		recommendation = "increase_monitoring"
	default:
		return nil
	}

	alert := entities.Alert{
		UserID:    userID,
		CultureID: &culture.ID,
		Type:      entities.AlertTypeGeneral,
		Priority:  priority,
		Status:    entities.StatusPending,
		Title:     title,
		Message:   message,
	}
	_ = alert.SetMetadata(map[string]any{
		"culture_name":   culture.Name,
		"health_status":  culture.HealthStatus,
		"recommendation": recommendation,
	})
	return &alert
}

func weeklyCheckAlert(userID uint, culture *entities.Culture, now time.Time) *entities.Alert {
	planted := culture.CreatedAt
	if culture.PlantingDate != nil {
		planted = *culture.PlantingDate
	}
	days := int(now.Sub(planted).Hours() / 24)
	if days <= 7 || days%7 != 0 {
		return nil
	}

	alert := entities.Alert{
		UserID:    userID,
		CultureID: &culture.ID,
		Type:      entities.AlertTypeGeneral,
		Priority:  entities.PriorityMedium,
		Status:    entities.StatusPending,
		Title:     fmt.Sprintf("Verificação semanal - %s", culture.Name),
		Message:   fmt.Sprintf("É hora de verificar o estado da sua cultura de %s. Verifique sinais de pragas, doenças e necessidades de irrigação.", culture.Name),
	}
	_ = alert.SetMetadata(map[string]any{
		"culture_name":        culture.Name,
		"days_since_planting": days,
		"task_type":           "weekly_check",
	})
	return &alert
}

// plantingAlerts builds the monthly planting-opportunity alert plus up to two
// spotlight alerts for easy crops. At most one batch is produced per calendar
// month: a still-active planting alert naming the current month suppresses
// the whole family.
func (g *Generator) plantingAlerts(ctx context.Context, userID uint, existing []entities.Alert, now time.Time) ([]entities.Alert, error) {
	if g.crops == nil {
		return nil, nil
	}

	month := MonthName(now.Month())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := range existing {
		a := &existing[i]
		if a.Type == entities.AlertTypePlanting &&
			strings.Contains(a.Title, month) &&
			!a.CreatedAt.Before(monthStart) {
			return nil, nil
		}
	}

	opportunities, err := g.crops.SuggestForMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	if len(opportunities) == 0 {
		return nil, nil
	}

	total := len(opportunities)
	// Easiest and highest-yielding crops first.
	sort.SliceStable(opportunities, func(i, j int) bool {
		ri, rj := difficultyRank(opportunities[i].Difficulty), difficultyRank(opportunities[j].Difficulty)
		if ri != rj {
			return ri < rj
		}
		return opportunities[i].YieldPerM2 > opportunities[j].YieldPerM2
	})
	if len(opportunities) > plantingSuggestionCap {
		opportunities = opportunities[:plantingSuggestionCap]
	}

	names := make([]string, len(opportunities))
	for i, crop := range opportunities {
		names[i] = crop.Name
	}

	expiresAt := now.AddDate(0, 0, plantingRetentionDays)
	main := entities.Alert{
		UserID:     userID,
		Type:       entities.AlertTypePlanting,
		Priority:   entities.PriorityMedium,
		Status:     entities.StatusPending,
		Title:      fmt.Sprintf("🌱 Oportunidades de Plantio - %s", month),
		Message:    fmt.Sprintf("Este é o mês ideal para plantar: %s. Aproveite as condições favoráveis de %s para começar novas culturas!", strings.Join(names, ", "), month),
		ActionText: "Ver Culturas",
		ActionURL:  "/cultures/wizard",
		ExpiresAt:  &expiresAt,
	}
	_ = main.SetMetadata(map[string]any{
		"month":          month,
		"opportunities":  names,
		"total_count":    total,
		"recommendation": "start_planting",
	})
	alerts := []entities.Alert{main}

	spotlights := opportunities
	if len(spotlights) > plantingSpotlightCap {
		spotlights = spotlights[:plantingSpotlightCap]
	}
	for _, crop := range spotlights {
		if crop.Difficulty != knowledge.DifficultyEasy {
			continue
		}
		detail := entities.Alert{
			UserID:   userID,
			Type:     entities.AlertTypePlanting,
			Priority: entities.PriorityLow,
			Status:   entities.StatusPending,
			Title:    fmt.Sprintf("%s Destaque: %s", crop.Icon, crop.Name),
			Message: fmt.Sprintf("A %s é ideal para iniciantes e pode ser plantada agora. Tempo de crescimento: %d dias. Rendimento esperado: %.0f kg/m². Área mínima: %.0f m².",
				crop.Name, crop.GrowthDays, crop.YieldPerM2, crop.MinArea),
			ActionText: "Criar Cultura",
			ActionURL:  fmt.Sprintf("/cultures/wizard?cultura=%s", strings.ToLower(crop.Name)),
			ExpiresAt:  &expiresAt,
		}
		_ = detail.SetMetadata(map[string]any{
			"cultura_nome":      crop.Name,
			"cultura_categoria": crop.Category,
			"month":             month,
			"recommendation":    "create_specific_culture",
		})
		alerts = append(alerts, detail)
	}

	return alerts, nil
}

func difficultyRank(d string) int {
	switch d {
	case knowledge.DifficultyEasy:
		return 1
	case knowledge.DifficultyHard:
		return 3
	default:
		return 2
	}
}

func hasActiveCultureAlert(existing []entities.Alert, alertType entities.AlertType, cultureID uint) bool {
	for i := range existing {
		a := &existing[i]
		if a.Type == alertType && a.CultureID != nil && *a.CultureID == cultureID {
			return true
		}
	}
	return false
}
