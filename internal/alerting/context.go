package alerting

import (
	"strconv"
	"time"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/weather"
)

// monthNames holds Portuguese month names indexed by time.Month.
var monthNames = [...]string{
	"", "Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the Portuguese name of the month.
func MonthName(m time.Month) string {
	return monthNames[m]
}

// SeasonOf derives the season from the month using fixed Northern-hemisphere
// quarters: Dec-Feb winter, Mar-May spring, Jun-Aug summer, Sep-Nov autumn.
func SeasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}

// BuildUserContext assembles the context snapshot rules evaluate against:
// user profile, active cultures, the weather snapshot and calendar facts.
func BuildUserContext(user *entities.User, cultures []entities.Culture, snapshot *weather.Snapshot, now time.Time) map[string]any {
	ctx := map[string]any{
		"user": map[string]any{
			"id":                user.ID,
			"name":              user.Name,
			"experience":        user.Experience,
			"producer_type":     user.ProducerType,
			"location_city":     user.LocationCity,
			"location_district": user.LocationDistrict,
		},
		"datetime": map[string]any{
			"date":       now.Format("2006-01-02"),
			"hour":       now.Hour(),
			// 0=Monday, matching the preference schedule convention.
			"weekday":    entities.WeekdayOf(now),
			"month":      int(now.Month()),
			"month_name": MonthName(now.Month()),
			"season":     SeasonOf(now.Month()),
		},
		"cultures": map[string]any{
			"count": len(cultures),
		},
	}

	if snapshot != nil {
		forecast := make([]any, 0, len(snapshot.Forecast))
		for _, day := range snapshot.Forecast {
			forecast = append(forecast, map[string]any{
				"date":            day.Date,
				"temperature_min": day.TemperatureMin,
				"temperature_max": day.TemperatureMax,
				"condition":       day.Condition,
				"precipitation":   day.Precipitation,
			})
		}
		ctx["weather"] = map[string]any{
			"temperature":       snapshot.Temperature,
			"humidity":          snapshot.Humidity,
			"precipitation":     snapshot.Precipitation,
			"wind_speed":        snapshot.WindSpeed,
			"condition":         snapshot.Condition,
			"days_without_rain": snapshot.DaysWithoutRain,
			"forecast":          forecast,
		}
	}

	// Cultures are keyed by index so rules can address culture.0.type and
	// templates can reference the first culture directly.
	culturesCtx := ctx["cultures"].(map[string]any)
	for i := range cultures {
		c := &cultures[i]
		culturesCtx[strconv.Itoa(i)] = map[string]any{
			"id":            c.ID,
			"name":          c.Name,
			"type":          c.Type,
			"area":          c.Area,
			"health_status": c.HealthStatus,
			"status":        c.Status,
			"days_planted":  c.DaysSincePlanting(now),
		}
	}
	return ctx
}
