package alerting

import (
	"context"

	"go.uber.org/zap"

	"github.com/agroalert/agroalert/internal/datastore/entities"
	"github.com/agroalert/agroalert/internal/datastore/repository"
)

// DefaultRules returns the built-in alert rules seeded at startup.
// Thresholds mirror the weather generator so rule-driven and generated alerts
// agree on what counts as extreme conditions.
func DefaultRules() []entities.AlertRule {
	return []entities.AlertRule{
		{
			Name:              "Alerta de Calor Extremo",
			Description:       "Dispara quando a temperatura atual ultrapassa 35°C",
			AlertType:         entities.AlertTypeWeather,
			Priority:          entities.PriorityCritical,
			Conditions:        `{"field":"weather.temperature","operator":"gt","value":35}`,
			TitleTemplate:     "🌡️ Alerta de Calor Extremo",
			MessageTemplate:   "Temperatura de {weather.temperature}°C em {user.location_city}. Regue as culturas de manhã cedo ou ao fim do dia e proteja as plantas mais sensíveis.",
			ActionText:        "Ver culturas",
			ActionURLTemplate: "/culturas",
			CooldownHours:     24,
			ExpiresAfterHours: 48,
			IsActive:          true,
			BuiltIn:           true,
		},
		{
			Name:              "Alerta de Geada",
			Description:       "Dispara quando a temperatura atual desce abaixo de 5°C",
			AlertType:         entities.AlertTypeWeather,
			Priority:          entities.PriorityCritical,
			Conditions:        `{"field":"weather.temperature","operator":"lt","value":5}`,
			TitleTemplate:     "❄️ Risco de Geada",
			MessageTemplate:   "Temperatura de {weather.temperature}°C. Cubra as culturas sensíveis ao frio durante a noite.",
			ActionText:        "Ver culturas",
			ActionURLTemplate: "/culturas",
			CooldownHours:     24,
			ExpiresAfterHours: 48,
			IsActive:          true,
			BuiltIn:           true,
		},
		{
			Name:              "Alerta de Humidade Baixa",
			Description:       "Dispara quando a humidade relativa desce abaixo de 30%",
			AlertType:         entities.AlertTypeIrrigation,
			Priority:          entities.PriorityHigh,
			Conditions:        `{"operator":"AND","operands":[{"field":"weather.humidity","operator":"lt","value":30},{"field":"weather.temperature","operator":"gt","value":20}]}`,
			TitleTemplate:     "💧 Humidade Muito Baixa",
			MessageTemplate:   "Humidade de {weather.humidity}% com {weather.temperature}°C. Considere reforçar a rega hoje.",
			ActionText:        "Plano de rega",
			ActionURLTemplate: "/culturas",
			CooldownHours:     12,
			ExpiresAfterHours: 24,
			IsActive:          true,
			BuiltIn:           true,
		},
		{
			Name:              "Alerta de Vento Forte",
			Description:       "Dispara quando o vento ultrapassa 10 m/s",
			AlertType:         entities.AlertTypeWeather,
			Priority:          entities.PriorityHigh,
			Conditions:        `{"field":"weather.wind_speed","operator":"gt","value":10}`,
			TitleTemplate:     "💨 Vento Forte",
			MessageTemplate:   "Vento de {weather.wind_speed} m/s previsto. Verifique estufas, tutores e coberturas.",
			CooldownHours:     12,
			ExpiresAfterHours: 24,
			IsActive:          true,
			BuiltIn:           true,
		},
	}
}

// SeedDefaultRules inserts the built-in rules that are not present yet,
// matching by name so the seeding stays idempotent across restarts.
func SeedDefaultRules(ctx context.Context, rules repository.AlertRuleRepository, log *zap.Logger) error {
	for _, rule := range DefaultRules() {
		count, err := rules.CountRulesByName(ctx, rule.Name)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := rules.CreateRule(ctx, &rule); err != nil {
			return err
		}
		log.Info("seeded built-in alert rule", zap.String("name", rule.Name))
	}
	return nil
}
