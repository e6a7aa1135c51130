// Package weather defines the snapshot accessor the alerting engine consumes.
// Only the interface and a static provider live here; a real forecast client
// is a separate concern.
package weather

import "context"

// ForecastDay is one day of forecast data.
type ForecastDay struct {
	Date           string  `json:"date"`
	TemperatureMin float64 `json:"temperature_min"`
	TemperatureMax float64 `json:"temperature_max"`
	Condition      string  `json:"condition"`
	Precipitation  float64 `json:"precipitation"`
}

// Snapshot is the current-conditions view rules evaluate against.
type Snapshot struct {
	Temperature     float64       `json:"temperature"`
	Humidity        float64       `json:"humidity"`
	Precipitation   float64       `json:"precipitation"`
	WindSpeed       float64       `json:"wind_speed"`
	Condition       string        `json:"condition"`
	DaysWithoutRain int           `json:"days_without_rain"`
	Forecast        []ForecastDay `json:"forecast"`
}

// Provider supplies weather snapshots for a location.
type Provider interface {
	Current(ctx context.Context, lat, lng float64) (*Snapshot, error)
}

// StaticProvider returns a fixed snapshot. Used as the default when no
// forecast service is configured, and by tests.
type StaticProvider struct {
	Snapshot Snapshot
}

// NewStaticProvider returns a provider with mild default conditions.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		Snapshot: Snapshot{
			Temperature:     15.0,
			Humidity:        75,
			Precipitation:   0,
			WindSpeed:       10,
			Condition:       "Céu limpo",
			DaysWithoutRain: 3,
		},
	}
}

// Current implements Provider.
func (p *StaticProvider) Current(_ context.Context, _, _ float64) (*Snapshot, error) {
	snapshot := p.Snapshot
	return &snapshot, nil
}
