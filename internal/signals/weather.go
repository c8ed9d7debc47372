// weather.go reads the weather cache the weather satellite maintains.

package signals

import (
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

// Weather is state/weather-cache.json. Alerts are advisory strings such
// as "High Wind Warning until 6 PM".
type Weather struct {
	Condition    string   `json:"condition"`
	TemperatureF float64  `json:"temperature_f,omitempty"`
	Alerts       []string `json:"alerts,omitempty"`
}

// LoadWeather returns the cached weather, or nil when the file is
// missing or unreadable.
func LoadWeather(root mind.Root) *Weather {
	var w Weather
	if !util.ReadJSONFile(root.WeatherCacheFile(), &w) {
		return nil
	}
	return &w
}
