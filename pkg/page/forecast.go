package page

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Condition is the provider's condition descriptor.
type Condition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}

// CurrentConditions holds the "current" block of the forecast payload.
type CurrentConditions struct {
	LastUpdatedEpoch int64     `json:"last_updated_epoch"`
	TempC            float64   `json:"temp_c"`
	FeelsLikeC       float64   `json:"feelslike_c"`
	Humidity         int       `json:"humidity"`
	WindKph          float64   `json:"wind_kph"`
	IsDay            int       `json:"is_day"`
	Condition        Condition `json:"condition"`
}

// HourForecast is one hourly entry of a forecast day.
type HourForecast struct {
	TimeEpoch    int64     `json:"time_epoch"`
	Time         string    `json:"time"`
	TempC        float64   `json:"temp_c"`
	ChanceOfRain int       `json:"chance_of_rain"`
	Condition    Condition `json:"condition"`
}

// ForecastDay is one day of the forecast, including its hourly breakdown.
type ForecastDay struct {
	Date string `json:"date"`
	Day  struct {
		MaxTempC          float64   `json:"maxtemp_c"`
		MinTempC          float64   `json:"mintemp_c"`
		DailyChanceOfRain int       `json:"daily_chance_of_rain"`
		Condition         Condition `json:"condition"`
	} `json:"day"`
	Hour []HourForecast `json:"hour"`
}

// Forecast is the payload relayed by the weather proxy. It is read-only and lives for one
// refresh cycle.
type Forecast struct {
	Location struct {
		Name      string `json:"name"`
		Region    string `json:"region"`
		Country   string `json:"country"`
		TzID      string `json:"tz_id"`
		Localtime string `json:"localtime"`
	} `json:"location"`
	Current  CurrentConditions `json:"current"`
	Forecast struct {
		ForecastDay []ForecastDay `json:"forecastday"`
	} `json:"forecast"`
}

// ErrNoCondition is returned when a payload carries no current condition text.
var ErrNoCondition = errors.New("forecast payload has no current condition")

// ParseForecast decodes a proxy response body.
func ParseForecast(data []byte) (*Forecast, error) {
	var f Forecast
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse forecast: %w", err)
	}
	if f.Current.Condition.Text == "" {
		return nil, ErrNoCondition
	}
	return &f, nil
}

// Hours returns the hourly entries of the first forecast day.
func (f *Forecast) Hours() []HourForecast {
	if len(f.Forecast.ForecastDay) == 0 {
		return nil
	}
	return f.Forecast.ForecastDay[0].Hour
}
