package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
)

const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherClient reads current conditions from the OpenWeatherMap API.
type OpenWeatherClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewOpenWeatherClient(apiKey string) *OpenWeatherClient {
	return &OpenWeatherClient{BaseURL: DefaultOpenWeatherURL, APIKey: apiKey, HTTP: http.DefaultClient}
}

type owmResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s in metric units
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, lat, lng float64) (Reading, error) {
	if c.APIKey == "" {
		return Reading{}, errors.New("openweather: api key not configured")
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, err
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("openweather: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("openweather: unexpected status %d", resp.StatusCode)
	}

	var body owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("openweather: decode: %w", err)
	}
	if len(body.Weather) == 0 {
		return Reading{}, errors.New("openweather: response has no weather condition")
	}
	return Reading{
		TemperatureC: body.Main.Temp,
		WindKph:      math.Round(body.Wind.Speed*3.6*10) / 10,
		Condition:    body.Weather[0].Main,
	}, nil
}

// StaticProvider always reports the same reading. Used offline and in development.
type StaticProvider Reading

func (s StaticProvider) CurrentWeather(context.Context, float64, float64) (Reading, error) {
	return Reading(s), nil
}
