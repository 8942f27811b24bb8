package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-history/internal/weather"
)

// DefaultWeatherAPIURL is the WeatherAPI.com current-conditions endpoint.
const DefaultWeatherAPIURL = "http://api.weatherapi.com/v1/current.json"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(cfg HTTPClientConfig, apiKey, baseURL string) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIURL
	}

	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newCircuitBreaker("weatherapi", cfg),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// weatherAPIResponse mirrors the subset of current.json that is stored.
type weatherAPIResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		LastUpdated string   `json:"last_updated"`
		TempC       *float64 `json:"temp_c"`
		TempF       *float64 `json:"temp_f"`
		FeelsLikeC  *float64 `json:"feelslike_c"`
		FeelsLikeF  *float64 `json:"feelslike_f"`
		Condition   struct {
			Text *string `json:"text"`
		} `json:"condition"`
		WindMph    *float64 `json:"wind_mph"`
		WindKph    *float64 `json:"wind_kph"`
		WindDegree *int     `json:"wind_degree"`
		WindDir    *string  `json:"wind_dir"`
		PressureMb *float64 `json:"pressure_mb"`
		PressureIn *float64 `json:"pressure_in"`
		PrecipMm   *float64 `json:"precip_mm"`
		Humidity   *int     `json:"humidity"`
		Cloud      *int     `json:"cloud"`
	} `json:"current"`
}

// Current fetches the current conditions for city with a single GET
// (q=<city>&key=<api key>&aqi=no).
func (p *WeatherAPIProvider) Current(ctx context.Context, city string) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("%w: weatherapi api key is not configured", weather.ErrUpstream)
	}
	if strings.TrimSpace(city) == "" {
		return weather.Observation{}, fmt.Errorf("%w: city is required", weather.ErrValidation)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("key", p.apiKey)
		values.Set("aqi", "no")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload weatherAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("%w: decode weatherapi payload: %v", weather.ErrUpstream, err)
	}
	if payload.Location.Name == "" || payload.Current.LastUpdated == "" {
		return weather.Observation{}, fmt.Errorf("%w: weatherapi payload missing location name or last_updated", weather.ErrUpstream)
	}

	c := payload.Current
	return weather.Observation{
		Name:        payload.Location.Name,
		Country:     payload.Location.Country,
		LastUpdated: c.LastUpdated,
		TempC:       c.TempC,
		TempF:       c.TempF,
		FeelsLikeC:  c.FeelsLikeC,
		FeelsLikeF:  c.FeelsLikeF,
		Condition:   c.Condition.Text,
		WindMph:     c.WindMph,
		WindKph:     c.WindKph,
		WindDegree:  c.WindDegree,
		WindDir:     c.WindDir,
		PressureMb:  c.PressureMb,
		PressureIn:  c.PressureIn,
		PrecipMm:    c.PrecipMm,
		Humidity:    c.Humidity,
		Cloud:       c.Cloud,
	}, nil
}
