package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultNWSBaseURL = "https://api.weather.gov"
	nwsUserAgent      = "toolbelt-mcp/1.0"
	maxForecastPeriods = 5
)

// NWSClient calls the National Weather Service API. No credential is needed.
type NWSClient struct {
	baseURL string
	http    *http.Client
}

// NewNWSClient constructs an NWS client.
func NewNWSClient() *NWSClient {
	return &NWSClient{
		baseURL: defaultNWSBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type alertsResponse struct {
	Features []struct {
		Properties struct {
			Event       string `json:"event"`
			AreaDesc    string `json:"areaDesc"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
			Instruction string `json:"instruction"`
		} `json:"properties"`
	} `json:"features"`
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []struct {
			Name             string `json:"name"`
			Temperature      int    `json:"temperature"`
			TemperatureUnit  string `json:"temperatureUnit"`
			WindSpeed        string `json:"windSpeed"`
			WindDirection    string `json:"windDirection"`
			DetailedForecast string `json:"detailedForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

// Alerts returns active weather alerts for a US state as readable text.
func (c *NWSClient) Alerts(ctx context.Context, state string) (string, error) {
	var body alertsResponse
	url := fmt.Sprintf("%s/alerts/active/area/%s", c.baseURL, strings.ToUpper(strings.TrimSpace(state)))
	if err := c.getJSON(ctx, url, &body); err != nil {
		return "Unable to fetch alerts or no alerts found.", nil
	}
	if len(body.Features) == 0 {
		return "No active alerts for this state.", nil
	}

	parts := make([]string, 0, len(body.Features))
	for _, f := range body.Features {
		p := f.Properties
		parts = append(parts, fmt.Sprintf(
			"Event: %s\nArea: %s\nSeverity: %s\nDescription: %s\nInstructions: %s",
			orDefault(p.Event, "Unknown"),
			orDefault(p.AreaDesc, "Unknown"),
			orDefault(p.Severity, "Unknown"),
			orDefault(p.Description, "No description available"),
			orDefault(p.Instruction, "No specific instructions provided"),
		))
	}
	return strings.Join(parts, "\n---\n"), nil
}

// Forecast returns the next few forecast periods for a coordinate as
// readable text. The forecast URL comes from a first points lookup.
func (c *NWSClient) Forecast(ctx context.Context, latitude, longitude float64) (string, error) {
	var points pointsResponse
	pointsURL := fmt.Sprintf("%s/points/%g,%g", c.baseURL, latitude, longitude)
	if err := c.getJSON(ctx, pointsURL, &points); err != nil {
		return "Unable to fetch forecast data for this location.", nil
	}
	if points.Properties.Forecast == "" {
		return "Unable to fetch forecast data for this location.", nil
	}

	var forecast forecastResponse
	if err := c.getJSON(ctx, points.Properties.Forecast, &forecast); err != nil {
		return "Unable to fetch detailed forecast.", nil
	}

	periods := forecast.Properties.Periods
	if len(periods) > maxForecastPeriods {
		periods = periods[:maxForecastPeriods]
	}
	parts := make([]string, 0, len(periods))
	for _, p := range periods {
		parts = append(parts, fmt.Sprintf(
			"%s:\nTemperature: %d°%s\nWind: %s %s\nForecast: %s",
			p.Name, p.Temperature, p.TemperatureUnit, p.WindSpeed, p.WindDirection, p.DetailedForecast,
		))
	}
	return strings.Join(parts, "\n---\n"), nil
}

func (c *NWSClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", nwsUserAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nws returned status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
