// Package weather wraps the two weather providers: OpenWeatherMap for the
// HTTP tool surface and the National Weather Service for the stdio surface.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/xiy/toolbelt-mcp/internal/tools"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// Conditions is the normalized current-weather result.
type Conditions struct {
	Temp float64 `json:"temp"`
	Desc string  `json:"desc"`
}

// Client calls the OpenWeatherMap current-weather endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient constructs an OpenWeatherMap client. A missing key is a
// configuration error here, before any network call is possible.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, tools.Configurationf("OpenWeatherMap API key not configured")
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultOpenWeatherBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type openWeatherResponse struct {
	Cod  json.Number `json:"cod"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Message string `json:"message"`
}

// Current returns the current temperature and description for a location.
func (c *Client) Current(ctx context.Context, location string) (Conditions, error) {
	u := fmt.Sprintf("%s/data/2.5/weather?q=%s&appid=%s&units=metric",
		c.baseURL, url.QueryEscape(location), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Conditions{}, tools.Providerf("weather request failed: %v", err)
	}
	defer resp.Body.Close()

	var body openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Conditions{}, tools.Providerf("weather response is not valid JSON: %v", err)
	}
	// The provider reports its own status in the body alongside the HTTP code.
	if body.Cod.String() != "200" {
		msg := body.Message
		if msg == "" {
			msg = resp.Status
		}
		return Conditions{}, tools.Providerf("weather fetch failed: %s", msg)
	}
	if len(body.Weather) == 0 {
		return Conditions{}, tools.Providerf("weather response missing conditions")
	}
	return Conditions{Temp: body.Main.Temp, Desc: body.Weather[0].Description}, nil
}
