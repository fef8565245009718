// Package currency wraps the exchangerate-api.com v6 endpoints.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xiy/toolbelt-mcp/internal/tools"
)

const defaultBaseURL = "https://v6.exchangerate-api.com"

// Conversion is a normalized pair-conversion result.
type Conversion struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	Amount          float64 `json:"amount"`
	ConvertedAmount float64 `json:"converted_amount"`
	Rate            float64 `json:"rate"`
}

// RateTable is the full rate table for one base currency.
type RateTable struct {
	BaseCurrency string             `json:"base_currency"`
	Rates        map[string]float64 `json:"rates"`
	LastUpdated  string             `json:"last_updated"`
}

// Client calls the exchange-rate provider.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient constructs an exchange-rate client; the key is checked up front.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, tools.Configurationf("exchange rate API key not configured")
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type providerResponse struct {
	Result           string             `json:"result"`
	ErrorType        string             `json:"error-type"`
	ConversionResult float64            `json:"conversion_result"`
	ConversionRate   float64            `json:"conversion_rate"`
	ConversionRates  map[string]float64 `json:"conversion_rates"`
	TimeLastUpdate   string             `json:"time_last_update_utc"`
}

// Convert converts amount from one currency to another. The amount may arrive
// as any JSON scalar; non-numeric values are a validation error.
func (c *Client) Convert(ctx context.Context, from, to string, amount any) (Conversion, error) {
	value, err := coerceAmount(amount)
	if err != nil {
		return Conversion{}, err
	}
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	u := fmt.Sprintf("%s/v6/%s/pair/%s/%s/%g",
		c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(from), url.PathEscape(to), value)
	body, err := c.get(ctx, u)
	if err != nil {
		return Conversion{}, err
	}

	return Conversion{
		From:            from,
		To:              to,
		Amount:          value,
		ConvertedAmount: body.ConversionResult,
		Rate:            body.ConversionRate,
	}, nil
}

// Rates returns the full rate table for a base currency.
func (c *Client) Rates(ctx context.Context, base string) (RateTable, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	u := fmt.Sprintf("%s/v6/%s/latest/%s", c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(base))
	body, err := c.get(ctx, u)
	if err != nil {
		return RateTable{}, err
	}
	rates := body.ConversionRates
	if rates == nil {
		rates = map[string]float64{}
	}
	return RateTable{BaseCurrency: base, Rates: rates, LastUpdated: body.TimeLastUpdate}, nil
}

func (c *Client) get(ctx context.Context, u string) (providerResponse, error) {
	var body providerResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return body, fmt.Errorf("build currency request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return body, tools.Providerf("currency request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return body, tools.Providerf("currency API request failed with status code %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return body, tools.Providerf("currency response is not valid JSON: %v", err)
	}
	if body.Result != "success" {
		msg := body.ErrorType
		if msg == "" {
			msg = "unknown error"
		}
		return body, tools.Providerf("currency API error: %s", msg)
	}
	return body, nil
}

func coerceAmount(amount any) (float64, error) {
	switch v := amount.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, tools.Validationf("invalid amount format")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, tools.Validationf("invalid amount format")
		}
		return f, nil
	default:
		return 0, tools.Validationf("invalid amount format")
	}
}
