package currency

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xiy/toolbelt-mcp/internal/tools"
)

func TestConvert(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/pair/USD/EUR/") {
			t.Errorf("expected upper-cased pair path, got %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"result":"success","conversion_rate":0.92,"conversion_result":92}`)
	}))
	defer srv.Close()

	c, err := NewClient("key")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.baseURL = srv.URL

	got, err := c.Convert(context.Background(), "usd", "eur", 100)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if got.From != "USD" || got.To != "EUR" {
		t.Fatalf("expected upper-cased codes, got %q -> %q", got.From, got.To)
	}
	if got.Amount != 100 || got.ConvertedAmount != 92 || got.Rate != 0.92 {
		t.Fatalf("unexpected conversion: %+v", got)
	}
}

func TestConvert_AmountCoercion(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      any
		want    float64
		wantErr bool
	}{
		{in: 12.5, want: 12.5},
		{in: "42", want: 42},
		{in: " 3.5 ", want: 3.5},
		{in: "abc", wantErr: true},
		{in: map[string]any{}, wantErr: true},
		{in: nil, wantErr: true},
	}
	for _, tc := range cases {
		got, err := coerceAmount(tc.in)
		if tc.wantErr {
			if tools.KindOf(err) != tools.KindValidation {
				t.Fatalf("coerceAmount(%v) expected validation error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("coerceAmount(%v) error = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("coerceAmount(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestConvert_ProviderErrorFlag(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"error","error-type":"unsupported-code"}`)
	}))
	defer srv.Close()

	c, _ := NewClient("key")
	c.baseURL = srv.URL

	_, err := c.Convert(context.Background(), "USD", "XXX", 1)
	if tools.KindOf(err) != tools.KindProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported-code") {
		t.Fatalf("expected provider message, got %q", err.Error())
	}
}

func TestRates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/latest/USD") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"result":"success","conversion_rates":{"EUR":0.92,"JPY":151.2},"time_last_update_utc":"Fri, 15 Mar 2024 00:00:01 +0000"}`)
	}))
	defer srv.Close()

	c, _ := NewClient("key")
	c.baseURL = srv.URL

	got, err := c.Rates(context.Background(), "usd")
	if err != nil {
		t.Fatalf("Rates() error = %v", err)
	}
	if got.BaseCurrency != "USD" {
		t.Fatalf("base = %q", got.BaseCurrency)
	}
	if got.Rates["JPY"] != 151.2 {
		t.Fatalf("rates = %v", got.Rates)
	}
	if got.LastUpdated == "" {
		t.Fatal("expected last_updated to be set")
	}
}

func TestRates_HTTPFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := NewClient("key")
	c.baseURL = srv.URL

	_, err := c.Rates(context.Background(), "USD")
	if tools.KindOf(err) != tools.KindProvider {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status code in message, got %q", err.Error())
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()
	if _, err := NewClient(""); tools.KindOf(err) != tools.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
