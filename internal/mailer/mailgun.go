// Package mailer wraps the Mailgun transactional mail API.
package mailer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xiy/toolbelt-mcp/internal/tools"
)

const defaultBaseURL = "https://api.mailgun.net"

// SendResult is the normalized success payload.
type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client sends mail through Mailgun.
type Client struct {
	apiKey  string
	domain  string
	baseURL string
	http    *http.Client
}

// NewClient constructs a Mailgun client. Both the key and the sending domain
// are required before any network call.
func NewClient(apiKey, domain string) (*Client, error) {
	if apiKey == "" || domain == "" {
		return nil, tools.Configurationf("Mailgun API key or domain not configured")
	}
	return &Client{
		apiKey:  apiKey,
		domain:  domain,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Send posts a single message. fromName is optional and only decorates the
// sender address.
func (c *Client) Send(ctx context.Context, to, subject, text, fromName string) (SendResult, error) {
	from := fmt.Sprintf("mailgun@%s", c.domain)
	if fromName != "" {
		from = fmt.Sprintf("%s <mailgun@%s>", fromName, c.domain)
	}

	form := url.Values{}
	form.Set("from", from)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/v3/%s/messages", c.baseURL, url.PathEscape(c.domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return SendResult{}, tools.Providerf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return SendResult{}, tools.Providerf("failed to send email: %s", strings.TrimSpace(string(body)))
	}
	return SendResult{Success: true, Message: "Email sent successfully"}, nil
}
