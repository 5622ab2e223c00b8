package hibp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/breach"
)

const DefaultBaseURL = "https://haveibeenpwned.com/api/v3"

// Subscription is the state of the caller's HIBP subscription. Rpm is the
// requests-per-minute allowance the orchestrator paces itself against.
type Subscription struct {
	Name        string `json:"SubscriptionName"`
	Description string `json:"Description"`
	Rpm         int    `json:"Rpm"`
}

// Client talks to the Have I Been Pwned v3 API. The API key is sent as a
// request header on every call and is never logged.
type Client struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	apiKey    string
	userAgent string
}

func NewClient(baseURL, apiKey string, log *slog.Logger) *Client {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		client:    client,
		log:       log,
		baseURL:   baseURL,
		apiKey:    apiKey,
		userAgent: "HIBP-Breach-Notifier/1.0",
	}
}

// CheckSubscription queries the subscription-status endpoint. Any failure —
// transport, auth, non-2xx — is an error; callers treat it as fatal for the
// run since without a valid subscription no lookups will succeed.
func (c *Client) CheckSubscription(ctx context.Context) (*Subscription, error) {
	resp, err := c.doRequest(ctx, "/subscription/status")
	if err != nil {
		return nil, fmt.Errorf("checking subscription status: %w", err)
	}

	var sub Subscription
	if err := c.parseResponse(resp, &sub); err != nil {
		return nil, fmt.Errorf("checking subscription status: %w", err)
	}
	if sub.Rpm <= 0 {
		return nil, fmt.Errorf("subscription status reports no request allowance")
	}

	c.log.Debug("subscription verified", "plan", sub.Name, "rpm", sub.Rpm)
	return &sub, nil
}

// FetchBreaches returns every breach the source attributes to the address, in
// source order, with the queried email and a fresh surrogate ID stamped on.
// A 404 means the address appears in zero breaches and is returned as
// breach.ErrNoBreaches; transport and auth failures wrap breach.ErrFetchFailed
// so callers can keep the two apart.
func (c *Client) FetchBreaches(ctx context.Context, email string) ([]breach.Record, error) {
	resp, err := c.doRequest(ctx, "/breachedaccount/"+url.PathEscape(email)+"?truncateResponse=false")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", breach.ErrFetchFailed, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, breach.ErrNoBreaches
	}

	var records []breach.Record
	if err := c.parseResponse(resp, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", breach.ErrFetchFailed, err)
	}

	for i := range records {
		records[i].ID = uuid.NewString()
		records[i].Email = email
	}
	return records, nil
}

func (c *Client) doRequest(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("hibp-api-key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug("querying breach source", "url", req.URL.Path)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
