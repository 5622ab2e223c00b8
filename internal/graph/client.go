package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/user"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	defaultAuthURL = "https://login.microsoftonline.com"
	ScopeReadUsers = "User.Read.All"
	ScopeSendMail  = "Mail.Send"
)

// Client talks to the directory/mail backend with a delegated token obtained
// through the device-code flow. Authenticate must succeed before any other
// call.
type Client struct {
	client   *http.Client
	log      *slog.Logger
	baseURL  string
	authURL  string
	tenantID string
	clientID string
	token    string
	out      io.Writer
}

func NewClient(tenantID, clientID string, out io.Writer, log *slog.Logger) *Client {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &Client{
		client:   client,
		log:      log,
		baseURL:  defaultBaseURL,
		authURL:  defaultAuthURL,
		tenantID: tenantID,
		clientID: clientID,
		out:      out,
	}
}

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	Message         string `json:"message"`
	Interval        int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Authenticate runs the device-code flow for the given scopes: it prints the
// verification URI and one-time code, then polls the token endpoint until the
// operator signs in or the code expires. Failure here aborts the run before
// any user is processed.
func (c *Client) Authenticate(ctx context.Context, scopes ...string) error {
	form := url.Values{
		"client_id": {c.clientID},
		"scope":     {strings.Join(scopes, " ")},
	}

	dc := deviceCodeResponse{}
	if err := c.postForm(ctx, c.tenantURL("devicecode"), form, &dc); err != nil {
		return fmt.Errorf("requesting device code: %w", err)
	}

	if dc.Message != "" {
		fmt.Fprintln(c.out, dc.Message)
	} else {
		fmt.Fprintf(c.out, "To sign in, open %s and enter the code %s\n", dc.VerificationURI, dc.UserCode)
	}

	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(dc.ExpiresIn) * time.Second)

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("device code expired before sign-in completed")
		}

		form := url.Values{
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
			"client_id":   {c.clientID},
			"device_code": {dc.DeviceCode},
		}

		var tok tokenResponse
		if err := c.postForm(ctx, c.tenantURL("token"), form, &tok); err != nil {
			return fmt.Errorf("polling for token: %w", err)
		}

		switch tok.Error {
		case "":
			c.token = tok.AccessToken
			c.log.Debug("directory authentication complete", "scopes", scopes)
			return nil
		case "authorization_pending", "slow_down":
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		default:
			return fmt.Errorf("directory sign-in failed: %s", tok.Error)
		}
	}
}

// ListUsers enumerates directory users with a non-empty mail attribute,
// following pagination links until the directory is exhausted.
func (c *Client) ListUsers(ctx context.Context) ([]user.User, error) {
	var users []user.User

	next := c.baseURL + "/users?$select=id,mail,displayName,givenName"
	for next != "" {
		var page struct {
			Value    []user.User `json:"value"`
			NextLink string      `json:"@odata.nextLink"`
		}

		resp, err := c.doRequest(ctx, "GET", next, nil)
		if err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
		if err := c.parseResponse(resp, &page); err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}

		for _, u := range page.Value {
			if u.Mail == "" {
				continue
			}
			users = append(users, u)
		}
		next = page.NextLink
	}

	c.log.Debug("directory enumerated", "users", len(users))
	return users, nil
}

// Message is one outgoing mail.
type Message struct {
	ToAddress string
	Subject   string
	HTMLBody  string
}

// SendMail sends an HTML message from the signed-in account, keeping a copy
// in its sent items.
func (c *Client) SendMail(ctx context.Context, msg Message) error {
	payload := map[string]interface{}{
		"message": map[string]interface{}{
			"subject": msg.Subject,
			"body": map[string]string{
				"contentType": "HTML",
				"content":     msg.HTMLBody,
			},
			"toRecipients": []map[string]interface{}{
				{"emailAddress": map[string]string{"address": msg.ToAddress}},
			},
		},
		"saveToSentItems": true,
	}

	resp, err := c.doRequest(ctx, "POST", c.baseURL+"/me/sendMail", payload)
	if err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.ToAddress, err)
	}
	if err := c.parseResponse(resp, nil); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.ToAddress, err)
	}
	return nil
}

func (c *Client) tenantURL(endpoint string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/%s", c.authURL, c.tenantID, endpoint)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	// Token polling reports pending states as 400s with a JSON error field,
	// so the body is decoded regardless of status.
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

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
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("backend error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
