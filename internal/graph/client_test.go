package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-tenant", "test-client", io.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = srv.URL
	c.authURL = srv.URL
	return c
}

func TestAuthenticate(t *testing.T) {
	polls := 0
	var out bytes.Buffer

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/test-tenant/oauth2/v2.0/devicecode":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "test-client", r.Form.Get("client_id"))
			assert.Equal(t, "User.Read.All Mail.Send", r.Form.Get("scope"))
			fmt.Fprint(w, `{"device_code": "dc", "user_code": "ABC123",
				"verification_uri": "https://example.com/device",
				"interval": 1, "expires_in": 60}`)
		case "/test-tenant/oauth2/v2.0/token":
			polls++
			if polls == 1 {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error": "authorization_pending"}`)
				return
			}
			fmt.Fprint(w, `{"access_token": "tok"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	c.out = &out

	err := c.Authenticate(context.Background(), ScopeReadUsers, ScopeSendMail)
	require.NoError(t, err)
	assert.Equal(t, "tok", c.token)
	assert.Equal(t, 2, polls)
	assert.Contains(t, out.String(), "ABC123")
}

func TestAuthenticateDenied(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/test-tenant/oauth2/v2.0/devicecode":
			fmt.Fprint(w, `{"device_code": "dc", "user_code": "ABC123", "interval": 0, "expires_in": 60}`)
		case "/test-tenant/oauth2/v2.0/token":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "access_denied"}`)
		}
	}))

	err := c.Authenticate(context.Background(), ScopeReadUsers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestListUsers(t *testing.T) {
	var srvURL string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("page") {
		case "2":
			fmt.Fprint(w, `{"value": [
				{"id": "3", "mail": "carol@example.com", "displayName": "Carol Jones", "givenName": "Carol"}
			]}`)
		default:
			fmt.Fprintf(w, `{"value": [
				{"id": "1", "mail": "alice@example.com", "displayName": "Alice Smith", "givenName": "Alice"},
				{"id": "2", "mail": "", "displayName": "Room 101", "givenName": ""}
			], "@odata.nextLink": %q}`, srvURL+"/users?page=2")
		}
	}))
	srvURL = c.baseURL
	c.token = "tok"

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)

	// The mail-less entry is dropped, pagination is followed.
	require.Len(t, users, 2)
	assert.Equal(t, "alice@example.com", users[0].Mail)
	assert.Equal(t, "carol@example.com", users[1].Mail)
}

func TestSendMail(t *testing.T) {
	var payload map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/sendMail", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	c.token = "tok"

	err := c.SendMail(context.Background(), Message{
		ToAddress: "alice@example.com",
		Subject:   "Data breach notification",
		HTMLBody:  "<html></html>",
	})
	require.NoError(t, err)

	assert.Equal(t, true, payload["saveToSentItems"])
	msg := payload["message"].(map[string]interface{})
	body := msg["body"].(map[string]interface{})
	assert.Equal(t, "HTML", body["contentType"])
}

func TestSendMailFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"message": "missing Mail.Send scope"}}`)
	}))
	c.token = "tok"

	err := c.SendMail(context.Background(), Message{ToAddress: "alice@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing Mail.Send scope")
}
