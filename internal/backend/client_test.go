package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, WithTimeout(5*time.Second))
}

func TestLoginPostsCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, Credentials{Username: "admin", Password: "pw"}, body)
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "tok-1", TokenType: "bearer"})
	})

	resp, err := client.Login(context.Background(), "admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.AccessToken)
}

func TestMeSendsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = fmt.Fprint(w, `{"id":7,"username":"avery","is_admin":true}`)
	})

	user, err := client.Me(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, User{ID: 7, Username: "avery", IsAdmin: true}, user)
}

func TestErrorsCarryStatusAndDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"detail":"Invalid credentials"}`)
	})

	_, err := client.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", Message(err, "Login failed"))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.True(t, IsUnauthorized(err))
}

func TestValidationDetailIsJoined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = fmt.Fprint(w, `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`)
	})

	_, err := client.Setup(context.Background(), "", "")
	assert.Equal(t, "field required; too short", Message(err, "fallback"))
}

func TestMessageFallsBack(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", Message(&APIError{Status: 500}, "fallback"))
	assert.Zero(t, StatusOf(errors.New("boom")))
	assert.Zero(t, StatusOf(nil))
}

func TestOrdersEncodesFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/orders", r.URL.Path)
		assert.Equal(t, "shipped", r.URL.Query().Get("status"))
		assert.Equal(t, "lamp", r.URL.Query().Get("search"))
		_, _ = fmt.Fprint(w, `[{"id":1,"status":"shipped","total_amount":12.5,"currency":"EUR","items":null,
			"created_at":"2026-02-16T10:00:00Z","updated_at":"2026-02-16T10:00:00Z"}]`)
	})

	orders, err := client.Orders(context.Background(), "tok", OrderFilter{Status: "shipped", Search: "lamp"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].TotalAmount)
	assert.InDelta(t, 12.5, *orders[0].TotalAmount, 0.0001)
	assert.Equal(t, "EUR", *orders[0].Currency)
}

func TestScansEncodesOptionalFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("is_relevant"))
		assert.False(t, q.Has("account_id"))
		_, _ = fmt.Fprint(w, `{"items":[],"total":0,"page":2,"per_page":50}`)
	})

	relevant := false
	list, err := client.Scans(context.Background(), "tok", ScanFilter{Page: 2, IsRelevant: &relevant})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Page)
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/providers/email-global/sender-addresses/9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.RemoveSenderAddress(context.Background(), "tok", 9))
}

func TestSetModuleEnabled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/modules/notify-email", r.URL.Path)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body["enabled"])
		_, _ = fmt.Fprint(w, `{"module_key":"notify-email","enabled":false}`)
	})

	state, err := client.SetModuleEnabled(context.Background(), "tok", "notify-email", false)
	require.NoError(t, err)
	assert.False(t, state.Enabled)
	assert.True(t, state.IsConfigured())
}

func TestContextCancellationAborts(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Status(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, StatusOf(err))
}
