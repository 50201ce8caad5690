package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bajo3/Meli-test/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	token       string
	invalidated int
}

func (p *countingProvider) Token(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", &auth.AuthError{Reason: "no access token configured"}
	}
	return p.token, nil
}

func (p *countingProvider) Invalidate() {
	p.invalidated++
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *countingProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := &countingProvider{token: "test-token"}
	return New(srv.URL, tokens, 5*time.Second), tokens, srv
}

func TestCallAttachesBearerToken(t *testing.T) {
	var gotAuth string
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	})

	raw, err := gw.Call(context.Background(), http.MethodGet, "/items/MLA1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestCallNoTokenFailsBeforeRequest(t *testing.T) {
	called := false
	gw, tokens, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	tokens.token = ""

	_, err := gw.Call(context.Background(), http.MethodGet, "/items/MLA1", nil)

	var authErr *auth.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, called)
}

func TestCallUnauthorizedInvalidatesToken(t *testing.T) {
	gw, tokens, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid token"}`))
	})

	_, err := gw.Call(context.Background(), http.MethodGet, "/items/MLA1", nil)

	var authErr *auth.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, tokens.invalidated)
	assert.Contains(t, authErr.Error(), "401")
}

func TestCallErrorFieldCausesTakePriority(t *testing.T) {
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"message": "Validation error",
			"cause": [
				{"field": "title", "message": "too short"},
				{"field": "price", "code": "invalid_value"}
			]
		}`))
	})

	_, err := gw.Call(context.Background(), http.MethodPost, "/items", map[string]string{})

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Message, "title → too short")
	assert.Contains(t, remoteErr.Message, "price → invalid_value")
	assert.Len(t, remoteErr.Causes, 2)
}

func TestCallErrorTopLevelMessage(t *testing.T) {
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"Not available quota for this listing type"}`))
	})

	_, err := gw.Call(context.Background(), http.MethodPost, "/items", map[string]string{})

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "Not available quota for this listing type", remoteErr.Message)
}

func TestCallErrorFallbackIncludesStatus(t *testing.T) {
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{}`))
	})

	_, err := gw.Call(context.Background(), http.MethodGet, "/items/MLA1", nil)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Message, "500")
}

func TestCallNonJSONErrorBodyPreserved(t *testing.T) {
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream gateway timed out"))
	})

	_, err := gw.Call(context.Background(), http.MethodGet, "/items/MLA1", nil)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Message, "502")
	assert.Contains(t, remoteErr.Message, "upstream gateway timed out")
}

func TestCallEncodesRequestBody(t *testing.T) {
	var gotBody []byte
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)
		w.Write([]byte(`{"id":"MLA1","price":150}`))
	})

	_, err := gw.Call(context.Background(), http.MethodPut, "/items/MLA1", map[string]float64{"price": 150})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":150}`, string(gotBody))
}
