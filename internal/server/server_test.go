package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bark-labs/pushover-cli/internal/config"
	"github.com/bark-labs/pushover-cli/internal/model"
	"github.com/bark-labs/pushover-cli/internal/pushover"
	"github.com/bark-labs/pushover-cli/internal/service"
	"github.com/bark-labs/pushover-cli/internal/storage/bolt"
)

// fakePushover answers validate and sounds successfully and the send
// endpoint with sendStatus/sendBody.
func fakePushover(t *testing.T, sendStatus int, sendBody string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/1/users/validate.json":
			_, _ = io.WriteString(w, `{"status":1}`)
		case "/1/messages.json":
			w.WriteHeader(sendStatus)
			_, _ = io.WriteString(w, sendBody)
		case "/1/sounds.json":
			_, _ = io.WriteString(w, `{"status":1,"sounds":{"bike":"Bike"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestServer(t *testing.T, authEnabled bool, sendStatus int, sendBody string) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.HTTP.ReadTimeout = 5 * time.Second
	cfg.HTTP.WriteTimeout = 5 * time.Second
	cfg.Storage.Path = filepath.Join(t.TempDir(), "history.db")
	cfg.Auth.Enabled = authEnabled
	cfg.Auth.Username = "admin"
	cfg.Auth.Password = "secret"

	client, err := pushover.New(fakePushover(t, sendStatus, sendBody), "app", "user", 5*time.Second)
	require.NoError(t, err)
	store, err := bolt.New(cfg.Storage.Path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	auth, err := service.NewAuthService(cfg)
	require.NoError(t, err)
	return New(cfg, service.NewNotifyService(client, store, nil), service.NewDeliveryLogService(store), auth, nil)
}

func doJSON(t *testing.T, s *Server, method, target, body, token string) (int, model.BasicResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload model.BasicResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	status, resp := doJSON(t, s, http.MethodPost, "/auth/login", `{"username":"admin","password":"secret"}`, "")
	require.Equal(t, http.StatusOK, status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, true, http.StatusOK, `{"status":1}`)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotifyRequiresAuth(t *testing.T) {
	s := newTestServer(t, true, http.StatusOK, `{"status":1}`)

	status, resp := doJSON(t, s, http.MethodPost, "/notify", `{"message":"hi"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, model.ErrorCode, resp.Code)

	status, _ = doJSON(t, s, http.MethodPost, "/auth/login", `{"username":"admin","password":"nope"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestNotifyAndHistory(t *testing.T) {
	s := newTestServer(t, true, http.StatusOK, `{"status":1}`)
	token := login(t, s)

	status, resp := doJSON(t, s, http.MethodPost, "/notify", `{"device":"phone","title":"Build","message":"done"}`, token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, model.SuccessCode, resp.Code)

	status, resp = doJSON(t, s, http.MethodGet, "/api/delivery/log/list?device=phone", "", token)
	require.Equal(t, http.StatusOK, status)
	page, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 1, page["total"])

	status, resp = doJSON(t, s, http.MethodGet, "/api/delivery/log/count/status", "", token)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Data, 1)
}

func TestDeliveryLogByID(t *testing.T) {
	s := newTestServer(t, false, http.StatusOK, `{"status":1}`)

	status, _ := doJSON(t, s, http.MethodPost, "/notify", `{"device":"phone","message":"done"}`, "")
	require.Equal(t, http.StatusOK, status)

	status, resp := doJSON(t, s, http.MethodGet, "/api/delivery/log/1", "", "")
	require.Equal(t, http.StatusOK, status)
	entry, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "phone", entry["device"])
	require.Equal(t, model.DeliveryStatusSuccess, entry["status"])

	status, _ = doJSON(t, s, http.MethodGet, "/api/delivery/log/7", "", "")
	require.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, s, http.MethodGet, "/api/delivery/log/abc", "", "")
	require.Equal(t, http.StatusBadRequest, status)

	status, resp = doJSON(t, s, http.MethodGet, "/api/delivery/log/count/device", "", "")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Data, 1)
}

func TestNotifyRateLimited(t *testing.T) {
	s := newTestServer(t, false, http.StatusTooManyRequests, `{"status":0}`)

	status, resp := doJSON(t, s, http.MethodPost, "/notify", `{"message":"hi"}`, "")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, model.RateLimitedCode, resp.Code)
}

func TestNotifyValidation(t *testing.T) {
	s := newTestServer(t, false, http.StatusOK, `{"status":1}`)

	status, _ := doJSON(t, s, http.MethodPost, "/notify", `{"message":""}`, "")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, s, http.MethodPost, "/notify", `{"message":"hi","priority":2}`, "")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestSounds(t *testing.T) {
	s := newTestServer(t, false, http.StatusOK, `{"status":1}`)

	status, resp := doJSON(t, s, http.MethodGet, "/sounds", "", "")
	require.Equal(t, http.StatusOK, status)
	sounds, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, sounds, 1)
}

func TestProfile(t *testing.T) {
	s := newTestServer(t, true, http.StatusOK, `{"status":1}`)
	token := login(t, s)

	status, resp := doJSON(t, s, http.MethodGet, "/auth/profile", "", token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "admin", resp.Data.(map[string]any)["username"])
}

func TestExtractBearerToken(t *testing.T) {
	require.Equal(t, "abc", extractBearerToken("Bearer abc"))
	require.Equal(t, "abc", extractBearerToken("bearer  abc "))
	require.Empty(t, extractBearerToken("Basic abc"))
	require.Empty(t, extractBearerToken("abc"))
}

func TestParseTime(t *testing.T) {
	require.Nil(t, parseTime(""))
	require.Nil(t, parseTime("yesterday"))
	got := parseTime("2026-03-01T10:00:00Z")
	require.NotNil(t, got)
	require.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *got)
}
