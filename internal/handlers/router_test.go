package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mossy-p/signalhub/config"
	"github.com/mossy-p/signalhub/internal/middleware"
	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/session"
	"github.com/mossy-p/signalhub/internal/signaling"
	"github.com/stretchr/testify/require"
)

const testSecret = "operator-secret"

func request(t *testing.T, h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func operatorToken(t *testing.T) string {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, "ops", time.Hour, time.Now())
	require.NoError(t, err)
	return "Bearer " + token
}

// seedRoom registers sessions and joins them to room without a connection
func seedRoom(t *testing.T, hub *Hub, room string, members ...session.ID) {
	t.Helper()
	var err error
	require.NoError(t, hub.Do(context.Background(), func(s *signaling.Server) {
		for _, id := range members {
			if _, err = s.Sessions.Register(id); err != nil {
				return
			}
			s.Join(id, json.RawMessage(`"`+room+`"`), nil)
		}
	}))
	require.NoError(t, err)
}

func TestRouter_Health(t *testing.T) {
	router := NewRouter(context.Background(), &config.Config{}, startHub(t, signaling.Options{}))

	w := request(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOriginFilter(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: []string{"https://app.example.org"}}
	router := NewRouter(context.Background(), cfg, startHub(t, signaling.Options{}))

	w := request(t, router, http.MethodGet, "/health", map[string]string{"Origin": "https://evil.example.org"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = request(t, router, http.MethodGet, "/health", map[string]string{"Origin": "https://app.example.org"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code, "requests without an origin are not browser requests")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = request(t, router, http.MethodOptions, "/api/rooms", map[string]string{"Origin": "https://app.example.org"})
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestOriginFilter_Wildcard(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: []string{"*"}}
	router := NewRouter(context.Background(), cfg, startHub(t, signaling.Options{}))

	w := request(t, router, http.MethodGet, "/health", map[string]string{"Origin": "https://anything.example.org"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminAPIDisabledWithoutSecret(t *testing.T) {
	router := NewRouter(context.Background(), &config.Config{}, startHub(t, signaling.Options{}))

	w := request(t, router, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRooms_RequireOperatorToken(t *testing.T) {
	router := NewRouter(context.Background(), &config.Config{JWTSecret: testSecret}, startHub(t, signaling.Options{}))

	w := request(t, router, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := middleware.IssueToken("another-secret", "ops", time.Hour, time.Now())
	require.NoError(t, err)
	w = request(t, router, http.MethodGet, "/api/rooms", map[string]string{"Authorization": "Bearer " + other})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRooms_ListAndGet(t *testing.T) {
	hub := startHub(t, signaling.Options{})
	router := NewRouter(context.Background(), &config.Config{JWTSecret: testSecret}, hub)
	auth := map[string]string{"Authorization": operatorToken(t)}

	w := request(t, router, http.MethodGet, "/api/rooms", auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	seedRoom(t, hub, "beta", "b1")
	seedRoom(t, hub, "alpha", "a1", "a2")

	w = request(t, router, http.MethodGet, "/api/rooms", auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[{"name":"alpha","clients":2},{"name":"beta","clients":1}]`, w.Body.String())

	w = request(t, router, http.MethodGet, "/api/rooms/alpha", auth)
	require.Equal(t, http.StatusOK, w.Code)
	var desc models.RoomDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &desc))
	require.Len(t, desc.Clients, 2)
	require.Contains(t, desc.Clients, "a1")
	require.Contains(t, desc.Clients, "a2")

	w = request(t, router, http.MethodGet, "/api/rooms/missing", auth)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRooms_Delete(t *testing.T) {
	hub := startHub(t, signaling.Options{})
	router := NewRouter(context.Background(), &config.Config{JWTSecret: testSecret}, hub)
	auth := map[string]string{"Authorization": operatorToken(t)}

	seedRoom(t, hub, "doomed", "d1", "d2")

	w := request(t, router, http.MethodDelete, "/api/rooms/doomed", auth)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"message":"Room deleted","evicted":2}`, w.Body.String())

	var count int
	var sess *session.Session
	var err error
	require.NoError(t, hub.Do(context.Background(), func(s *signaling.Server) {
		count = s.Rooms.Count("doomed")
		sess, err = s.Sessions.Get("d1")
	}))
	require.Zero(t, count)
	require.NoError(t, err)
	require.Empty(t, sess.Room, "evicted sessions stay connected but unjoined")

	w = request(t, router, http.MethodDelete, "/api/rooms/doomed", auth)
	require.Equal(t, http.StatusNotFound, w.Code)
}
