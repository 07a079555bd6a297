package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/signalhub/config"
	"github.com/mossy-p/signalhub/internal/ids"
	"github.com/mossy-p/signalhub/internal/models"
	"github.com/mossy-p/signalhub/internal/signaling"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startHub(t *testing.T, opts signaling.Options) *Hub {
	t.Helper()
	if opts.IDs == nil {
		opts.IDs = &ids.Sequence{Prefix: "sid"}
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(opts)
	go hub.Run(ctx)
	return hub
}

func startServer(t *testing.T, cfg *config.Config, opts signaling.Options) (*httptest.Server, *Hub) {
	t.Helper()
	hub := startHub(t, opts)
	srv := httptest.NewServer(NewRouter(context.Background(), cfg, hub))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// readGreeting consumes the stunservers/turnservers pair sent on connect
func readGreeting(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.Equal(t, models.EventStunServers, readFrame(t, conn).Event)
	require.Equal(t, models.EventTurnServers, readFrame(t, conn).Event)
}

func send(t *testing.T, conn *websocket.Conn, event models.EventName, data any, ack *int64) {
	t.Helper()
	env, err := models.NewEnvelope(event, data)
	require.NoError(t, err)
	env.Ack = ack
	require.NoError(t, conn.WriteJSON(env))
}

func ackID(n int64) *int64 { return &n }

// ackArgs splits an ack frame's data into its error and result parts
func ackArgs(t *testing.T, env models.Envelope) []json.RawMessage {
	t.Helper()
	require.Equal(t, models.EventAck, env.Event)
	var args []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &args))
	require.NotEmpty(t, args)
	return args
}
