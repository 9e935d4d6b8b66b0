package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meetly/config"
	"meetly/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastToUser(t *testing.T) {
	hub := NewHub()
	a1, a2, b := NewClient(1), NewClient(1), NewClient(2)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)
	assert.Equal(t, 3, hub.ClientCount())

	hub.BroadcastToUser(1, map[string]string{"type": "notification"})
	assert.JSONEq(t, `{"type":"notification"}`, string(<-a1.Send))
	assert.JSONEq(t, `{"type":"notification"}`, string(<-a2.Send))
	assert.Empty(t, b.Send)

	a1.Close()
	a1.Close()
	assert.Equal(t, 2, hub.ClientCount())
	hub.BroadcastToUser(1, "again")
	assert.Equal(t, `"again"`, string(<-a2.Send))
}

func TestUpgradeNotificationWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Minute, Issuer: "meetly"}
	hub := NewHub()
	r := gin.New()
	r.GET("/ws/notifications", UpgradeNotificationWS(cfg, []string{"https://app.meetly.test"}, hub))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := auth.GenerateAccessToken(cfg, 7, "u@example.com", "USER")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.BroadcastToUser(7, map[string]interface{}{"type": "notification", "id": 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "notification", got["type"])

	hdr := http.Header{"Origin": []string{"https://evil.test"}}
	_, _, err = websocket.DefaultDialer.Dial(base+"?token="+tok, hdr)
	assert.Error(t, err)
}
