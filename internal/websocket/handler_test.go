package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labanalyzer/pkg/contracts/events"
)

func TestHandlerStreamsEvents(t *testing.T) {
	hub := startedHub(t)
	server := httptest.NewServer(NewHandler(hub, HandlerConfig{AllowedOrigins: []string{"http://localhost:8080"}}, nil))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Origin": []string{"http://localhost:8080"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev events.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, events.MessageTypeConnect, ev.Type)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerOriginCheck(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", allowed: []string{"http://localhost:8080"}, origin: "", want: true},
		{name: "listed origin", allowed: []string{"http://localhost:8080"}, origin: "http://LOCALHOST:8080", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://example.org", want: true},
		{name: "unknown origin", allowed: []string{"http://localhost:8080"}, origin: "http://evil.example", want: false},
		{name: "empty allow list", allowed: nil, origin: "http://localhost:8080", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewHub(nil, nil), HandlerConfig{AllowedOrigins: tt.allowed}, nil)
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, h.checkOrigin(r))
		})
	}
}

func TestHandlerRejectsPlainHTTP(t *testing.T) {
	h := NewHandler(NewHub(nil, nil), HandlerConfig{}, nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
