package client

import (
	"chat-stress/domain"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWebsocketDialer_Sends_Auth_Headers(t *testing.T) {
	req := require.New(t)
	upgrader := websocket.Upgrader{}
	received := make(chan domain.Message, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/user-1" ||
			r.Header.Get("Authorization") != "Bearer jwt" ||
			r.Header.Get("X-Device-ID") != "user-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"content":"hello"}`))
		var message domain.Message
		if err = conn.ReadJSON(&message); err == nil {
			received <- message
		}
		// Wait for the client close frame
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	base := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/"
	dialer := NewWebsocketDialer(base, time.Second)

	conn, err := dialer.Dial(context.Background(), domain.Credentials{Token: "jwt", ID: "user-1"})
	req.NoError(err)

	frame, err := conn.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"content":"hello"}`, string(frame))

	message := domain.NewMessage("user-2")
	req.NoError(conn.WriteJSON(message))
	select {
	case got := <-received:
		req.Equal(message, got)
	case <-time.After(time.Second):
		req.Fail("server did not receive the message")
	}
	req.NoError(conn.Close())
}

func TestWebsocketDialer_Rejected_Handshake(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dialer := NewWebsocketDialer("ws"+strings.TrimPrefix(server.URL, "http"), time.Second)
	_, err := dialer.Dial(context.Background(), domain.Credentials{Token: "bad", ID: "user-1"})
	req.ErrorContains(err, "HTTP 403")
}
