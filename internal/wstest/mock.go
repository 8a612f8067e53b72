// Package wstest provides a small websocket test-server helper: an
// httptest.Server speaking the WebSocket upgrade, plus a couple of
// canned handlers for scripting server behaviour in tests.
package wstest

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler is invoked once per accepted connection with the upgraded
// *websocket.Conn; it owns the connection's lifetime until it returns.
type Handler func(conn *websocket.Conn)

// NewServer starts an httptest.Server that upgrades every request to
// a WebSocket and hands it to handler.
func NewServer(handler Handler) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

// EchoHandler writes back every message it reads, unmodified, until
// the client closes the connection.
func EchoHandler(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(msgType, data); err != nil {
			return
		}
	}
}

// CloseAfterHandler sends one frame of the given type/payload then
// immediately closes with code, useful for scripting Scenario-style
// disconnect tests.
func CloseAfterHandler(msgType int, payload []byte, code int) Handler {
	return func(conn *websocket.Conn) {
		if payload != nil {
			_ = conn.WriteMessage(msgType, payload)
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), time.Now().Add(time.Second))
	}
}
