package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// WriteTyped sends a typed event over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON decodes the next client message under a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
