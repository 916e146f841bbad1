// Package hub fans messages out to websocket clients. One hub serves one
// stream (status, logs or camera previews); clients register on connect and
// every broadcast is queued to each of them.
package hub

import "github.com/gofiber/websocket/v2"

// Message is one queued websocket frame.
type Message struct {
	// Kind is the websocket opcode, websocket.TextMessage or
	// websocket.BinaryMessage.
	Kind int
	Data []byte
}

// Text wraps pre-encoded JSON.
func Text(data []byte) Message {
	return Message{Kind: websocket.TextMessage, Data: data}
}

// Binary wraps raw bytes such as a JPEG preview.
func Binary(data []byte) Message {
	return Message{Kind: websocket.BinaryMessage, Data: data}
}
