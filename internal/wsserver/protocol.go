// Package wsserver streams chat events to local browser clients, such as the
// overlay webview or an OBS browser source, as JSON text frames.
//
// # Frame protocol
//
// Every server frame is a JSON object with a "type" field:
//
//   - "status": {"type":"status","status":{"connected":true,"channel":"ronni","overlay_visible":true}}
//     sent on connect and whenever the status changes.
//   - "message": {"type":"message","message":{...chat.Message...}}
//   - "history": {"type":"history","messages":[...]} in reply to a history request.
//   - "error": {"type":"error","error":"..."}
//
// Clients may send {"action":"history","limit":N} to request the most recent
// stored messages of the current channel.
package wsserver

import (
	"encoding/json"
	"fmt"

	"twitch-overlay/internal/chat"
)

// Frame types.
const (
	FrameStatus  = "status"
	FrameMessage = "message"
	FrameHistory = "history"
	FrameError   = "error"
)

// historyAction is the only request clients can send.
const historyAction = "history"

// maxHistoryLimit caps a single history request.
const maxHistoryLimit = 500

// Status is the connection and visibility state shown by clients.
type Status struct {
	Connected      bool   `json:"connected"`
	Channel        string `json:"channel"`
	OverlayVisible bool   `json:"overlay_visible"`
}

// Frame is one server-to-client JSON frame.
type Frame struct {
	Type     string         `json:"type"`
	Status   *Status        `json:"status,omitempty"`
	Message  *chat.Message  `json:"message,omitempty"`
	Messages []chat.Message `json:"messages,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// clientRequest is a client-to-server JSON request.
type clientRequest struct {
	Action string `json:"action"`
	Limit  int    `json:"limit"`
}

// EncodeFrame marshals f. The frame type must be set.
func EncodeFrame(f Frame) ([]byte, error) {
	if f.Type == "" {
		return nil, fmt.Errorf("wsserver: encode frame: type must not be empty")
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("wsserver: encode frame: %w", err)
	}
	return payload, nil
}

// DecodeFrame parses a frame produced by EncodeFrame.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("wsserver: decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("wsserver: decode frame: missing type")
	}
	return f, nil
}

func messageFrame(msg chat.Message) Frame {
	return Frame{Type: FrameMessage, Message: &msg}
}

func statusFrame(st Status) Frame {
	return Frame{Type: FrameStatus, Status: &st}
}

func errorFrame(message string) Frame {
	return Frame{Type: FrameError, Error: message}
}

// clampHistoryLimit maps a requested limit onto 1..maxHistoryLimit, with
// fallback used for non-positive requests.
func clampHistoryLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit <= 0 {
		return 0
	}
	return min(limit, maxHistoryLimit)
}
