package ipc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"twitch-overlay/internal/userutil"
)

// pipeEnvVar overrides the activation endpoint, mainly for tests and
// portable installs. Values that do not look like one of ours are ignored.
const pipeEnvVar = "TWITCH_OVERLAY_PIPE"

const pipeBaseName = "twitch-overlay-"

// Commands accepted by the activation server.
const (
	// CommandShow brings the overlay window to the front.
	CommandShow = "show"
	// CommandToggle flips overlay visibility, like the global hotkey.
	CommandToggle = "toggle"
	// CommandConnect joins Request.Channel.
	CommandConnect = "connect"
)

// Request is one activation request sent by a second launch.
type Request struct {
	Command string `json:"command"`
	Channel string `json:"channel,omitempty"`
}

// Response reports the outcome of a Request.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler serves activation requests.
type Handler interface {
	HandleRequest(req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request) Response

// HandleRequest calls f(req).
func (f HandlerFunc) HandleRequest(req Request) Response { return f(req) }

// ErrorResponse builds a failed Response.
func ErrorResponse(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}

// DefaultPipeName returns the endpoint to use. If TWITCH_OVERLAY_PIPE is set
// and passes validation its value is used; otherwise a per-user default is
// built from the current username.
func DefaultPipeName() string {
	if v, ok := trustedPipeNameFromEnv(); ok {
		return v
	}
	return pipePath(userutil.EndpointName(pipeBaseName))
}

func trustedPipeNameFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(pipeEnvVar))
	if value == "" {
		return "", false
	}
	if !trustedPipeName(value) {
		slog.Warn("[ipc] "+pipeEnvVar+" rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func validateRequest(req Request) error {
	switch req.Command {
	case CommandShow, CommandToggle:
		return nil
	case CommandConnect:
		if strings.TrimSpace(req.Channel) == "" {
			return fmt.Errorf("connect requires a channel")
		}
		return nil
	case "":
		return fmt.Errorf("command is required")
	default:
		return fmt.Errorf("unknown command %q", req.Command)
	}
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = strings.ToLower(strings.TrimSpace(req.Command))
	req.Channel = strings.TrimSpace(req.Channel)
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
