package main

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"

	"twitch-overlay/internal/ipc"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    ipc.Request
		wantErr string
	}{
		{name: "show", args: []string{"show"}, want: ipc.Request{Command: ipc.CommandShow}},
		{name: "toggle any case", args: []string{"Toggle"}, want: ipc.Request{Command: ipc.CommandToggle}},
		{name: "join", args: []string{"join", " ronni "}, want: ipc.Request{Command: ipc.CommandConnect, Channel: "ronni"}},
		{name: "join without channel", args: []string{"join"}, wantErr: "requires one channel"},
		{name: "join blank channel", args: []string{"join", "  "}, wantErr: "requires one channel"},
		{name: "show with args", args: []string{"show", "x"}, wantErr: "takes no arguments"},
		{name: "unknown", args: []string{"explode"}, wantErr: "unknown command: explode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("parseCommand(%q) error = %v, want %q", tt.args, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCommand(%q) error = %v", tt.args, err)
			}
			if got != tt.want {
				t.Fatalf("parseCommand(%q) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	origSend := sendFn
	t.Cleanup(func() { sendFn = origSend })

	dialErr := &net.OpError{Op: "dial", Net: "unix", Err: errors.New("connection refused")}
	tests := []struct {
		name       string
		args       []string
		resp       ipc.Response
		sendErr    error
		wantCode   int
		wantSent   bool
		wantStdout string
		wantStderr string
	}{
		{name: "usage", wantCode: 0, wantStdout: "Usage: overlayctl"},
		{name: "bad args", args: []string{"join"}, wantCode: 2, wantStderr: "requires one channel"},
		{name: "ok", args: []string{"show"}, resp: ipc.Response{OK: true}, wantCode: 0, wantSent: true},
		{name: "refused by overlay", args: []string{"show"}, resp: ipc.Response{Error: "overlay window is not ready"}, wantCode: 1, wantSent: true, wantStderr: "not ready"},
		{name: "no overlay", args: []string{"toggle"}, sendErr: dialErr, wantCode: 1, wantSent: true, wantStderr: "no overlay running"},
		{name: "other error", args: []string{"toggle"}, sendErr: errors.New("frame too large"), wantCode: 1, wantSent: true, wantStderr: "frame too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := false
			sendFn = func(pipeName string, req ipc.Request) (ipc.Response, error) {
				sent = true
				if pipeName != "" {
					t.Fatalf("pipeName = %q, want default", pipeName)
				}
				return tt.resp, tt.sendErr
			}
			var stdout, stderr bytes.Buffer

			code := run(tt.args, &stdout, &stderr)

			if code != tt.wantCode {
				t.Fatalf("run() = %d, want %d (stderr %q)", code, tt.wantCode, stderr.String())
			}
			if sent != tt.wantSent {
				t.Fatalf("sent = %v, want %v", sent, tt.wantSent)
			}
			if tt.wantStdout != "" && !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Fatalf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Fatalf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}
