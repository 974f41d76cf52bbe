package main

import (
	"context"
	"strings"
	"testing"

	"twitch-overlay/internal/chat"
	"twitch-overlay/internal/config"
	"twitch-overlay/internal/ipc"
	"twitch-overlay/internal/testutil"
)

func TestHandleActivationRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       ipc.Request
		withCtx   bool
		wantOK    bool
		wantError string
		wantShow  int32
		wantHide  int32
	}{
		{name: "show raises window", req: ipc.Request{Command: ipc.CommandShow}, withCtx: true, wantOK: true, wantShow: 1},
		{name: "show before startup", req: ipc.Request{Command: ipc.CommandShow}, wantError: "not ready"},
		{name: "toggle hides visible window", req: ipc.Request{Command: ipc.CommandToggle}, withCtx: true, wantOK: true, wantHide: 1},
		{name: "toggle before startup", req: ipc.Request{Command: ipc.CommandToggle}, wantError: "not ready"},
		{name: "connect without client", req: ipc.Request{Command: ipc.CommandConnect, Channel: "ronni"}, withCtx: true, wantError: "connect ronni"},
		{name: "unknown command", req: ipc.Request{Command: "explode"}, withCtx: true, wantError: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recordRuntimeEvents(t)
			calls := stubWindowRuntime(t, false)

			app := NewApp()
			app.setWindowVisible(true)
			if tt.withCtx {
				app.setRuntimeContext(context.Background())
			}

			resp := app.handleActivationRequest(tt.req)

			if resp.OK != tt.wantOK {
				t.Fatalf("response = %+v, want OK=%v", resp, tt.wantOK)
			}
			if tt.wantError != "" && !strings.Contains(resp.Error, tt.wantError) {
				t.Fatalf("response error = %q, want substring %q", resp.Error, tt.wantError)
			}
			if got := calls.show.Load(); got != tt.wantShow {
				t.Fatalf("show calls = %d, want %d", got, tt.wantShow)
			}
			if got := calls.hide.Load(); got != tt.wantHide {
				t.Fatalf("hide calls = %d, want %d", got, tt.wantHide)
			}
		})
	}
}

func TestHandleActivationRequestConnectJoinsAndRaises(t *testing.T) {
	rec := recordRuntimeEvents(t)
	calls := stubWindowRuntime(t, false)
	relay := testutil.NewRelay(t)

	app := NewApp()
	app.setRuntimeContext(context.Background())
	app.setConfigSnapshot(config.DefaultConfig())
	app.chat = chat.NewClient(chat.Options{Address: relay.Addr()})
	t.Cleanup(func() { _ = app.chat.Close(context.Background()) })

	resp := app.handleActivationRequest(ipc.Request{Command: ipc.CommandConnect, Channel: "#Ronni"})
	if !resp.OK {
		t.Fatalf("response = %+v, want OK", resp)
	}
	if got := relay.Accept().ExpectHandshake()[3]; got != "JOIN #ronni" {
		t.Fatalf("JOIN line = %q, want JOIN #ronni", got)
	}
	if calls.show.Load() != 1 {
		t.Fatalf("show calls = %d, want 1", calls.show.Load())
	}
	ev := rec.waitFor(t, "overlay:visibility-changed")
	if !ev.payload.(map[string]bool)["visible"] {
		t.Fatalf("overlay:visibility-changed payload = %v", ev.payload)
	}
}
