package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"twitch-overlay/internal/chat"
	"twitch-overlay/internal/config"
	"twitch-overlay/internal/testutil"
)

func TestChatAPIsRequireClient(t *testing.T) {
	app := NewApp()

	if err := app.ConnectToChannel("ronni", ""); err == nil {
		t.Fatal("ConnectToChannel() without client should fail")
	}
	app.Disconnect()
	if app.IsConnected() {
		t.Fatal("IsConnected() = true without client")
	}
	if got := app.CurrentChannel(); got != "" {
		t.Fatalf("CurrentChannel() = %q, want empty", got)
	}
}

func TestConnectToChannelFallsBackToConfiguredToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantPass string
	}{
		{name: "configured token", token: "", wantPass: "PASS oauth:fromconfig"},
		{name: "explicit token wins", token: "explicit", wantPass: "PASS oauth:explicit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := testutil.NewRelay(t)
			app := NewApp()
			cfg := config.DefaultConfig()
			cfg.OAuthToken = "fromconfig"
			app.setConfigSnapshot(cfg)
			app.chat = chat.NewClient(chat.Options{Address: relay.Addr()})
			t.Cleanup(func() { _ = app.chat.Close(context.Background()) })

			if err := app.ConnectToChannel("Ronni", tt.token); err != nil {
				t.Fatalf("ConnectToChannel() error = %v", err)
			}
			lines := relay.Accept().ExpectHandshake()
			if lines[1] != tt.wantPass {
				t.Fatalf("PASS line = %q, want %q", lines[1], tt.wantPass)
			}
			if got := app.CurrentChannel(); got != "ronni" {
				t.Fatalf("CurrentChannel() = %q, want ronni", got)
			}
		})
	}
}

func TestConnectToChannelRejectsEmptyChannel(t *testing.T) {
	app := NewApp()
	app.setConfigSnapshot(config.DefaultConfig())
	app.chat = chat.NewClient(chat.Options{})
	t.Cleanup(func() { _ = app.chat.Close(context.Background()) })

	if err := app.ConnectToChannel("  # ", ""); !errors.Is(err, chat.ErrEmptyChannel) {
		t.Fatalf("ConnectToChannel() error = %v, want ErrEmptyChannel", err)
	}
}

func TestDisconnectEndsSession(t *testing.T) {
	relay := testutil.NewRelay(t)
	app := NewApp()
	app.setConfigSnapshot(config.DefaultConfig())
	app.chat = chat.NewClient(chat.Options{Address: relay.Addr()})
	t.Cleanup(func() { _ = app.chat.Close(context.Background()) })

	if err := app.ConnectToChannel("ronni", ""); err != nil {
		t.Fatalf("ConnectToChannel() error = %v", err)
	}
	conn := relay.Accept()
	conn.ExpectHandshake()
	deadline := time.Now().Add(testutil.RelayTimeout)
	for !app.IsConnected() {
		if time.Now().After(deadline) {
			t.Fatal("client never reported connected")
		}
		time.Sleep(5 * time.Millisecond)
	}

	app.Disconnect()

	if app.IsConnected() {
		t.Fatal("IsConnected() = true after Disconnect")
	}
	conn.ExpectClosed()
}

func TestGetRecentMessages(t *testing.T) {
	app := NewApp()
	cfg := config.DefaultConfig()
	cfg.Transcript.ReplayLimit = 2
	app.setConfigSnapshot(cfg)

	got, err := app.GetRecentMessages(0)
	if err != nil {
		t.Fatalf("GetRecentMessages() without transcript error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("GetRecentMessages() without transcript = %#v, want empty slice", got)
	}

	app.transcript = openTestTranscript(t)
	relay := testutil.NewRelay(t)
	app.chat = chat.NewClient(chat.Options{Address: relay.Addr()})
	t.Cleanup(func() { _ = app.chat.Close(context.Background()) })
	for i, text := range []string{"one", "two", "three"} {
		msg := chat.Message{
			ID: text, Channel: "ronni", Login: "viewer", Speaker: "viewer",
			Text: text, ReceivedAt: time.Unix(1700000000+int64(i), 0),
		}
		if err := app.transcript.Append(context.Background(), msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := app.ConnectToChannel("ronni", ""); err != nil {
		t.Fatalf("ConnectToChannel() error = %v", err)
	}
	relay.Accept()

	got, err = app.GetRecentMessages(0)
	if err != nil {
		t.Fatalf("GetRecentMessages() error = %v", err)
	}
	if len(got) != 2 || got[0].Text != "two" || got[1].Text != "three" {
		t.Fatalf("GetRecentMessages(0) = %+v, want the last two oldest first", got)
	}
	if got, _ := app.GetRecentMessages(10); len(got) != 3 {
		t.Fatalf("GetRecentMessages(10) returned %d messages, want 3", len(got))
	}
}
