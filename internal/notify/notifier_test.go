package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name    string
	sendErr error
	sent    []string
}

func (s *fakeSender) Send(_ context.Context, title, _ string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, title)
	return nil
}

func (s *fakeSender) Name() string { return s.name }

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestNotify_FiltersDisallowedEvents(t *testing.T) {
	sender := &fakeSender{name: "tg"}
	n := NewNotifier([]Sender{sender}, []string{"claim_paid", "bridge_critical"}, discard())

	require.NoError(t, n.Notify(context.Background(), EventRiskBreach, "VaR breach", "details"))
	assert.Empty(t, sender.sent)

	require.NoError(t, n.Notify(context.Background(), EventClaimPaid, "Claim paid", "details"))
	assert.Equal(t, []string{"Claim paid"}, sender.sent)
}

func TestNotify_EmptyAllowlistAdmitsAll(t *testing.T) {
	sender := &fakeSender{name: "tg"}
	n := NewNotifier([]Sender{sender}, nil, discard())

	require.NoError(t, n.Notify(context.Background(), Event("anything"), "t", "m"))
	assert.Len(t, sender.sent, 1)
}

func TestNotify_AllowlistEntriesTrimmed(t *testing.T) {
	sender := &fakeSender{name: "tg"}
	n := NewNotifier([]Sender{sender}, []string{" claim_paid "}, discard())

	require.NoError(t, n.Notify(context.Background(), EventClaimPaid, "Claim paid", "m"))
	assert.Len(t, sender.sent, 1)
}

func TestNotifyAll_BypassesAllowlist(t *testing.T) {
	sender := &fakeSender{name: "tg"}
	n := NewNotifier([]Sender{sender}, []string{"claim_paid"}, discard())

	require.NoError(t, n.NotifyAll(context.Background(), "Startup", "service up"))
	assert.Equal(t, []string{"Startup"}, sender.sent)
}

func TestNotify_SenderFailureDoesNotBlockOthers(t *testing.T) {
	apiDown := errors.New("api down")
	broken := &fakeSender{name: "tg", sendErr: apiDown}
	working := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{broken, working}, nil, discard())

	err := n.Notify(context.Background(), EventClaimPaid, "Claim paid", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, apiDown)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Equal(t, []string{"Claim paid"}, working.sent)
}

func TestNotify_NoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, nil, discard())
	assert.NoError(t, n.Notify(context.Background(), EventClaimPaid, "t", "m"))
}

func TestTelegramSender(t *testing.T) {
	var payload telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender("tok123", "chat42")
	sender.baseURL = srv.URL
	require.NoError(t, sender.Send(context.Background(), "Claim paid", "policy 7"))

	assert.Equal(t, "/bottok123/sendMessage", path)
	assert.Equal(t, "chat42", payload.ChatID)
	assert.Equal(t, "*Claim paid*\npolicy 7", payload.Text)
	assert.Equal(t, "Markdown", payload.ParseMode)
}

func TestDiscordSender(t *testing.T) {
	var payload discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	require.NoError(t, sender.Send(context.Background(), "Bridge critical", "ton-eth paused"))
	assert.Equal(t, "tonsurance", payload.Username)
	assert.Equal(t, "**Bridge critical**\nton-eth paused", payload.Content)
}

func TestDiscordSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
