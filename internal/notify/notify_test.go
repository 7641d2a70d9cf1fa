package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/treehouse/treehouse/internal/config"
)

func TestWebhookAndMattermost(t *testing.T) {
	var got []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "abc" && r.URL.Path == "/hook" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		got = append(got, body)
	}))
	defer srv.Close()

	m := FromConfig(config.NotificationsConfig{
		Webhooks:   []config.WebhookConfig{{Name: "ops", URL: srv.URL + "/hook", Headers: map[string]string{"X-Token": "abc"}}},
		Mattermost: []config.MattermostHook{{Name: "team", URL: srv.URL + "/mm"}},
	})
	err := m.Notify(context.Background(), Event{Type: EventSignup, Status: "success", PhoneNumber: "7089011754", DormBuilding: "Allen Hall"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0]["phone_number"] != "7089011754" {
		t.Fatalf("unexpected webhook body: %v", got[0])
	}
	if !strings.Contains(got[1]["text"].(string), "Allen Hall") {
		t.Fatalf("unexpected mattermost text: %v", got[1])
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := Multi{Targets: []Notifier{Webhook{Name: "a", URL: srv.URL}, nil, Webhook{Name: "b", URL: srv.URL}}}
	err := m.Notify(context.Background(), Event{Type: EventSnapshot, Status: "failed"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "webhook a") || !strings.Contains(err.Error(), "webhook b") {
		t.Fatalf("expected both failures, got %v", err)
	}
	if !(Multi{}).Empty() {
		t.Fatalf("expected empty multi")
	}
}

func TestOrderText(t *testing.T) {
	got := text(Event{Type: EventOrder, OrderID: 7, Amount: "23.85", PhoneNumber: "7089011754"})
	want := "New TreeHouse order! Order ID: 7, Amount: $23.85, User: 7089011754"
	if got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}
