package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/treehouse/treehouse/internal/config"
)

const (
	EventSignup   = "signup"
	EventSnapshot = "snapshot"
	EventOrder    = "order"
)

type Event struct {
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	DormBuilding string    `json:"dorm_building,omitempty"`
	OrderID      int64     `json:"order_id,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Key          string    `json:"key,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	Duration     string    `json:"duration,omitempty"`
	Error        string    `json:"error,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi fans an event out to every target and joins their errors.
type Multi struct {
	Targets []Notifier
}

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, target := range m.Targets {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Empty() bool { return len(m.Targets) == 0 }

type Webhook struct {
	Name    string
	URL     string
	Headers map[string]string
}

func (w Webhook) Notify(ctx context.Context, event Event) error {
	return postJSON(ctx, "webhook "+w.Name, w.URL, event, w.Headers)
}

type Mattermost struct {
	Name string
	URL  string
}

func (m Mattermost) Notify(ctx context.Context, event Event) error {
	return postJSON(ctx, "mattermost "+m.Name, m.URL, map[string]string{"text": text(event)}, nil)
}

type Matrix struct {
	Name        string
	ServerURL   string
	AccessToken string
	RoomID      string
}

func (m Matrix) Notify(ctx context.Context, event Event) error {
	endpoint := fmt.Sprintf("%s/_matrix/client/v3/rooms/%s/send/m.room.message/%d",
		m.ServerURL, url.PathEscape(m.RoomID), time.Now().UnixNano())
	payload := map[string]any{
		"msgtype": "m.text",
		"body":    text(event),
	}
	return postJSON(ctx, "matrix "+m.Name, endpoint, payload, map[string]string{"Authorization": "Bearer " + m.AccessToken})
}

func FromConfig(cfg config.NotificationsConfig) Multi {
	var targets []Notifier
	for _, w := range cfg.Webhooks {
		targets = append(targets, Webhook{Name: w.Name, URL: w.URL, Headers: w.Headers})
	}
	for _, mm := range cfg.Mattermost {
		targets = append(targets, Mattermost{Name: mm.Name, URL: mm.URL})
	}
	for _, mx := range cfg.Matrix {
		targets = append(targets, Matrix{Name: mx.Name, ServerURL: mx.ServerURL, AccessToken: mx.AccessToken, RoomID: mx.RoomID})
	}
	return Multi{Targets: targets}
}

func text(event Event) string {
	switch event.Type {
	case EventSignup:
		if event.DormBuilding != "" {
			return fmt.Sprintf("New TreeHouse signup! Phone: %s (%s)", event.PhoneNumber, event.DormBuilding)
		}
		return fmt.Sprintf("New TreeHouse signup! Phone: %s", event.PhoneNumber)
	case EventOrder:
		return fmt.Sprintf("New TreeHouse order! Order ID: %d, Amount: $%s, User: %s", event.OrderID, event.Amount, event.PhoneNumber)
	default:
		return fmt.Sprintf("[%s] %s", event.Status, event.Message)
	}
}

func postJSON(ctx context.Context, name, endpoint string, payload any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %s", name, resp.Status)
	}
	return nil
}

var httpClient = &http.Client{Timeout: 10 * time.Second}
