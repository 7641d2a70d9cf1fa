// Package api is a client for the TreeHouse HTTP backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/treehouse/treehouse/internal/config"
	"github.com/treehouse/treehouse/internal/registry"
	"github.com/treehouse/treehouse/internal/schedule"
	"github.com/treehouse/treehouse/internal/util"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

type SignupRequest struct {
	PhoneNumber    string     `json:"phone_number"`
	DormBuilding   string     `json:"dorm_building,omitempty"`
	SMSConsent     bool       `json:"sms_consent,omitempty"`
	OptInTimestamp *time.Time `json:"opt_in_timestamp,omitempty"`
	Name           string     `json:"name,omitempty"`
	Email          string     `json:"email,omitempty"`
	RoomNumber     string     `json:"room_number,omitempty"`
}

type SignupResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// WindowResponse is the body of GET /api/window.
type WindowResponse struct {
	schedule.WindowState
	Countdown string `json:"countdown"`
	Accepting bool   `json:"accepting"`
}

type OrderLine struct {
	MenuItemID          int64  `json:"menu_item_id"`
	Quantity            int    `json:"quantity,omitempty"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type OrderRequest struct {
	UserID      int64            `json:"user_id"`
	Items       []OrderLine      `json:"items"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee,omitempty"`
}

type OrderResponse struct {
	Success               bool            `json:"success"`
	Message               string          `json:"message"`
	OrderID               int64           `json:"order_id"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	BatchID               int64           `json:"delivery_batch_id"`
	ScheduledDeliveryTime time.Time       `json:"scheduled_delivery_time"`
}

type Client struct {
	baseURL      string
	http         *http.Client
	retryCount   int
	retryBackoff time.Duration
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, retryCount: 1}
}

// FromConfig builds a client with the configured timeout and retry policy.
func FromConfig(cfg config.APIConfig) *Client {
	c := New(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
	return c.WithRetry(cfg.RetryCount, cfg.RetryBackoff)
}

// WithRetry returns a copy of c that retries transport errors and 5xx responses.
func (c *Client) WithRetry(attempts int, backoff time.Duration) *Client {
	cp := *c
	if attempts < 1 {
		attempts = 1
	}
	cp.retryCount = attempts
	cp.retryBackoff = backoff
	return &cp
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (SignupResponse, error) {
	var out SignupResponse
	err := c.do(ctx, http.MethodPost, "/api/signup", req, &out)
	return out, err
}

func (c *Client) Menus(ctx context.Context) ([]registry.Menu, error) {
	var out struct {
		Menus []registry.Menu `json:"menus"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/menus", nil, &out); err != nil {
		return nil, err
	}
	return out.Menus, nil
}

// MenuItems lists items for restaurantID, or every item when it is zero.
func (c *Client) MenuItems(ctx context.Context, restaurantID int64) ([]registry.MenuItem, error) {
	path := "/api/menu-items"
	if restaurantID > 0 {
		path += "?" + url.Values{"restaurant_id": {strconv.FormatInt(restaurantID, 10)}}.Encode()
	}
	var out struct {
		Items []registry.MenuItem `json:"menu_items"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Window(ctx context.Context) (WindowResponse, error) {
	var out WindowResponse
	err := c.do(ctx, http.MethodGet, "/api/window", nil, &out)
	return out, err
}

// PlaceOrder is sent once regardless of the retry policy. It returns an
// *APIError with status 409 while ordering is closed.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	var out OrderResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	err = c.once(ctx, http.MethodPost, "/api/orders", payload, &out)
	return out, err
}

// Orders lists orders newest first, limited to userID when it is positive.
func (c *Client) Orders(ctx context.Context, userID int64) ([]registry.Order, error) {
	path := "/api/orders"
	if userID > 0 {
		path += "?" + url.Values{"user_id": {strconv.FormatInt(userID, 10)}}.Encode()
	}
	var out struct {
		Orders []registry.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) Order(ctx context.Context, id int64) (registry.OrderDetail, error) {
	var out registry.OrderDetail
	err := c.do(ctx, http.MethodGet, "/api/orders/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// DeliveryBatches filters by calendar date when date is non-empty (YYYY-MM-DD) and by status.
func (c *Client) DeliveryBatches(ctx context.Context, date, status string) ([]registry.DeliveryBatch, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if status != "" {
		q.Set("status", status)
	}
	path := "/api/delivery-batches"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Batches []registry.DeliveryBatch `json:"delivery_batches"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Batches, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return err
		}
	}
	return util.Retry(ctx, c.retryCount, c.retryBackoff, retryable, func() error {
		return c.once(ctx, method, path, payload, out)
	})
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
