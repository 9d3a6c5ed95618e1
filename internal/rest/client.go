package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the marketplace REST backend. It is a thin wrapper: no
// retries, no caching; callers decide what a failure means.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a backend client. token may be empty for endpoints that
// do not require authentication (login).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login authenticates and returns the backend-issued JWT.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("login response has no token")
	}
	return out.Token, nil
}

// OrderMessages fetches the authoritative message history for an order.
func (c *Client) OrderMessages(ctx context.Context, orderID string) ([]HistoryMessage, error) {
	var out struct {
		Messages []HistoryMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/order/"+orderID, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// MarkOrderRead marks an order's room as read server-side.
func (c *Client) MarkOrderRead(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/messages/order/"+orderID+"/read", nil, nil)
}

// ListLots returns the food lots currently available for rescue.
func (c *Client) ListLots(ctx context.Context) ([]Lot, error) {
	var out struct {
		Lots []Lot `json:"lots"`
	}
	if err := c.do(ctx, http.MethodGet, "/lots", nil, &out); err != nil {
		return nil, err
	}
	return out.Lots, nil
}

// ListReservations returns the current actor's reservations. For riders
// these are the orders whose rooms show up in the chat list.
func (c *Client) ListReservations(ctx context.Context) ([]Reservation, error) {
	var out struct {
		Reservations []Reservation `json:"reservations"`
	}
	if err := c.do(ctx, http.MethodGet, "/reservations", nil, &out); err != nil {
		return nil, err
	}
	return out.Reservations, nil
}

// CancelReservation cancels a reservation. The relay pushes the resulting
// reservation_cancelled notice to the other party.
func (c *Client) CancelReservation(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/reservations/"+orderID+"/cancel", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
