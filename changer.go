// Package changer is the client SDK for the nwc daemon's control socket.
// The CLI subcommands use it; scripts can too.
package changer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrDaemonUnavailable is returned when the control socket cannot be
// reached, usually because the daemon is not running.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Status mirrors the daemon's GET /status payload.
type Status struct {
	Running     bool `json:"running"`
	CatalogSize int  `json:"catalog_size"`
}

// Client talks to one daemon over its unix control socket.
type Client struct {
	http *http.Client
}

// NewClient builds a client for the control socket at path.
func NewClient(path string) *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", path)
				},
			},
			Timeout: 30 * time.Second,
		},
	}
}

// Trigger fires one swap cycle. started is false when the daemon dropped
// the trigger because a cycle was already in flight.
func (c *Client) Trigger(ctx context.Context) (started bool, err error) {
	resp, err := c.post(ctx, "/trigger")
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		return false, statusError(resp)
	}
	var res struct {
		Started bool `json:"started"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return false, fmt.Errorf("failed to decode trigger response: %w", err)
	}
	return res.Started, nil
}

// Refresh rebuilds the daemon's catalog. folder == "" keeps the current
// one; forced bypasses the unchanged-folder skip.
func (c *Client) Refresh(ctx context.Context, folder string, forced bool) error {
	q := url.Values{}
	q.Set("forced", strconv.FormatBool(forced))
	if folder != "" {
		q.Set("folder", folder)
	}
	resp, err := c.post(ctx, "/refresh?"+q.Encode())
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Stop halts rotation and shuts the daemon down.
func (c *Client) Stop(ctx context.Context) error {
	resp, err := c.post(ctx, "/stop")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Status reports whether rotation runs and how large the catalog is.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/status", nil)
	if err != nil {
		return Status{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Status{}, statusError(resp)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return st, nil
}

func (c *Client) post(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://unix"+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, msg)
}
