// Package meeting provisions video-meeting rooms for confirmed bookings.
package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// PlaceholderHost is used to build join links when BaseURL is empty.
	PlaceholderHost string
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PlaceholderHost == "" {
		cfg.PlaceholderHost = "https://meet.local"
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With(slog.String("component", "meeting")),
	}
}

type createRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

type createResponse struct {
	JoinURL string `json:"join_url"`
}

// CreateMeeting books a room starting at start and returns its join link.
func (c *Client) CreateMeeting(ctx context.Context, start time.Time, durationMinutes int) (string, error) {
	const op = "meeting.Client.CreateMeeting"

	if c.cfg.BaseURL == "" {
		link := fmt.Sprintf("%s/%d-%d", c.cfg.PlaceholderHost, start.Unix(), durationMinutes)
		c.log.Warn("meeting provider not configured, using placeholder link", slog.String("join_url", link))
		return link, nil
	}

	body, err := json.Marshal(createRequest{StartTime: start.UTC(), DurationMinutes: durationMinutes})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/meetings", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", op, err)
	}
	if out.JoinURL == "" {
		return "", fmt.Errorf("%s: empty join_url", op)
	}

	return out.JoinURL, nil
}
