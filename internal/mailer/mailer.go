// Package mailer sends transactional emails through an HTTP email API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
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

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With(slog.String("component", "mailer")),
	}
}

type email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text,omitempty"`
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`<p>Hi {{.Name}},</p>
<p>Your session on <b>{{.Date}}</b> at <b>{{.Time}}</b> is confirmed.</p>
{{if .JoinURL}}<p>Join here: <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>{{end}}`))

// SendBookingConfirmation emails the learner the session time and join link.
func (c *Client) SendBookingConfirmation(ctx context.Context, to, name, joinURL, date, clock string) error {
	const op = "mailer.Client.SendBookingConfirmation"

	var html bytes.Buffer
	err := confirmationTmpl.Execute(&html, map[string]string{
		"Name":    name,
		"Date":    date,
		"Time":    clock,
		"JoinURL": joinURL,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	text := fmt.Sprintf("Hi %s, your session on %s at %s is confirmed. %s", name, date, clock, joinURL)

	return c.send(ctx, email{
		From:    c.cfg.From,
		To:      to,
		Subject: "Your session is confirmed",
		HTML:    html.String(),
		Text:    text,
	})
}

func (c *Client) send(ctx context.Context, msg email) error {
	const op = "mailer.Client.send"

	if c.cfg.APIKey == "" || c.cfg.BaseURL == "" {
		c.log.Warn("email API not configured, logging email instead",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			slog.String("text", msg.Text),
		)
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, bytes.TrimSpace(b))
	}

	return nil
}
