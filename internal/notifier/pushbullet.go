package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const pushbulletURL = "https://api.pushbullet.com/v2/pushes"

// PushbulletNotifier pushes notes through the Pushbullet REST API.
type PushbulletNotifier struct {
	Token  string
	URL    string
	Client *http.Client

	MaxRetries uint64
	backoff    func() backoff.BackOff
}

// NewPushbulletNotifier creates a notifier for the given access token.
func NewPushbulletNotifier(token string) *PushbulletNotifier {
	return &PushbulletNotifier{
		Token:      token,
		URL:        pushbulletURL,
		Client:     &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 3,
		backoff:    func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

func (p *PushbulletNotifier) Name() string { return "pushbullet" }

type pushNote struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notify pushes a note. Server errors and 429 are retried.
func (p *PushbulletNotifier) Notify(ctx context.Context, title, body string) error {
	payload, err := json.Marshal(pushNote{Type: "note", Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Access-Token", p.Token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.Client.Do(req)
		if err != nil {
			return fmt.Errorf("push note: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err = fmt.Errorf("pushbullet API error: status %d, body: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.backoff(), p.MaxRetries), ctx)
	return backoff.Retry(op, b)
}
