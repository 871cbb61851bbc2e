package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Webhook posts every notification as JSON to a fixed URL.
type Webhook struct {
	url    string
	client *resty.Client
}

const DefaultWebhookTimeout = 5 * time.Second

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{
		url: url,
		client: resty.New().
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
	}
}

func (w *Webhook) Forward(ctx context.Context, n *Notification) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(n).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status code: %d %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
