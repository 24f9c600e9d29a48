// Package notify hands successfully published articles off to the
// operator channel. Delivery is best effort; a notification failure never
// fails the pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"newspipe/internal/logger"
	"newspipe/internal/retry"
)

// Notification carries the published-article summary for the channel.
type Notification struct {
	Headline string
	ID       string
	ImageURL string
	Category string
}

// Notifier delivers publish notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Telegram posts notifications to a Telegram chat via the Bot API.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	retry   retry.Config
}

func NewTelegram(token, chatID string, rc retry.Config) *Telegram {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 3
	}
	if rc.Delay <= 0 {
		rc.Delay = 2 * time.Second
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   rc,
	}
}

// Notify sends the article summary, as a photo post when an image URL is
// present and a plain message otherwise.
func (t *Telegram) Notify(ctx context.Context, n Notification) error {
	caption := formatCaption(n)

	if n.ImageURL != "" {
		err := t.call(ctx, "sendPhoto", map[string]interface{}{
			"chat_id":    t.chatID,
			"photo":      n.ImageURL,
			"caption":    caption,
			"parse_mode": "HTML",
		})
		if err == nil {
			return nil
		}
		// Some asset hosts are unreachable from Telegram's side; the
		// text-only message still carries the essentials.
		logger.Warn("photo notification failed, retrying as text", "id", n.ID, "error", err)
	}

	return t.call(ctx, "sendMessage", map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     caption,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
}

func formatCaption(n Notification) string {
	return fmt.Sprintf("✅ <b>%s</b>\n#%s\nid: <code>%s</code>",
		html.EscapeString(n.Headline), html.EscapeString(n.Category), html.EscapeString(n.ID))
}

func (t *Telegram) call(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)

	return retry.Do(ctx, t.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return retry.Abort(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", method, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("%s: telegram API status %d: %s", method, resp.StatusCode, msg)
			// 4xx means the payload itself is bad; retrying cannot help.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Abort(err)
			}
			return err
		}
		return nil
	})
}

// Noop is used when no notification channel is configured.
type Noop struct{}

func (Noop) Notify(ctx context.Context, n Notification) error { return nil }
