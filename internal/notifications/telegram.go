package notifications

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTelegramURL is the Bot API endpoint
const DefaultTelegramURL = "https://api.telegram.org"

type TelegramNotifier struct {
	token   string
	chatID  string
	title   string
	baseURL string
	client  *http.Client
}

// TelegramOption configures a TelegramNotifier
type TelegramOption func(*TelegramNotifier)

// WithBaseURL points the notifier at another Bot API server
func WithBaseURL(u string) TelegramOption {
	return func(t *TelegramNotifier) { t.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramNotifier) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTitle sets the bold first line of every message
func WithTitle(title string) TelegramOption {
	return func(t *TelegramNotifier) { t.title = title }
}

func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		title:   "Paper Signal",
		baseURL: DefaultTelegramURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TelegramNotifier) SendAlert(ctx context.Context, level, message string) error {
	emoji := "ℹ️"
	switch level {
	case LevelWarning:
		emoji = "⚠️"
	case LevelError:
		emoji = "🚨"
	case LevelSuccess:
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *%s*\n\n%s", emoji, t.title, message)

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
