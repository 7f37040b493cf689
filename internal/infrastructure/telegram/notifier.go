package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends operator messages to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify posts the message as Markdown text.
func (n *Notifier) Notify(ctx context.Context, msg domain.Message) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(n.apiBase, "/"), n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatMessage(msg))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatMessage(msg domain.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", colorBadge(msg.Color), msg.Title)
	if msg.Description != "" {
		b.WriteString(msg.Description)
		b.WriteString("\n")
	}
	for _, field := range msg.Fields {
		fmt.Fprintf(&b, "\n_%s_: %s", field.Name, field.Value)
	}
	if msg.URL != "" {
		fmt.Fprintf(&b, "\n%s", msg.URL)
	}
	return strings.TrimSpace(b.String())
}

func colorBadge(c domain.Color) string {
	switch c {
	case domain.ColorGreen:
		return "🟢"
	case domain.ColorRed:
		return "🔴"
	default:
		return "⚪"
	}
}
