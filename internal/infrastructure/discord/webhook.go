package discord

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"SubredditOfTheDay/internal/domain"
	"SubredditOfTheDay/internal/ports"
)

// Webhook posts operator messages as embeds to a Discord channel webhook.
type Webhook struct {
	session *discordgo.Session
	id      string
	token   string
}

var _ ports.Notifier = (*Webhook)(nil)

// NewWebhook parses a webhook URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func NewWebhook(rawURL string) (*Webhook, error) {
	id, token, err := parseWebhookURL(rawURL)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}

	return &Webhook{session: session, id: id, token: token}, nil
}

// Notify executes the webhook and waits for Discord to accept the message.
func (w *Webhook) Notify(ctx context.Context, msg domain.Message) error {
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{Embed(msg)},
	}
	if _, err := w.session.WebhookExecute(w.id, w.token, true, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("execute webhook: %w", err)
	}
	return nil
}

// Embed converts a message into a Discord embed.
func Embed(msg domain.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		URL:         msg.URL,
		Color:       colorValue(msg.Color),
	}
	if msg.Author != nil && msg.Author.Name != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    msg.Author.Name,
			URL:     msg.Author.URL,
			IconURL: msg.Author.IconURL,
		}
	}
	for _, field := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: true,
		})
	}
	return embed
}

func colorValue(c domain.Color) int {
	v, err := strconv.ParseInt(string(c), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}

func parseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse webhook url: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook url %q lacks id and token", raw)
}
