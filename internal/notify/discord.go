// SPDX-License-Identifier: AGPL-3.0-only

// Package notify posts run reports to a Discord webhook.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/fluffyriot/tweetrss/internal/helpers"
	"github.com/fluffyriot/tweetrss/internal/worker"
)

const (
	colorOK     = 0x2ecc71
	colorFailed = 0xe74c3c

	maxFields        = 25
	fieldNameBudget  = 256
	fieldValueBudget = 1024
)

type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordReporter struct {
	webhookID string
	token     string
	session   webhookExecutor
}

// ParseWebhookURL splits https://discord.com/api/webhooks/<id>/<token>.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook URL: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid webhook URL: no webhook id and token in %q", u.Path)
}

func NewDiscordReporter(webhookURL string) (*DiscordReporter, error) {
	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	return &DiscordReporter{webhookID: id, token: token, session: session}, nil
}

func (r *DiscordReporter) Report(ctx context.Context, s *worker.RunSummary) error {
	_, err := r.session.WebhookExecute(r.webhookID, r.token, false, &discordgo.WebhookParams{
		Username: "tweetrss",
		Embeds:   []*discordgo.MessageEmbed{BuildEmbed(s)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending run report: %w", err)
	}
	return nil
}

// BuildEmbed renders a run summary within Discord's embed limits.
func BuildEmbed(s *worker.RunSummary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Timestamp: s.Finished.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "run " + s.RunID.String()},
	}

	if s.OK() {
		embed.Title = fmt.Sprintf("✅ %d feed(s) updated", len(s.Feeds))
		embed.Color = colorOK
	} else {
		embed.Title = fmt.Sprintf("❌ %d account(s) failed", len(s.Failures))
		embed.Color = colorFailed
	}
	embed.Description = fmt.Sprintf("Attempts: %d · Duration: %s", s.Attempts, s.Finished.Sub(s.Started).Round(time.Second))

	for i, f := range s.Feeds {
		value := fmt.Sprintf("%d entries", f.Entries)
		if f.Skipped > 0 {
			value += fmt.Sprintf(", %d skipped", f.Skipped)
		}
		if i < len(s.URLs) {
			value += "\n" + s.URLs[i]
		}
		embed.Fields = append(embed.Fields, field(f.Key, value))
	}
	for _, f := range s.Failures {
		embed.Fields = append(embed.Fields, field("⚠ "+f.Key, f.Err.Error()))
	}

	if len(embed.Fields) > maxFields {
		hidden := len(embed.Fields) - maxFields + 1
		embed.Fields = append(embed.Fields[:maxFields-1], field("…", fmt.Sprintf("%d more not shown", hidden)))
	}

	return embed
}

func field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{
		Name:  helpers.FitText(name, "", fieldNameBudget),
		Value: helpers.FitText(value, "", fieldValueBudget),
	}
}
