// Package telegram sends a calibration digest via the Telegram Bot API. The
// digest summarizes dashboard statistics: forecast counts, the weighted Brier
// score with its level, per-bet-type averages and the best and worst calls.
//
// Delivery is retried with a linearly growing delay.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/sense/internal/analytics"
	"github.com/rewired-gh/sense/internal/logger"
	"github.com/rewired-gh/sense/internal/models"
	"github.com/rewired-gh/sense/internal/scoring"
)

// sender is the part of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendDigest sends the dashboard digest for stats.
func (c *Client) SendDigest(stats analytics.Stats, generatedAt time.Time) error {
	msg := tgbotapi.NewMessage(c.chatID, formatDigest(stats, generatedAt))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			logger.Info("Sent digest to chat %d", c.chatID)
			return nil
		}
		lastErr = err
		logger.Warn("Digest send attempt %d/%d failed: %v", i+1, c.maxRetries, err)
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatDigest renders stats as a MarkdownV2 message.
func formatDigest(stats analytics.Stats, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("🎯 *Forecast Calibration Digest*\n")
	fmt.Fprintf(&b, "📅 %s\n\n", escapeMarkdownV2(generatedAt.Format("2006-01-02 15:04")))

	fmt.Fprintf(&b, "Forecasts: %d total, %d open, %d closed\n",
		stats.Counts.Total, stats.Counts.Open, stats.Counts.Closed)

	if stats.OverallBrier == nil {
		b.WriteString("Brier score: no closed forecasts yet\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Brier score: *%s* \\(%s\\)\n",
		escapeMarkdownV2(scoring.FormatScore(*stats.OverallBrier)),
		escapeMarkdownV2(string(stats.OverallLevel)))

	if len(stats.BetTypes) > 0 {
		b.WriteString("\n📊 *By bet type*\n")
		for _, bt := range stats.BetTypes {
			fmt.Fprintf(&b, "• %s: %s \\(%d\\)\n",
				escapeMarkdownV2(string(bt.BetType)),
				escapeMarkdownV2(scoring.FormatScore(bt.AvgBrier)),
				bt.Count)
		}
	}

	writePredictions(&b, "✅ *Best calls*", stats.Best)
	writePredictions(&b, "❌ *Worst calls*", stats.Worst)

	if n := len(stats.Skipped); n > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d forecast\\(s\\) skipped due to incomplete scores\n", n)
	}

	return b.String()
}

func writePredictions(b *strings.Builder, title string, fs []models.Forecast) {
	if len(fs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for i, f := range fs {
		brier := "n/a"
		if f.BrierScore != nil {
			brier = scoring.FormatScore(*f.BrierScore)
		}
		fmt.Fprintf(b, "%d\\. %s %s\n   %d%% → Brier %s\n",
			i+1,
			escapeMarkdownV2(f.ID),
			escapeMarkdownV2(f.Prediction),
			f.Probability,
			escapeMarkdownV2(brier))
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
