package notifier

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	// MaxRetries bounds resend attempts per message.
	MaxRetries uint64
	backoff    func() backoff.BackOff
}

// NewTelegramNotifier creates a notifier with optional proxy support. It
// authorizes the token against the API before returning.
func NewTelegramNotifier(botToken, chatID, proxyURL string) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
	return newTelegramNotifier(botToken, chatID, tgbotapi.APIEndpoint, client)
}

func newTelegramNotifier(botToken, chatID, endpoint string, client *http.Client) (*TelegramNotifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram authorize: %w", err)
	}
	log.Info().
		Str("component", "notifier").
		Str("username", bot.Self.UserName).
		Msg("authorized on Telegram")

	return &TelegramNotifier{
		bot:        bot,
		chatID:     id,
		MaxRetries: 3,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			return b
		},
	}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Notify sends "<b>title</b>" followed by the escaped body, retrying with
// exponential backoff.
func (t *TelegramNotifier) Notify(ctx context.Context, title, body string) error {
	text := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body))
	return t.SendWithRetry(ctx, text)
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message, retrying failures until MaxRetries or ctx ends.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string) error {
	attempt := 0
	op := func() error {
		attempt++
		return t.Send(text)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().
			Str("component", "notifier").
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("telegram send failed")
	}
	b := backoff.WithContext(backoff.WithMaxRetries(t.backoff(), t.MaxRetries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("telegram: %d attempts failed: %w", attempt, err)
	}
	return nil
}
