package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// CommandHandler is called with a bot command without its slash, for
// example "status". A non-empty return value is sent back as the reply.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands from the configured
// chat. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.bot.GetUpdatesChan(cfg)
	defer t.bot.StopReceivingUpdates()

	logger := log.With().Str("component", "notifier").Logger()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID {
				continue
			}
			command := msg.Command()
			if command == "" {
				command = strings.TrimPrefix(strings.TrimSpace(msg.Text), "/")
			}
			if command == "" {
				continue
			}
			logger.Info().Str("command", command).Msg("received command")
			if reply := handler(ctx, command); reply != "" {
				if err := t.Send(reply); err != nil {
					logger.Error().Err(err).Msg("send reply")
				}
			}
		}
	}
}
