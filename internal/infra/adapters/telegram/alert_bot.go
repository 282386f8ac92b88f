package telegram

import (
	"context"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/domain/ports/adapter"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
)

var _ adapter.OperatorAlerter = (*AlertBot)(nil)

// maxAlertLen keeps alerts under Telegram's 4096 character message limit.
const maxAlertLen = 4000

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AlertBot delivers operator alerts to a single Telegram chat.
type AlertBot struct {
	bot    sender
	chatID int64
	log    *zerolog.Logger
}

func NewAlertBot(token string, chatID int64, logger *zerolog.Logger) (*AlertBot, error) {
	return NewAlertBotWithEndpoint(token, chatID, tgbotapi.APIEndpoint, logger)
}

// NewAlertBotWithEndpoint is NewAlertBot against a custom Bot API endpoint
// (format "https://host/bot%s/%s").
func NewAlertBotWithEndpoint(token string, chatID int64, endpoint string, logger *zerolog.Logger) (*AlertBot, error) {
	if token == "" {
		return nil, errors.New("telegram token empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram alert chat id empty")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	return newAlertBot(bot, chatID, logger), nil
}

func newAlertBot(s sender, chatID int64, logger *zerolog.Logger) *AlertBot {
	l := logger.With().Str("component", "alert_bot").Logger()
	return &AlertBot{bot: s, chatID: chatID, log: &l}
}

func (b *AlertBot) Alert(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if len(text) > maxAlertLen {
		text = text[:maxAlertLen]
	}
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.bot.Send(msg); err != nil {
		metrics.IncOperatorAlert("error")
		b.log.Error().Err(err).Int64("chat_id", b.chatID).Msg("failed to send operator alert")
		return err
	}
	metrics.IncOperatorAlert("sent")
	return nil
}
