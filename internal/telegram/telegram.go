// Package telegram adapts the Telegram Bot API to the bot.Gateway
// interface. It is the only package that speaks the chat transport;
// everything above it works with gateway events.
package telegram

import (
	"context"

	"codeberg.org/mutker/sensorbot/internal/bot"
	"codeberg.org/mutker/sensorbot/internal/errors"
	"codeberg.org/mutker/sensorbot/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const updateTimeoutSeconds = 60

type Config struct {
	Token string
}

// Gateway is a bot.Gateway over Telegram long polling. Probe must
// succeed before any other method is usable; constructing the
// underlying client requires reaching the API.
type Gateway struct {
	token string
	api   *tgbotapi.BotAPI
}

func New(cfg Config) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, errors.New().WithMessage(errors.ErrMissingConfig, "telegram token is required")
	}

	return &Gateway{token: cfg.Token}, nil
}

// Probe verifies API connectivity and the bot credential. A rejected
// credential is reported with ErrGatewayAuth and is not worth
// retrying; anything else is a network failure.
func (g *Gateway) Probe(_ context.Context) error {
	errFactory := errors.New()

	api, err := tgbotapi.NewBotAPI(g.token)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 401 {
			return errFactory.Wrap(bot.ErrGatewayAuth, err)
		}
		return errFactory.Wrap(bot.ErrGatewayNetwork, err)
	}

	g.api = api
	logger.Info().Str("username", api.Self.UserName).Msg("telegram API access working")

	return nil
}

// Run receives updates and feeds them to the handler until ctx is
// cancelled. An unexpectedly closed update stream is an error, so the
// supervisor can tell task death from shutdown.
func (g *Gateway) Run(ctx context.Context, handler bot.Handler) error {
	errFactory := errors.New()

	if g.api == nil {
		return errFactory.WithMessage(bot.ErrGatewayNetwork, "gateway has not been probed")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeoutSeconds
	updates := g.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			g.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return errFactory.WithMessage(bot.ErrGatewayNetwork, "update stream closed")
			}
			g.dispatch(ctx, handler, update)
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, handler bot.Handler, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if query.Message == nil {
			return
		}
		handler.HandleCallback(ctx, bot.Callback{
			ID:       query.ID,
			SenderID: query.From.ID,
			ChatID:   query.Message.Chat.ID,
			Data:     query.Data,
		})

	case update.Message != nil && update.Message.Text != "":
		message := update.Message
		senderID := int64(0)
		senderName := ""
		if message.From != nil {
			senderID = message.From.ID
			senderName = message.From.UserName
		}
		handler.HandleMessage(ctx, bot.Message{
			SenderID:   senderID,
			SenderName: senderName,
			ChatID:     message.Chat.ID,
			Text:       message.Text,
		})
	}
}

func (g *Gateway) SendText(_ context.Context, chatID int64, text string) error {
	if _, err := g.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.New().Wrap(bot.ErrGatewaySend, err)
	}

	return nil
}

func (g *Gateway) SendMenu(_ context.Context, chatID int64, text string, rows [][]bot.Button) error {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		keyboard = append(keyboard, buttons)
	}

	message := tgbotapi.NewMessage(chatID, text)
	message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	if _, err := g.api.Send(message); err != nil {
		return errors.New().Wrap(bot.ErrGatewaySend, err)
	}

	return nil
}

func (g *Gateway) SendPhoto(_ context.Context, chatID int64, path, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := g.api.Send(photo); err != nil {
		return errors.New().Wrap(bot.ErrGatewaySend, err)
	}

	return nil
}

func (g *Gateway) AckCallback(_ context.Context, callbackID string) error {
	if _, err := g.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return errors.New().Wrap(bot.ErrGatewaySend, err)
	}

	return nil
}
