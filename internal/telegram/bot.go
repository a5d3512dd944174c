// Package telegram adapts the Telegram Bot API to the router. It owns the
// long-polling loop and nothing else: agent selection and answering live
// behind the router.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/models"
	"github.com/povarna/corporate-assistant/internal/router"
)

// Bot runs the Telegram side of the assistant.
type Bot struct {
	api    *tgbotapi.BotAPI
	router *router.Router
}

// New authenticates against the Bot API.
func New(token string, r *router.Router) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise telegram bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorised")
	return &Bot{api: api, router: r}, nil
}

// Run polls for updates until ctx is cancelled. Each update is handled in
// its own goroutine; updates from different users are independent.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := b.api.GetUpdatesChan(cfg)
	log.Info().Msg("Bot is ready to accept messages")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	log.Info().Str("user_id", userID).Msg("Received message")

	if !msg.IsCommand() {
		// Long answers take a few seconds; show the typing indicator.
		if _, err := b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
			log.Debug().Err(err).Msg("Failed to send chat action")
		}
	}

	reply := b.router.Route(ctx, userID, msg.Text)
	b.send(msg.Chat.ID, reply)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := strconv.FormatInt(cb.From.ID, 10)

	// Acknowledge so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Debug().Err(err).Msg("Failed to acknowledge callback")
	}

	reply := b.router.SelectAgent(ctx, userID, cb.Data)
	if cb.Message != nil {
		b.send(cb.Message.Chat.ID, reply)
	}
}

func (b *Bot) send(chatID int64, reply models.ChatReply) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if reply.SelectAgent {
		msg.ReplyMarkup = selectionKeyboard()
	}

	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func selectionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Finance", models.DomainFinance.String()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚖️ Legal", models.DomainLegal.String()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Project", models.DomainProject.String()),
		),
	)
}
