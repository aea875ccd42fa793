package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"daily-planner/internal/planner"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.WithError(err).Warn("callback ack")
	}
	if !b.config.ChatAllowed(chatID) {
		return nil
	}

	data := cb.Data
	b.log.WithFields(logrus.Fields{"chat": chatID, "data": data}).Debug("callback")

	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		return b.toggleAndRefresh(ctx, chatID, strings.TrimPrefix(data, cbDonePrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		task, err := b.svc.Tasks.GetTask(ctx, strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return b.replyTaskErr(chatID, err)
		}
		return b.askDeleteConfirmation(chatID, cb.From.ID, task)
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.clearConfirmation(cb.From.ID)
		return b.deleteAndRefresh(ctx, chatID, strings.TrimPrefix(data, cbConfirmPrefix))
	case strings.HasPrefix(data, cbCancelPrefix):
		b.clearConfirmation(cb.From.ID)
		return b.sendText(chatID, "Nothing deleted.")
	case strings.HasPrefix(data, cbViewPrefix):
		v, err := planner.ParseView(strings.TrimPrefix(data, cbViewPrefix))
		if err != nil {
			return nil
		}
		return b.showView(ctx, chatID, v)
	case strings.HasPrefix(data, cbListPrefix):
		return b.openList(ctx, chatID, strings.TrimPrefix(data, cbListPrefix))
	default:
		return nil
	}
}
