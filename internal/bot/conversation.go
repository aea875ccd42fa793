package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"daily-planner/internal/model"
	"daily-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageDescription
	stageList
	stageDate
	stageDeadline
	stageRecurring
	stagePriority
	stageEstimate
	stageLabels
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	b.clearConfirmation(msg.From.ID)
	state := &conversationState{stage: stageName}
	// A list-scoped view preselects that list.
	state.input.ListID = b.criteria(msg.Chat.ID).ListID
	b.setConversation(msg.From.ID, state)
	b.log.WithField("chat", msg.Chat.ID).Debug("new task conversation")
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The name cannot be empty.", cancelKeyboard())
		}
		state.input.Name = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or skip).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		if state.input.ListID != "" {
			state.stage = stageDate
			return b.askDate(msg.Chat.ID)
		}
		state.stage = stageList
		return b.askList(ctx, msg.Chat.ID)
	case stageList:
		if !isSkipInput(text) {
			list, err := b.svc.Lists.FindByName(ctx, text)
			if err != nil {
				if errors.Is(err, service.ErrNotFound) {
					return b.askList(ctx, msg.Chat.ID)
				}
				return err
			}
			state.input.ListID = list.ID
		}
		state.stage = stageDate
		return b.askDate(msg.Chat.ID)
	case stageDate:
		if !isSkipInput(text) {
			date, err := parseDate(text, b.now())
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Cannot read that date. Use <code>2025-11-30</code>, today, tomorrow or +3.", dateKeyboard())
			}
			state.input.Date = &date
		}
		state.stage = stageDeadline
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Deadline as <code>2025-11-30 18:00</code> or <code>2025-11-30</code> (or skip).", skipKeyboard())
	case stageDeadline:
		if !isSkipInput(text) {
			deadline, err := parseDeadline(text, b.now())
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Cannot read that deadline. Use <code>2025-11-30 18:00</code> or skip.", skipKeyboard())
			}
			state.input.Deadline = &deadline
		}
		state.stage = stageRecurring
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Does it repeat? Pick a rule, add a number for every N (<code>weekly 2</code>), or skip.", recurKeyboard())
	case stageRecurring:
		if !isSkipInput(text) {
			recurType, interval, err := parseRecurrence(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use daily, weekdays, weekly, monthly or yearly, optionally with a number.", recurKeyboard())
			}
			state.input.IsRecurring = true
			state.input.RecurType = recurType
			state.input.RecurInterval = interval
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "❗ Priority?", priorityKeyboard())
	case stagePriority:
		if !isSkipInput(text) {
			p, ok := model.ParsePriority(text)
			if !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick high, medium or low.", priorityKeyboard())
			}
			state.input.Priority = p
		}
		state.stage = stageEstimate
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏱ Estimate as <code>H:MM</code> (or skip).", skipKeyboard())
	case stageEstimate:
		if !isSkipInput(text) {
			estimate, err := parseDuration(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use <code>H:MM</code>, for example <code>1:30</code>, or skip.", skipKeyboard())
			}
			state.input.Estimate = estimate
		}
		state.stage = stageLabels
		return b.askLabels(ctx, msg.Chat.ID)
	case stageLabels:
		if !isSkipInput(text) {
			ids, unknown, err := b.resolveLabels(ctx, splitNames(text))
			if err != nil {
				return err
			}
			if len(unknown) > 0 {
				return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Unknown labels: %s. Try again or skip.", escape(strings.Join(unknown, ", "))), skipKeyboard())
			}
			state.input.LabelIDs = ids
		}
		err := b.finishTaskCreation(ctx, msg.Chat.ID, state.input)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Start again with /newtask.")
	}
}

func (b *Bot) askList(ctx context.Context, chatID int64) error {
	lists, err := b.svc.Lists.ListLists(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(lists))
	for _, l := range lists {
		names = append(names, l.Name)
	}
	return b.sendWithReplyMarkup(chatID, "📂 Which list? Skipping puts it in the inbox.", namesKeyboard(names))
}

func (b *Bot) askDate(chatID int64) error {
	return b.sendWithReplyMarkup(chatID, "🗓 When? <code>2025-11-30</code>, today, tomorrow or +3 (or skip).", dateKeyboard())
}

func (b *Bot) askLabels(ctx context.Context, chatID int64) error {
	labels, err := b.svc.Labels.ListLabels(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return b.sendWithReplyMarkup(chatID, "🏷 Labels, comma separated (or skip).", namesKeyboard(names))
}

func (b *Bot) resolveLabels(ctx context.Context, names []string) ([]string, []string, error) {
	var ids, unknown []string
	for _, name := range names {
		label, err := b.svc.Labels.FindByName(ctx, name)
		switch {
		case err == nil:
			ids = append(ids, label.ID)
		case errors.Is(err, service.ErrNotFound):
			unknown = append(unknown, name)
		default:
			return nil, nil, err
		}
	}
	return ids, unknown, nil
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, input service.TaskInput) error {
	task, err := b.svc.Tasks.CreateTask(ctx, input)
	if err != nil {
		return b.sendError(chatID, "Could not save the task", err)
	}

	b.log.WithFields(logrus.Fields{"task": task.ID, "chat": chatID}).Info("task created via chat")

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(formatTaskDetails(*task, "", b.now()))

	msg := tgbotapi.NewMessage(chatID, summary.String())
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.render(ctx, chatID)
}
