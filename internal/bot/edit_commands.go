package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-planner/internal/model"
	"daily-planner/internal/service"
)

func (b *Bot) handleRenameList(ctx context.Context, msg *tgbotapi.Message) error {
	from, to, ok := parseRename(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Use /renamelist Old name = New name")
	}
	list, err := b.svc.Lists.FindByName(ctx, from)
	if err == nil {
		newName, color := parseNameColor(to)
		patch := service.ListPatch{Name: &newName}
		if color != "" {
			patch.Color = &color
		}
		list, err = b.svc.Lists.UpdateList(ctx, list.ID, patch)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("No list named «%s».", escape(from)))
		}
		return b.sendError(msg.Chat.ID, "Could not rename list", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📂 List renamed to «%s».", escape(list.Name)))
}

func (b *Bot) handleRenameLabel(ctx context.Context, msg *tgbotapi.Message) error {
	from, to, ok := parseRename(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Use /renamelabel Old name = New name")
	}
	label, err := b.svc.Labels.FindByName(ctx, from)
	if err == nil {
		newName, color := parseNameColor(to)
		label, err = b.svc.Labels.RenameLabel(ctx, label.ID, newName, color)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("No label named «%s».", escape(from)))
		}
		return b.sendError(msg.Chat.ID, "Could not rename label", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🏷 Label renamed to «%s».", escape(label.Name)))
}

// handleSetLabels replaces the labels of task n. An empty name list clears them.
func (b *Bot) handleSetLabels(ctx context.Context, msg *tgbotapi.Message) error {
	num, names := splitFirst(msg.CommandArguments())
	task, err := b.taskAt(ctx, msg.Chat.ID, num)
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	ids, unknown, err := b.resolveLabels(ctx, splitNames(names))
	if err != nil {
		return b.sendError(msg.Chat.ID, "Could not load labels", err)
	}
	if len(unknown) > 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Unknown labels: %s. See /labels.", escape(strings.Join(unknown, ", "))))
	}
	if _, err := b.svc.Tasks.SetLabels(ctx, task.ID, ids); err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	return b.render(ctx, msg.Chat.ID)
}

// handleSetDate sets or clears ("none") the scheduled date of task n.
func (b *Bot) handleSetDate(ctx context.Context, msg *tgbotapi.Message) error {
	num, raw := splitFirst(msg.CommandArguments())
	var patch service.TaskPatch
	if strings.EqualFold(raw, "none") {
		patch.ClearDate = true
	} else {
		date, err := parseDate(raw, b.now())
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use /date 2 2025-11-30, today, tomorrow, +3 or none.")
		}
		patch.Date = &date
	}
	return b.patchTask(ctx, msg.Chat.ID, num, patch)
}

func (b *Bot) handleSetPriority(ctx context.Context, msg *tgbotapi.Message) error {
	num, raw := splitFirst(msg.CommandArguments())
	p, ok := model.ParsePriority(raw)
	if !ok {
		return b.sendText(msg.Chat.ID, "Use /priority 2 high|medium|low|none")
	}
	return b.patchTask(ctx, msg.Chat.ID, num, service.TaskPatch{Priority: &p})
}

// handleSetDeadline sets or clears ("none") the deadline of task n.
func (b *Bot) handleSetDeadline(ctx context.Context, msg *tgbotapi.Message) error {
	num, raw := splitFirst(msg.CommandArguments())
	var patch service.TaskPatch
	if strings.EqualFold(raw, "none") {
		patch.ClearDeadline = true
	} else {
		deadline, err := parseDeadline(raw, b.now())
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use /deadline 2 2025-11-30 18:00, /deadline 2 2025-11-30 or none.")
		}
		patch.Deadline = &deadline
	}
	return b.patchTask(ctx, msg.Chat.ID, num, patch)
}

func (b *Bot) handleSetEstimate(ctx context.Context, msg *tgbotapi.Message) error {
	num, raw := splitFirst(msg.CommandArguments())
	estimate, err := parseDuration(raw)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Use /estimate 2 1:30")
	}
	return b.patchTask(ctx, msg.Chat.ID, num, service.TaskPatch{Estimate: &estimate})
}

// handleSetActual records how long task n really took.
func (b *Bot) handleSetActual(ctx context.Context, msg *tgbotapi.Message) error {
	num, raw := splitFirst(msg.CommandArguments())
	actual, err := parseDuration(raw)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Use /actual 2 0:45")
	}
	return b.patchTask(ctx, msg.Chat.ID, num, service.TaskPatch{ActualTime: &actual})
}

func (b *Bot) handleRenameTask(ctx context.Context, msg *tgbotapi.Message) error {
	num, name := splitFirst(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Use /rename 2 New name")
	}
	return b.patchTask(ctx, msg.Chat.ID, num, service.TaskPatch{Name: &name})
}

// handleSetDescription replaces the description of task n. "none" clears it.
func (b *Bot) handleSetDescription(ctx context.Context, msg *tgbotapi.Message) error {
	num, desc := splitFirst(msg.CommandArguments())
	if desc == "" {
		return b.sendText(msg.Chat.ID, "Use /desc 2 Some text, or /desc 2 none")
	}
	if strings.EqualFold(desc, "none") {
		desc = ""
	}
	return b.patchTask(ctx, msg.Chat.ID, num, service.TaskPatch{Description: &desc})
}

// handleMoveTask puts task n into the named list.
func (b *Bot) handleMoveTask(ctx context.Context, msg *tgbotapi.Message) error {
	num, name := splitFirst(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Use /move 2 List name")
	}
	list, err := b.svc.Lists.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("No list named «%s». See /lists.", escape(name)))
		}
		return b.sendError(msg.Chat.ID, "Could not load lists", err)
	}
	return b.patchTask(ctx, msg.Chat.ID, num, service.TaskPatch{ListID: &list.ID})
}

// handleSetRepeat sets the repeat rule of task n, or stops it with "none".
// The rule is stored only; no occurrences are generated.
func (b *Bot) handleSetRepeat(ctx context.Context, msg *tgbotapi.Message) error {
	num, raw := splitFirst(msg.CommandArguments())
	var patch service.TaskPatch
	if strings.EqualFold(raw, "none") {
		none := ""
		patch.RecurType = &none
	} else {
		recurType, interval, err := parseRecurrence(raw)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use /repeat 2 daily|weekdays|weekly|monthly|yearly [N], or none.")
		}
		patch.RecurType = &recurType
		patch.RecurInterval = &interval
	}
	return b.patchTask(ctx, msg.Chat.ID, num, patch)
}

// patchTask applies patch to task n of the last view and shows the view again.
func (b *Bot) patchTask(ctx context.Context, chatID int64, num string, patch service.TaskPatch) error {
	task, err := b.taskAt(ctx, chatID, num)
	if err != nil {
		return b.replyTaskErr(chatID, err)
	}
	if _, err := b.svc.Tasks.UpdateTask(ctx, task.ID, patch); err != nil {
		if errors.Is(err, service.ErrEmptyName) {
			return b.sendText(chatID, "The name cannot be empty.")
		}
		return b.replyTaskErr(chatID, err)
	}
	return b.render(ctx, chatID)
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) error {
	task, err := b.taskAt(ctx, msg.Chat.ID, msg.CommandArguments())
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	entries, err := b.svc.Tasks.History(ctx, task.ID)
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatHistory(task.Name, entries, b.config.Location))
}

// parseRename splits "old = new" into its trimmed halves.
func parseRename(args string) (string, string, bool) {
	from, to, found := strings.Cut(args, "=")
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !found || from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

func formatChanges(changes map[string]model.Change) string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}
