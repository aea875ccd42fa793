package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-planner/internal/model"
	"daily-planner/internal/planner"
	"daily-planner/internal/service"
)

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /today, /week, /upcoming, /all — canned views\n" +
	"• /list &lt;name&gt; — tasks of one list, /lists — all lists\n" +
	"• /newlist &lt;name&gt; [#color], /dellist &lt;name&gt;\n" +
	"• /labels, /newlabel &lt;name&gt; [#color], /dellabel &lt;name&gt;\n" +
	"• /search &lt;text&gt; — filter the current view (empty clears)\n" +
	"• /completed — show or hide completed tasks\n" +
	"• /newtask — add a task step by step\n" +
	"• /show &lt;n&gt; — task details with subtasks\n" +
	"• /done &lt;n&gt;, /delete &lt;n&gt; — toggle or remove task n of the last view\n" +
	"• /sub &lt;n&gt; &lt;title&gt;, /subdone &lt;n&gt; &lt;m&gt; — subtasks\n" +
	"• /date &lt;n&gt; &lt;date|none&gt;, /priority &lt;n&gt; &lt;p&gt;, /label &lt;n&gt; &lt;a, b&gt; — edit task n\n" +
	"• /deadline &lt;n&gt; &lt;YYYY-MM-DD [HH:MM]|none&gt;, /estimate &lt;n&gt; &lt;H:MM&gt;, /actual &lt;n&gt; &lt;H:MM&gt;\n" +
	"• /rename &lt;n&gt; &lt;name&gt;, /desc &lt;n&gt; &lt;text|none&gt;, /move &lt;n&gt; &lt;list&gt;\n" +
	"• /repeat &lt;n&gt; &lt;daily|weekdays|weekly|monthly|yearly [N]|none&gt;\n" +
	"• /history &lt;n&gt; — what changed on task n\n" +
	"• /renamelist, /renamelabel &lt;old&gt; = &lt;new&gt;\n" +
	"• /remind &lt;n&gt; &lt;YYYY-MM-DD HH:MM&gt; — reminder\n" +
	"• /report — daily report now\n" +
	"• /cancel — stop the current input"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.chatRepo.Upsert(ctx, msg.Chat.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your daily plan.</b> Daily reports and reminders will arrive here.\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) showView(ctx context.Context, chatID int64, v planner.View) error {
	b.setCriteria(chatID, b.criteria(chatID).WithView(v))
	return b.render(ctx, chatID)
}

// render shows the chat's current criteria and remembers the task order for numbered commands.
func (b *Bot) render(ctx context.Context, chatID int64) error {
	c := b.criteria(chatID)
	res, err := b.svc.Views.Render(ctx, c, b.now())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			b.setCriteria(chatID, c.WithView(planner.ViewToday))
			return b.sendText(chatID, "That list no longer exists. Back to /today.")
		}
		return b.sendError(chatID, "Could not load tasks", err)
	}

	ids := make([]string, 0, len(res.Tasks))
	for _, t := range res.Tasks {
		ids = append(ids, t.ID)
	}
	b.setLastView(chatID, ids)

	return b.sendWithReplyMarkup(chatID, formatView(res, b.now()), viewKeyboard(res.Tasks))
}

// taskAt resolves a 1-based number from the chat's last rendered view.
func (b *Bot) taskAt(ctx context.Context, chatID int64, raw string) (*model.Task, error) {
	ids := b.lastView(chatID)
	idx, err := parseIndex(raw, len(ids))
	if err != nil {
		return nil, err
	}
	return b.svc.Tasks.GetTask(ctx, ids[idx])
}

func (b *Bot) replyTaskErr(chatID int64, err error) error {
	switch {
	case errors.Is(err, errBadIndex):
		return b.sendText(chatID, "Use a task number from the last view, e.g. /done 2. Open a view with /today first.")
	case errors.Is(err, service.ErrNotFound):
		return b.sendText(chatID, "Task not found. Refresh the view.")
	default:
		return b.sendError(chatID, "Error", err)
	}
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.handleLists(ctx, msg.Chat.ID)
	}
	list, err := b.svc.Lists.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("No list named «%s». See /lists.", escape(name)))
		}
		return b.sendError(msg.Chat.ID, "Could not load lists", err)
	}
	return b.openList(ctx, msg.Chat.ID, list.ID)
}

func (b *Bot) openList(ctx context.Context, chatID int64, listID string) error {
	b.setCriteria(chatID, b.criteria(chatID).WithList(listID))
	return b.render(ctx, chatID)
}

func (b *Bot) handleLists(ctx context.Context, chatID int64) error {
	lists, err := b.svc.Lists.ListLists(ctx)
	if err != nil {
		return b.sendError(chatID, "Could not load lists", err)
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Lists</b>\n")
	for _, l := range lists {
		builder.WriteString(fmt.Sprintf("• %s %s", l.Icon, escape(l.Name)))
		if l.IsDefault {
			builder.WriteString(" <i>(default)</i>")
		}
		builder.WriteByte('\n')
	}
	builder.WriteString("\nTap a list to open it.")
	return b.sendWithReplyMarkup(chatID, builder.String(), listsKeyboard(lists))
}

func (b *Bot) handleNewList(ctx context.Context, msg *tgbotapi.Message) error {
	name, color := parseNameColor(msg.CommandArguments())
	list, err := b.svc.Lists.CreateList(ctx, name, color, "")
	if err != nil {
		if errors.Is(err, service.ErrEmptyName) {
			return b.sendText(msg.Chat.ID, "Give the list a name: /newlist Work #22c55e")
		}
		return b.sendError(msg.Chat.ID, "Could not create list", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📂 List «%s» created.", escape(list.Name)))
}

func (b *Bot) handleDeleteList(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Name the list: /dellist Work")
	}
	list, err := b.svc.Lists.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("No list named «%s».", escape(name)))
		}
		return b.sendError(msg.Chat.ID, "Could not load lists", err)
	}
	if err := b.svc.Lists.DeleteList(ctx, list.ID); err != nil {
		if errors.Is(err, service.ErrProtectedList) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("«%s» is the default list and cannot be deleted.", escape(list.Name)))
		}
		return b.sendError(msg.Chat.ID, "Could not delete list", err)
	}
	if b.criteria(msg.Chat.ID).ListID == list.ID {
		b.setCriteria(msg.Chat.ID, b.criteria(msg.Chat.ID).WithView(planner.ViewToday))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 List «%s» deleted. Its tasks moved to the inbox.", escape(list.Name)))
}

func (b *Bot) handleLabels(ctx context.Context, chatID int64) error {
	labels, err := b.svc.Labels.ListLabels(ctx)
	if err != nil {
		return b.sendError(chatID, "Could not load labels", err)
	}
	if len(labels) == 0 {
		return b.sendText(chatID, "No labels yet. Add one with /newlabel.")
	}
	var builder strings.Builder
	builder.WriteString("🏷 <b>Labels</b>\n")
	for _, l := range labels {
		builder.WriteString(fmt.Sprintf("• %s %s <code>%s</code>\n", l.Icon, escape(l.Name), escape(l.Color)))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleNewLabel(ctx context.Context, msg *tgbotapi.Message) error {
	name, color := parseNameColor(msg.CommandArguments())
	label, err := b.svc.Labels.CreateLabel(ctx, name, color, "")
	if err != nil {
		if errors.Is(err, service.ErrEmptyName) {
			return b.sendText(msg.Chat.ID, "Give the label a name: /newlabel Errands #f59e0b")
		}
		return b.sendError(msg.Chat.ID, "Could not create label", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🏷 Label «%s» created.", escape(label.Name)))
}

func (b *Bot) handleDeleteLabel(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Name the label: /dellabel Errands")
	}
	label, err := b.svc.Labels.FindByName(ctx, name)
	if err == nil {
		err = b.svc.Labels.DeleteLabel(ctx, label.ID)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("No label named «%s».", escape(name)))
		}
		return b.sendError(msg.Chat.ID, "Could not delete label", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Label «%s» removed from all tasks.", escape(label.Name)))
}

func (b *Bot) handleSearch(ctx context.Context, msg *tgbotapi.Message) error {
	b.setCriteria(msg.Chat.ID, b.criteria(msg.Chat.ID).WithQuery(msg.CommandArguments()))
	return b.render(ctx, msg.Chat.ID)
}

func (b *Bot) handleToggleCompleted(ctx context.Context, chatID int64) error {
	c := b.criteria(chatID)
	b.setCriteria(chatID, c.WithShowCompleted(!c.ShowCompleted))
	return b.render(ctx, chatID)
}

func (b *Bot) handleShow(ctx context.Context, msg *tgbotapi.Message) error {
	task, err := b.taskAt(ctx, msg.Chat.ID, msg.CommandArguments())
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	listName := ""
	if list, err := b.svc.Lists.GetList(ctx, task.ListID); err == nil {
		listName = list.Name
	}
	return b.sendText(msg.Chat.ID, formatTaskDetails(*task, listName, b.now()))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	task, err := b.taskAt(ctx, msg.Chat.ID, msg.CommandArguments())
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	return b.toggleAndRefresh(ctx, msg.Chat.ID, task.ID)
}

func (b *Bot) toggleAndRefresh(ctx context.Context, chatID int64, taskID string) error {
	task, err := b.svc.Tasks.ToggleCompleted(ctx, taskID)
	if err != nil {
		return b.replyTaskErr(chatID, err)
	}
	info := fmt.Sprintf("↩️ «%s» is open again.", escape(normalizeTitle(task.Name)))
	if task.IsCompleted {
		info = fmt.Sprintf("✅ «%s» done.", escape(normalizeTitle(task.Name)))
	}
	if err := b.sendText(chatID, info); err != nil {
		return err
	}
	return b.render(ctx, chatID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	task, err := b.taskAt(ctx, msg.Chat.ID, msg.CommandArguments())
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	return b.askDeleteConfirmation(msg.Chat.ID, msg.From.ID, task)
}

func (b *Bot) askDeleteConfirmation(chatID, userID int64, task *model.Task) error {
	b.setConfirmation(userID, confirmationRequest{taskID: task.ID, name: task.Name})
	text := fmt.Sprintf("Delete «%s» with its subtasks and reminders?", escape(normalizeTitle(task.Name)))
	if err := b.sendWithReplyMarkup(chatID, text, confirmInlineKeyboard(task.ID)); err != nil {
		return err
	}
	return b.sendWithReplyMarkup(chatID, "Or answer here.", confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteAndRefresh(ctx, msg.Chat.ID, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Nothing deleted.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Confirm or cancel deleting «%s».", escape(req.name)), confirmKeyboard())
	}
}

func (b *Bot) deleteAndRefresh(ctx context.Context, chatID int64, taskID string) error {
	task, err := b.svc.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return b.replyTaskErr(chatID, err)
	}
	if err := b.svc.Tasks.DeleteTask(ctx, taskID); err != nil {
		return b.replyTaskErr(chatID, err)
	}
	if err := b.sendText(chatID, fmt.Sprintf("🗑 «%s» deleted.", escape(normalizeTitle(task.Name)))); err != nil {
		return err
	}
	return b.render(ctx, chatID)
}

func (b *Bot) handleAddSubtask(ctx context.Context, msg *tgbotapi.Message) error {
	num, title := splitFirst(msg.CommandArguments())
	task, err := b.taskAt(ctx, msg.Chat.ID, num)
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	if _, err := b.svc.Tasks.AddSubtask(ctx, task.ID, title); err != nil {
		if errors.Is(err, service.ErrEmptyName) {
			return b.sendText(msg.Chat.ID, "Add a title: /sub 2 buy boxes")
		}
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	return b.showTask(ctx, msg.Chat.ID, task.ID)
}

func (b *Bot) handleSubtaskDone(ctx context.Context, msg *tgbotapi.Message) error {
	num, rest := splitFirst(msg.CommandArguments())
	task, err := b.taskAt(ctx, msg.Chat.ID, num)
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	idx, err := parseIndex(rest, len(task.Subtasks))
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("«%s» has %d subtasks. Use /subdone %s &lt;m&gt;.", escape(task.Name), len(task.Subtasks), escape(num)))
	}
	if _, err := b.svc.Tasks.ToggleSubtask(ctx, task.Subtasks[idx].ID); err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	return b.showTask(ctx, msg.Chat.ID, task.ID)
}

func (b *Bot) showTask(ctx context.Context, chatID int64, taskID string) error {
	task, err := b.svc.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return b.replyTaskErr(chatID, err)
	}
	return b.sendText(chatID, formatTaskDetails(*task, "", b.now()))
}

func (b *Bot) handleRemind(ctx context.Context, msg *tgbotapi.Message) error {
	num, when := splitFirst(msg.CommandArguments())
	task, err := b.taskAt(ctx, msg.Chat.ID, num)
	if err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", when, b.config.Location)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Use the format /remind 2 2025-11-30 09:00")
	}
	if _, err := b.svc.Tasks.AddReminder(ctx, task.ID, at); err != nil {
		return b.replyTaskErr(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("⏰ Reminder for «%s» set to %s.", escape(task.Name), at.Format("Jan 2 15:04")))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.svc.Reminders.DailySummary(ctx, b.now())
	if err != nil {
		return b.sendError(msg.Chat.ID, "Could not build the report", err)
	}
	return b.sendText(msg.Chat.ID, text)
}
