package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-planner/internal/model"
	"daily-planner/internal/planner"
)

const (
	cbDonePrefix    = "done:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
	cbViewPrefix    = "view:"
	cbListPrefix    = "list:"
)

const (
	btnSkip          = "⏭️ Skip"
	btnConfirm       = "✅ Confirm"
	btnCancel        = "↩️ Cancel"
	btnCancelDialog  = "⏪ Stop input"
	menuLabelNewTask = "➕ New task"
	menuLabelToday   = "📅 Today"
	menuLabelWeek    = "🗓 Next 7 days"
	menuLabelAll     = "📋 All tasks"
	menuLabelLists   = "📂 Lists"
	menuLabelHelp    = "ℹ️ Help"
)

// maxTaskButtons caps the inline rows under a view message.
const maxTaskButtons = 15

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelWeek),
			tgbotapi.NewKeyboardButton(menuLabelAll),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelLists),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func dateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("today"),
			tgbotapi.NewKeyboardButton("tomorrow"),
			tgbotapi.NewKeyboardButton("+7"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.PriorityHigh)),
			tgbotapi.NewKeyboardButton(string(model.PriorityMedium)),
			tgbotapi.NewKeyboardButton(string(model.PriorityLow)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func recurKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("daily"),
			tgbotapi.NewKeyboardButton("weekdays"),
			tgbotapi.NewKeyboardButton("weekly"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("monthly"),
			tgbotapi.NewKeyboardButton("yearly"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// namesKeyboard offers the given names two per row, followed by skip and cancel.
func namesKeyboard(names []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(names); i += 2 {
		row := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(names[i])}
		if i+1 < len(names) {
			row = append(row, tgbotapi.NewKeyboardButton(names[i+1]))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnSkip),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// viewKeyboard adds done/delete buttons per task and a row switching between views.
func viewKeyboard(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		if i == maxTaskButtons {
			break
		}
		mark := "✅"
		if task.IsCompleted {
			mark = "↩️"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d · %s", mark, i+1, shortTitle(task.Name, 22)), cbDonePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}

	var views []tgbotapi.InlineKeyboardButton
	for _, v := range planner.Views {
		views = append(views, tgbotapi.NewInlineKeyboardButtonData(v.Title(), cbViewPrefix+string(v)))
	}
	rows = append(rows, views)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func listsKeyboard(lists []model.TaskList) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, l := range lists {
		text := strings.TrimSpace(l.Icon + " " + shortTitle(l.Name, 28))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, cbListPrefix+l.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmInlineKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+taskID),
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+taskID),
	))
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "stop"
}
