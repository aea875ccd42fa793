package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"daily-planner/internal/config"
	"daily-planner/internal/metrics"
	"daily-planner/internal/planner"
	"daily-planner/internal/repository"
	"daily-planner/internal/service"
)

type confirmationRequest struct {
	taskID string
	name   string
}

// chatState is what a chat is currently looking at.
type chatState struct {
	criteria planner.Criteria
	lastView []string
}

// Services bundles what the bot needs from the service layer.
type Services struct {
	Tasks     *service.TaskService
	Lists     *service.ListService
	Labels    *service.LabelService
	Views     *service.ViewService
	Reminders *service.ReminderService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	chatRepo      *repository.ChatRepository
	svc           Services
	config        *config.Config
	log           *logrus.Entry
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	chats         map[int64]*chatState
	mu            sync.Mutex
}

func New(token string, chatRepo *repository.ChatRepository, svc Services, cfg *config.Config, log *logrus.Entry) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.WithField("account", api.Self.UserName).Info("bot authorized")

	return &Bot{
		api:           api,
		chatRepo:      chatRepo,
		svc:           svc,
		config:        cfg,
		log:           log,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		chats:         make(map[int64]*chatState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			metrics.BotUpdate("callback")
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.WithError(err).Error("handle callback")
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !b.config.ChatAllowed(update.Message.Chat.ID) {
				metrics.BotUpdate("rejected")
				continue
			}
			metrics.BotUpdate("message")
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.WithError(err).Error("handle message")
			}
		}
	}

	return nil
}

func (b *Bot) now() time.Time {
	return time.Now().In(b.config.Location)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.WithFields(logrus.Fields{"chat": msg.Chat.ID, "command": msg.Command()}).Info("command")
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Use /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.showView(ctx, msg.Chat.ID, planner.ViewToday)
	case "week", "next7days":
		return b.showView(ctx, msg.Chat.ID, planner.ViewNext7Days)
	case "upcoming":
		return b.showView(ctx, msg.Chat.ID, planner.ViewUpcoming)
	case "all", "tasks":
		return b.showView(ctx, msg.Chat.ID, planner.ViewAll)
	case "list":
		return b.handleList(ctx, msg)
	case "lists":
		return b.handleLists(ctx, msg.Chat.ID)
	case "newlist":
		return b.handleNewList(ctx, msg)
	case "dellist":
		return b.handleDeleteList(ctx, msg)
	case "labels":
		return b.handleLabels(ctx, msg.Chat.ID)
	case "newlabel":
		return b.handleNewLabel(ctx, msg)
	case "dellabel":
		return b.handleDeleteLabel(ctx, msg)
	case "search":
		return b.handleSearch(ctx, msg)
	case "completed":
		return b.handleToggleCompleted(ctx, msg.Chat.ID)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "show":
		return b.handleShow(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "sub":
		return b.handleAddSubtask(ctx, msg)
	case "subdone":
		return b.handleSubtaskDone(ctx, msg)
	case "remind":
		return b.handleRemind(ctx, msg)
	case "label":
		return b.handleSetLabels(ctx, msg)
	case "date":
		return b.handleSetDate(ctx, msg)
	case "priority":
		return b.handleSetPriority(ctx, msg)
	case "deadline":
		return b.handleSetDeadline(ctx, msg)
	case "estimate":
		return b.handleSetEstimate(ctx, msg)
	case "actual":
		return b.handleSetActual(ctx, msg)
	case "rename":
		return b.handleRenameTask(ctx, msg)
	case "desc":
		return b.handleSetDescription(ctx, msg)
	case "move":
		return b.handleMoveTask(ctx, msg)
	case "repeat":
		return b.handleSetRepeat(ctx, msg)
	case "history":
		return b.handleHistory(ctx, msg)
	case "renamelist":
		return b.handleRenameList(ctx, msg)
	case "renamelabel":
		return b.handleRenameLabel(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelToday):
		return true, b.showView(ctx, msg.Chat.ID, planner.ViewToday)
	case strings.ToLower(menuLabelWeek):
		return true, b.showView(ctx, msg.Chat.ID, planner.ViewNext7Days)
	case strings.ToLower(menuLabelAll):
		return true, b.showView(ctx, msg.Chat.ID, planner.ViewAll)
	case strings.ToLower(menuLabelLists):
		return true, b.handleLists(ctx, msg.Chat.ID)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// SendDailyReports sends the daily summary to every known chat.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	text, err := b.svc.Reminders.DailySummary(ctx, b.now())
	if err != nil {
		return err
	}
	_, err = b.broadcast(ctx, text)
	return err
}

// SendReminders delivers due reminders to every known chat.
func (b *Bot) SendReminders(ctx context.Context) error {
	sent, err := b.svc.Reminders.DispatchDue(ctx, b.now(), func(text string) error {
		delivered, err := b.broadcast(ctx, text)
		if err != nil {
			return err
		}
		if delivered == 0 {
			return fmt.Errorf("no chat received the reminder")
		}
		return nil
	})
	if sent > 0 {
		b.log.WithField("count", sent).Info("reminders sent")
	}
	return err
}

func (b *Bot) broadcast(ctx context.Context, text string) (int, error) {
	chats, err := b.chatRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, chat := range chats {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		default:
		}
		if !b.config.ChatAllowed(chat.TelegramID) {
			continue
		}
		if err := b.sendText(chat.TelegramID, text); err != nil {
			b.log.WithError(err).WithField("chat", chat.TelegramID).Warn("send failed")
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendError(chatID int64, what string, err error) error {
	b.log.WithError(err).WithField("chat", chatID).Warn(what)
	return b.sendText(chatID, fmt.Sprintf("%s: %s", what, escape(err.Error())))
}

// criteria returns the chat's current view criteria. New chats start on Today.
func (b *Bot) criteria(chatID int64) planner.Criteria {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.chats[chatID]; ok {
		return st.criteria
	}
	return planner.Criteria{View: planner.ViewToday}
}

func (b *Bot) setCriteria(chatID int64, c planner.Criteria) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.chats[chatID]
	if !ok {
		st = &chatState{}
		b.chats[chatID] = st
	}
	st.criteria = c
}

func (b *Bot) setLastView(chatID int64, ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.chats[chatID]
	if !ok {
		st = &chatState{criteria: planner.Criteria{View: planner.ViewToday}}
		b.chats[chatID] = st
	}
	st.lastView = ids
}

func (b *Bot) lastView(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.chats[chatID]; ok {
		return st.lastView
	}
	return nil
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
