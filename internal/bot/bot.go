package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
	"seeding/internal/repository"
	"seeding/internal/service"
	"seeding/internal/settings"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageActionTitle
	stageActionPolarity
	stageActionSeed
	stageActionRemedy
	stageActionWindow
	stageGoalTitle
	stageGoalDescription
	stageGoalSeed
	stageGoalDeadline
)

const (
	cbFulfillPrefix  = "fulfill:"
	cbCompletePrefix = "complete:"
	cbAbandonPrefix  = "abandon:"
	cbRestorePrefix  = "restore:"
)

type conversationState struct {
	stage  conversationStage
	action service.ActionInput
	goal   service.GoalInput
}

type confirmationAction int

const (
	actionFulfill confirmationAction = iota
	actionComplete
	actionAbandon
)

type confirmationRequest struct {
	ref    string
	action confirmationAction
}

// Services groups what the bot needs from the service layer.
type Services struct {
	Users       *repository.UserRepository
	Actions     *service.ActionService
	Commitments *service.CommitmentService
	Goals       *service.GoalService
	Reminders   *service.ReminderService
	Reconcile   *service.ReconcileService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	settings      *settings.Settings
	clock         lifecycle.Clock
	log           *zap.Logger
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, svc Services, st *settings.Settings, clock lifecycle.Clock, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:           api,
		svc:           svc,
		settings:      st,
		clock:         clock,
		log:           log,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
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
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", zap.Error(err))
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled. Pick something from the menu.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Debug("command", zap.Int64("from", msg.From.ID), zap.String("command", msg.Command()), zap.String("args", msg.CommandArguments()))
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		b.log.Debug("conversation step", zap.Int64("from", msg.From.ID), zap.Int("stage", int(state.stage)))
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Use /log to record an action, /newgoal to set a goal or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "log":
		return b.startActionConversation(ctx, msg)
	case "commitments":
		return b.handleListCommitments(ctx, msg)
	case "fulfill":
		return b.handleRefCommand(ctx, msg, "/fulfill", b.fulfillAndRefresh)
	case "newgoal":
		return b.startGoalConversation(ctx, msg)
	case "goals":
		return b.handleListGoals(ctx, msg)
	case "complete":
		return b.handleRefCommand(ctx, msg, "/complete", b.completeAndRefresh)
	case "abandon":
		return b.handleRefCommand(ctx, msg, "/abandon", b.abandonAndRefresh)
	case "restore":
		return b.handleRestore(ctx, msg)
	case "deadline":
		return b.handleDeadline(ctx, msg)
	case "seeds":
		return b.handleSeeds(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "interval":
		return b.handleInterval(msg)
	case "language":
		return b.handleLanguage(msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	name := user.DisplayName()

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I help you grow good seeds: log what you do, keep your commitments and reach your goals.</b>\n\n%s",
		escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "Commands:\n" +
	"• /log — record a good or bad action\n" +
	"• /commitments — what you promised to make up for\n" +
	"• /fulfill &lt;id&gt; — mark a commitment as kept\n" +
	"• /newgoal — set a goal with a deadline\n" +
	"• /goals — open goals with progress\n" +
	"• /complete &lt;id&gt; — complete a goal\n" +
	"• /abandon &lt;id&gt; — give up on a goal\n" +
	"• /restore [id] — bring an abandoned goal back\n" +
	"• /deadline &lt;id&gt; &lt;date&gt; — move a goal deadline\n" +
	"• /seeds — the twelve seeds and your week\n" +
	"• /report — summary right now\n" +
	"• /interval &lt;hours&gt; — how often to send summaries\n" +
	"• /language &lt;tag&gt; — date format language (en, ru, de)\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Reminders.Summary(ctx, user, b.clock.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the summary: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

// SendReports sends a summary to every known user.
func (b *Bot) SendReports(ctx context.Context) error {
	users, err := b.svc.Users.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.clock.Now()
	for i := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		user := &users[i]
		text, err := b.svc.Reminders.Summary(ctx, user, now)
		if err != nil {
			b.log.Warn("build summary", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.log.Warn("send summary", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelLog):
		return true, b.startActionConversation(ctx, msg)
	case strings.ToLower(menuLabelCommitments):
		return true, b.handleListCommitments(ctx, msg)
	case strings.ToLower(menuLabelGoals):
		return true, b.handleListGoals(ctx, msg)
	case strings.ToLower(menuLabelNewGoal):
		return true, b.startGoalConversation(ctx, msg)
	case strings.ToLower(menuLabelSeeds):
		return true, b.handleSeeds(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// handleRefCommand parses "/cmd <id>" and runs fn for the referenced item.
func (b *Bot) handleRefCommand(ctx context.Context, msg *tgbotapi.Message, usage string, fn func(context.Context, int64, *tgbotapi.User, string) error) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Give me the id: %s 1a2b3c4d", usage))
	}
	return fn(ctx, msg.Chat.ID, msg.From, ref)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	b.log.Debug("callback", zap.Int64("from", cb.From.ID), zap.String("data", data))

	switch {
	case strings.HasPrefix(data, cbFulfillPrefix):
		return b.askConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbFulfillPrefix), actionFulfill)
	case strings.HasPrefix(data, cbCompletePrefix):
		return b.askConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbCompletePrefix), actionComplete)
	case strings.HasPrefix(data, cbAbandonPrefix):
		return b.askConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbAbandonPrefix), actionAbandon)
	case strings.HasPrefix(data, cbRestorePrefix):
		return b.restoreAndRefresh(ctx, chatID, cb.From, strings.TrimPrefix(data, cbRestorePrefix))
	default:
		return nil
	}
}

func (b *Bot) askConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, ref string, action confirmationAction) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	var text string
	switch action {
	case actionFulfill:
		view, err := b.svc.Commitments.Get(ctx, user, ref)
		if err != nil {
			return b.sendText(chatID, describeError(err))
		}
		if !view.Fulfillable(b.clock.Now()) {
			return b.sendText(chatID, describeError(lifecycle.ErrObligationClosed))
		}
		text = fmt.Sprintf("Did you keep «%s»?", escape(normalizeTitle(view.Commitment.Title)))
	default:
		view, err := b.svc.Goals.Get(ctx, user, ref)
		if err != nil {
			return b.sendText(chatID, describeError(err))
		}
		if view.Obligation.Terminal() {
			return b.sendText(chatID, describeError(lifecycle.ErrObligationClosed))
		}
		verb := "Complete"
		if action == actionAbandon {
			verb = "Abandon"
		}
		text = fmt.Sprintf("%s the goal «%s»?", verb, escape(normalizeTitle(view.Goal.Title)))
	}

	b.setConfirmation(from.ID, confirmationRequest{ref: ref, action: action})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		switch req.action {
		case actionFulfill:
			return b.fulfillAndRefresh(ctx, msg.Chat.ID, msg.From, req.ref)
		case actionAbandon:
			return b.abandonAndRefresh(ctx, msg.Chat.ID, msg.From, req.ref)
		default:
			return b.completeAndRefresh(ctx, msg.Chat.ID, msg.From, req.ref)
		}
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel, please.", confirmKeyboard())
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.svc.Users.Upsert(ctx, repository.Profile{
		TelegramID:   from.ID,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		Username:     from.UserName,
		LanguageCode: from.LanguageCode,
	})
}

// describeError turns a service error into a chat message.
func describeError(err error) string {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "Nothing found with that id."
	case errors.Is(err, repository.ErrAmbiguousRef):
		return "That id matches several items, type a few more characters."
	case errors.Is(err, lifecycle.ErrObligationClosed):
		return "⌛ Too late: this one is already closed."
	case errors.Is(err, lifecycle.ErrWrongKind):
		return "That id belongs to something else. Check /goals and /commitments."
	case errors.Is(err, lifecycle.ErrDeadlineLocked):
		return "The deadline can only be moved while the goal is in progress."
	case errors.Is(err, lifecycle.ErrInvalidDeadline):
		return "The deadline cannot be earlier than the moment the goal was set."
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return "Only abandoned goals can be restored."
	case errors.Is(err, service.ErrConflict):
		return "It changed in the meantime, please try again."
	default:
		return fmt.Sprintf("Error: %s", escape(err.Error()))
	}
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

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	return b.sendText(chatID, "🔹 Main menu")
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

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
