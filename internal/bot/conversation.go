package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"seeding/internal/model"
	"seeding/internal/repository"
	"seeding/internal/service"
)

func (b *Bot) startActionConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageActionTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "📝 What did you do? Describe it in a few words.", cancelKeyboard())
}

func (b *Bot) startGoalConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageGoalTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🎯 New goal.\n<b>Step 1:</b> what do you want to achieve?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageActionTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Please describe the action in words.", cancelKeyboard())
		}
		state.action.Title = text
		state.stage = stageActionPolarity
		return b.sendWithReplyMarkup(msg.Chat.ID, "Was it good or bad?", polarityKeyboard())
	case stageActionPolarity:
		polarity, err := model.ParsePolarity(polarityFromLabel(text))
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Tap «Good» or «Bad».", polarityKeyboard())
		}
		state.action.Polarity = polarity
		state.stage = stageActionSeed
		return b.sendWithReplyMarkup(msg.Chat.ID, "🌱 Which seed does it touch? (or «Skip»)", seedKeyboard())
	case stageActionSeed:
		seed, ok := b.readSeed(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the seeds or «Skip».", seedKeyboard())
		}
		state.action.Seed = seed
		if state.action.Polarity == model.PolarityPositive {
			err := b.finishAction(ctx, msg.From, state.action, msg.Chat.ID)
			b.clearConversation(msg.From.ID)
			return err
		}
		state.stage = stageActionRemedy
		return b.sendWithReplyMarkup(msg.Chat.ID, "🤝 What will you do to make it right? (or «Skip»)", skipKeyboard())
	case stageActionRemedy:
		if isSkipInput(text) {
			err := b.finishAction(ctx, msg.From, state.action, msg.Chat.ID)
			b.clearConversation(msg.From.ID)
			return err
		}
		state.action.Remedy = text
		state.stage = stageActionWindow
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏱ How long do you need? For example <code>15m</code>, <code>2h</code> or <code>1d</code> («Skip» for the default).", skipKeyboard())
	case stageActionWindow:
		if !isSkipInput(text) {
			window, err := parseWindow(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use something like <code>30m</code>, <code>3h</code> or <code>1d</code>.", skipKeyboard())
			}
			state.action.Window = window
		}
		err := b.finishAction(ctx, msg.From, state.action, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	case stageGoalTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Please name the goal.", cancelKeyboard())
		}
		state.goal.Title = text
		state.stage = stageGoalDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or «Skip»).", skipKeyboard())
	case stageGoalDescription:
		if !isSkipInput(text) {
			state.goal.Description = text
		}
		state.stage = stageGoalSeed
		return b.sendWithReplyMarkup(msg.Chat.ID, "🌱 Which seed does the goal grow? (or «Skip»)", seedKeyboard())
	case stageGoalSeed:
		seed, ok := b.readSeed(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the seeds or «Skip».", seedKeyboard())
		}
		state.goal.Seed = seed
		state.stage = stageGoalDeadline
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Deadline? A date like <code>2025-11-30</code> or a span like <code>2w</code>, <code>10d</code>.", cancelKeyboard())
	case stageGoalDeadline:
		deadline, err := parseDeadline(text, b.clock.Now())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I can't read that date. Use <code>2025-11-30</code> or <code>10d</code>.", cancelKeyboard())
		}
		state.goal.Deadline = deadline
		err = b.finishGoal(ctx, msg.From, state.goal, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "The dialog was reset. Start again with /log or /newgoal.")
	}
}

func (b *Bot) readSeed(text string) (model.Seed, bool) {
	if isSkipInput(text) {
		return "", true
	}
	seed, err := model.ParseSeed(seedFromLabel(text))
	if err != nil || seed == "" {
		return "", false
	}
	return seed, true
}

func (b *Bot) finishAction(ctx context.Context, from *tgbotapi.User, input service.ActionInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	action, commitment, err := b.svc.Actions.Log(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the action: %s", escape(err.Error())))
	}

	var summary strings.Builder
	if action.Polarity == model.PolarityPositive {
		summary.WriteString("🌱 <b>Good seed planted</b>\n")
	} else {
		summary.WriteString("🍂 <b>Noted</b>\n")
	}
	summary.WriteString(fmt.Sprintf("• %s\n", escape(normalizeTitle(action.Title))))
	if action.Seed != "" {
		summary.WriteString(fmt.Sprintf("• <b>Seed:</b> %s\n", action.Seed.Label()))
	}
	if commitment != nil {
		summary.WriteString(fmt.Sprintf("\n🤝 <b>Commitment</b> <code>%s</code>: %s\n", repository.ShortRef(commitment.ID), escape(commitment.Title)))
		summary.WriteString(fmt.Sprintf("⏰ Keep it within %s. Use /fulfill %s when done.", service.FormatDuration(commitment.Deadline.Sub(action.CreatedAt)), repository.ShortRef(commitment.ID)))
	}

	return b.sendText(chatID, strings.TrimSpace(summary.String()))
}

func (b *Bot) finishGoal(ctx context.Context, from *tgbotapi.User, input service.GoalInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	view, err := b.svc.Goals.Create(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}
	b.log.Debug("goal created from chat", zap.Uint("user", user.ID), zap.String("goal", view.Goal.ID))

	layout := b.settings.Snapshot().DateLayout()
	var summary strings.Builder
	summary.WriteString("✅ <b>Goal saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>\n", repository.ShortRef(view.Goal.ID)))
	summary.WriteString(fmt.Sprintf("• <b>Goal:</b> %s\n", escape(normalizeTitle(view.Goal.Title))))
	if view.Goal.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(view.Goal.Description)))
	}
	if view.Goal.Seed != "" {
		summary.WriteString(fmt.Sprintf("• <b>Seed:</b> %s\n", view.Goal.Seed.Label()))
	}
	summary.WriteString(fmt.Sprintf("• <b>Deadline:</b> %s\n", view.Goal.Deadline.In(b.clock.Now().Location()).Format(layout)))

	if err := b.sendText(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendGoalList(ctx, chatID, user)
}
