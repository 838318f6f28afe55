package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"seeding/internal/lifecycle"
	"seeding/internal/model"
	"seeding/internal/repository"
	"seeding/internal/service"
)

func (b *Bot) handleListCommitments(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendCommitmentList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendCommitmentList(ctx context.Context, chatID int64, user *model.User) error {
	b.refresh(ctx, user)
	views, err := b.svc.Commitments.ListActive(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load commitments: %s", escape(err.Error())))
	}
	if len(views) == 0 {
		return b.sendText(chatID, "🤝 No open commitments. Nice!")
	}

	now := b.clock.Now()
	var builder strings.Builder
	builder.WriteString("🤝 <b>Commitments</b>\n")
	builder.WriteString("Tap a button once you've kept it.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, view := range views {
		builder.WriteString(service.FormatCommitment(view, now))
		ref := repository.ShortRef(view.Commitment.ID)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %s · %s", ref, shortTitle(view.Commitment.Title, 24)), cbFulfillPrefix+view.Commitment.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) fulfillAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, ref string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	view, err := b.svc.Commitments.Fulfill(ctx, user, ref)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}

	text := fmt.Sprintf("🌱 Commitment «%s» kept.", escape(normalizeTitle(view.Commitment.Title)))
	if view.Obligation.ResolvedAt != nil && view.Obligation.ResolvedAt.After(view.Obligation.Deadline) {
		text += " Late, but it counts."
	}
	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	return b.sendCommitmentList(ctx, chatID, user)
}

func (b *Bot) handleListGoals(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendGoalList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendGoalList(ctx context.Context, chatID int64, user *model.User) error {
	b.refresh(ctx, user)
	views, err := b.svc.Goals.ListOpen(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load goals: %s", escape(err.Error())))
	}
	if len(views) == 0 {
		return b.sendText(chatID, "🎯 No open goals. Set one with /newgoal.")
	}

	layout := b.settings.Snapshot().DateLayout()
	loc := b.clock.Now().Location()
	var builder strings.Builder
	builder.WriteString("🎯 <b>Goals</b>\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, view := range views {
		builder.WriteString(service.FormatGoal(view, layout, loc))
		ref := repository.ShortRef(view.Goal.ID)
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %s · %s", ref, shortTitle(view.Goal.Title, 20)), cbCompletePrefix+view.Goal.ID),
			tgbotapi.NewInlineKeyboardButtonData("🏳 Abandon", cbAbandonPrefix+view.Goal.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) completeAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, ref string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	view, err := b.svc.Goals.Complete(ctx, user, ref)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}

	title := escape(normalizeTitle(view.Goal.Title))
	text := fmt.Sprintf("🏆 Goal «%s» completed on time!", title)
	if view.Obligation.Status == lifecycle.StatusOverdueCompleted {
		text = fmt.Sprintf("✅ Goal «%s» completed, a bit after the deadline.", title)
	}
	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	return b.sendGoalList(ctx, chatID, user)
}

func (b *Bot) abandonAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, ref string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	view, err := b.svc.Goals.Abandon(ctx, user, ref)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}

	text := fmt.Sprintf("🏳 Goal «%s» abandoned. /restore %s brings it back.", escape(normalizeTitle(view.Goal.Title)), repository.ShortRef(view.Goal.ID))
	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	return b.sendGoalList(ctx, chatID, user)
}

func (b *Bot) handleRestore(ctx context.Context, msg *tgbotapi.Message) error {
	ref := strings.TrimSpace(msg.CommandArguments())
	if ref != "" {
		return b.restoreAndRefresh(ctx, msg.Chat.ID, msg.From, ref)
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	views, err := b.svc.Goals.ListAbandoned(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	if len(views) == 0 {
		return b.sendText(msg.Chat.ID, "No abandoned goals.")
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, view := range views {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("↩️ %s", shortTitle(view.Goal.Title, 28)), cbRestorePrefix+view.Goal.ID),
		))
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, "🏳 <b>Abandoned goals</b>\nTap one to bring it back.")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) restoreAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, ref string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	view, err := b.svc.Goals.Restore(ctx, user, ref)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}
	if err := b.sendText(chatID, fmt.Sprintf("↩️ Goal «%s» is back in progress.", escape(normalizeTitle(view.Goal.Title)))); err != nil {
		return err
	}
	return b.sendGoalList(ctx, chatID, user)
}

func (b *Bot) handleDeadline(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /deadline 1a2b3c4d 2025-12-31")
	}

	deadline, err := parseDeadline(args[1], b.clock.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, "I can't read that date. Use <code>2025-11-30</code> or <code>10d</code>.")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	view, err := b.svc.Goals.Reschedule(ctx, user, args[0], deadline)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}

	layout := b.settings.Snapshot().DateLayout()
	return b.sendText(msg.Chat.ID, fmt.Sprintf("⏰ «%s» is now due %s.", escape(normalizeTitle(view.Goal.Title)), view.Goal.Deadline.In(b.clock.Now().Location()).Format(layout)))
}

func (b *Bot) handleSeeds(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	tally, err := b.svc.Actions.SeedTally(ctx, user, service.TallyPeriod)
	if err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	return b.sendText(msg.Chat.ID, formatSeeds(tally))
}

func (b *Bot) handleInterval(msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		current := b.settings.Snapshot().ReportInterval
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Summaries are sent every %d hours. Change it with e.g. /interval 4", int(current.Hours())))
	}
	hours, err := strconv.Atoi(args)
	if err != nil || hours <= 0 {
		return b.sendText(msg.Chat.ID, "The interval must be a positive number of hours, e.g. /interval 6")
	}
	if err := b.settings.SetReportInterval(time.Duration(hours) * time.Hour); err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	b.log.Info("report interval changed", zap.Int64("by", msg.From.ID), zap.Int("hours", hours))
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Summaries will now arrive every %d hours.", hours))
}

func (b *Bot) handleLanguage(msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Current language: %s. Change it with e.g. /language ru", b.settings.Snapshot().Language))
	}
	tag, err := b.settings.SetLanguage(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Supported languages: en, ru, de.")
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Language set to %s. Dates now look like %s.", tag, b.clock.Now().Format(b.settings.Snapshot().DateLayout())))
}

// refresh applies due transitions for the user before showing a list.
func (b *Bot) refresh(ctx context.Context, user *model.User) {
	if b.svc.Reconcile == nil {
		return
	}
	if _, err := b.svc.Reconcile.SweepUser(ctx, user.ID); err != nil {
		b.log.Warn("reconcile before listing", zap.Uint("user", user.ID), zap.Error(err))
	}
}
