// Package tgbot is an optional Telegram front for the review queue. Admins
// listed in configuration are pinged when an entry needs review and can
// approve or reject it from the chat; anyone can look up a status.
package tgbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"event-registration/internal/auth"
	"event-registration/internal/models"
	"event-registration/internal/review"
	"event-registration/internal/util"
)

// Telegram refuses callback data longer than this.
const maxCallbackData = 64

const maxPendingListed = 20

// Reviewer is the part of the review service the bot drives.
type Reviewer interface {
	Approve(ctx context.Context, regNo string) error
	Reject(ctx context.Context, regNo string) error
	Status(ctx context.Context, regNo string) (models.Status, bool, error)
	Pending(ctx context.Context) ([]review.Entry, error)
}

type App struct {
	bot     *tgbotapi.BotAPI
	admins  map[int64]bool
	reviews Reviewer
	logger  *slog.Logger
}

func New(token string, admins map[int64]bool, reviews Reviewer, logger *slog.Logger) (*App, error) {
	b, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newApp(b, admins, reviews, logger), nil
}

// NewWithEndpoint talks to a Bot API server other than Telegram's. endpoint
// is a format string such as "http://host/bot%s/%s".
func NewWithEndpoint(token, endpoint string, admins map[int64]bool, reviews Reviewer, logger *slog.Logger) (*App, error) {
	b, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, err
	}
	return newApp(b, admins, reviews, logger), nil
}

func newApp(b *tgbotapi.BotAPI, admins map[int64]bool, reviews Reviewer, logger *slog.Logger) *App {
	b.Debug = false
	if logger == nil {
		logger = slog.Default()
	}
	if admins == nil {
		admins = map[int64]bool{}
	}
	return &App{
		bot:     b,
		admins:  admins,
		reviews: reviews,
		logger:  logger.With("component", "tgbot", "bot", b.Self.UserName),
	}
}

func (a *App) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := a.bot.GetUpdatesChan(u)
	defer a.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			a.handleUpdate(ctx, upd)
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		if err := a.handleMessage(ctx, upd.Message); err != nil {
			a.logger.Error("handle message", "error", err)
		}
	} else if upd.CallbackQuery != nil {
		if err := a.handleCallback(ctx, upd.CallbackQuery); err != nil {
			a.logger.Error("handle callback", "error", err)
		}
	}
}

func (a *App) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := a.bot.Send(msg)
	return err
}

func (a *App) isAdmin(tgID int64) bool {
	return a.admins[tgID]
}

// operatorContext marks ctx as acting for the admin with tgID.
func operatorContext(ctx context.Context, tgID int64) context.Context {
	return auth.WithSession(ctx, auth.Session{Authenticated: true, Username: "tg:" + strconv.FormatInt(tgID, 10)})
}

// ---------- Notifications ----------

// Submitted pings every admin about an entry that needs review.
func (a *App) Submitted(_ context.Context, p models.Participant, status models.Status) {
	if status != models.StatusNeedsReview {
		return
	}
	for id := range a.admins {
		if err := a.sendReviewCard(id, p, status); err != nil {
			a.logger.Warn("notify admin", "tg_id", id, "reg_no", p.RegNo, "error", err)
		}
	}
}

func (a *App) sendReviewCard(chatID int64, p models.Participant, status models.Status) error {
	text := fmt.Sprintf("🎤 %s\nName: %s\nCollege: %s\nReg no: %s\nEvent: %s\nCompetition: %s",
		status.Label(),
		util.Truncate(p.Name, 100),
		util.Truncate(p.College, 100),
		p.RegNo,
		util.Truncate(p.Event, 100),
		p.Competition,
	)
	msg := tgbotapi.NewMessage(chatID, text)
	if kb, ok := reviewKeyboard(p.RegNo); ok {
		msg.ReplyMarkup = kb
	} else {
		msg.Text += "\n\nReg no too long for buttons, use the web dashboard."
	}
	_, err := a.bot.Send(msg)
	return err
}

func reviewKeyboard(regNo string) (tgbotapi.InlineKeyboardMarkup, bool) {
	approve, reject := "a:approve:"+regNo, "a:reject:"+regNo
	if len(approve) > maxCallbackData || len(reject) > maxCallbackData {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", approve),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", reject),
		),
	), true
}

// ---------- Message handling ----------

func (a *App) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.From == nil {
		return nil
	}
	tgID := m.From.ID
	if !m.IsCommand() {
		return a.showHelp(m.Chat.ID, tgID)
	}
	arg := strings.TrimSpace(m.CommandArguments())

	switch m.Command() {
	case "status":
		return a.showStatus(ctx, m.Chat.ID, arg)
	case "pending":
		if !a.isAdmin(tgID) {
			return a.SendText(m.Chat.ID, "Access denied.")
		}
		return a.showPending(ctx, m.Chat.ID, tgID)
	default:
		return a.showHelp(m.Chat.ID, tgID)
	}
}

func (a *App) showHelp(chatID, tgID int64) error {
	text := "Send /status <reg no> to check a registration."
	if a.isAdmin(tgID) {
		text += "\n/pending lists entries waiting for review."
	}
	return a.SendText(chatID, text)
}

func (a *App) showStatus(ctx context.Context, chatID int64, regNo string) error {
	if regNo == "" {
		return a.SendText(chatID, "Usage: /status <reg no>")
	}
	status, found, err := a.reviews.Status(ctx, regNo)
	if err != nil {
		return err
	}
	if !found {
		return a.SendText(chatID, "No registration found for "+regNo)
	}
	return a.SendText(chatID, regNo+": "+status.Label())
}

func (a *App) showPending(ctx context.Context, chatID, tgID int64) error {
	entries, err := a.reviews.Pending(operatorContext(ctx, tgID))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return a.SendText(chatID, "Nothing is waiting for review.")
	}
	for i, e := range entries {
		if i == maxPendingListed {
			return a.SendText(chatID, fmt.Sprintf("…and %d more on the web dashboard.", len(entries)-i))
		}
		if err := a.sendReviewCard(chatID, e.Participant, e.Status); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Callback handling ----------

func (a *App) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	tgID := q.From.ID

	// ack
	cb := tgbotapi.NewCallback(q.ID, "")
	_, _ = a.bot.Request(cb)

	if !strings.HasPrefix(q.Data, "a:") {
		return nil
	}
	if !a.isAdmin(tgID) {
		return a.SendText(tgID, "Access denied.")
	}
	return a.handleAdminCallback(ctx, tgID, q.Data)
}

func (a *App) handleAdminCallback(ctx context.Context, tgID int64, data string) error {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return nil
	}
	action, regNo := parts[1], parts[2]
	ctx = operatorContext(ctx, tgID)

	var (
		err    error
		status models.Status
	)
	switch action {
	case "approve":
		status = models.StatusApproved
		err = a.reviews.Approve(ctx, regNo)
	case "reject":
		status = models.StatusRejected
		err = a.reviews.Reject(ctx, regNo)
	default:
		return nil
	}
	if errors.Is(err, review.ErrNotFound) {
		return a.SendText(tgID, "No registration found for "+regNo)
	}
	if err != nil {
		return err
	}
	return a.SendText(tgID, regNo+": "+status.Label())
}
