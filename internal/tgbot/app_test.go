package tgbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-registration/internal/auth"
	"event-registration/internal/models"
	"event-registration/internal/review"
)

type sentRequest struct {
	method      string
	chatID      string
	text        string
	replyMarkup string
}

// fakeTelegram records what the bot sends and answers like the Bot API.
type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentRequest
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")

	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Reg","username":"reg_bot"}}`))
		return
	case "answerCallbackQuery":
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentRequest{
		method:      method,
		chatID:      r.PostForm.Get("chat_id"),
		text:        r.PostForm.Get("text"),
		replyMarkup: r.PostForm.Get("reply_markup"),
	})
}

func (f *fakeTelegram) messages() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentRequest
	for _, s := range f.sent {
		if s.method == "sendMessage" {
			out = append(out, s)
		}
	}
	return out
}

type call struct {
	action   string
	regNo    string
	operator string
}

type fakeReviewer struct {
	calls   []call
	pending []review.Entry
	status  map[string]models.Status
}

func (f *fakeReviewer) record(ctx context.Context, action, regNo string) error {
	s := auth.FromContext(ctx)
	if !s.Authenticated {
		return review.ErrUnauthorized
	}
	f.calls = append(f.calls, call{action: action, regNo: regNo, operator: s.Username})
	if _, ok := f.status[regNo]; !ok {
		return review.ErrNotFound
	}
	return nil
}

func (f *fakeReviewer) Approve(ctx context.Context, regNo string) error {
	return f.record(ctx, "approve", regNo)
}

func (f *fakeReviewer) Reject(ctx context.Context, regNo string) error {
	return f.record(ctx, "reject", regNo)
}

func (f *fakeReviewer) Status(_ context.Context, regNo string) (models.Status, bool, error) {
	st, ok := f.status[regNo]
	return st, ok, nil
}

func (f *fakeReviewer) Pending(ctx context.Context) ([]review.Entry, error) {
	if !auth.Authenticated(ctx) {
		return nil, review.ErrUnauthorized
	}
	return f.pending, nil
}

const adminID, userID int64 = 100, 200

func newTestApp(t *testing.T, reviews *fakeReviewer) (*App, *fakeTelegram) {
	t.Helper()
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	app, err := NewWithEndpoint("TOKEN", srv.URL+"/bot%s/%s", map[int64]bool{adminID: true}, reviews, nil)
	require.NoError(t, err)
	return app, fake
}

// message builds an update the way Telegram sends it, with a bot_command
// entity covering a leading /word.
func message(from int64, text string) tgbotapi.Update {
	m := &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: from},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		word, _, _ := strings.Cut(text, " ")
		m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(word)}}
	}
	return tgbotapi.Update{Message: m}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: from},
		Data: data,
	}}
}

func TestSubmitted_NotifiesAdminsOnlyForReview(t *testing.T) {
	app, fake := newTestApp(t, &fakeReviewer{})
	p := models.Participant{Name: "Asha", College: "MIT", RegNo: "R3", Event: "Fest", Competition: models.Dance}

	app.Submitted(context.Background(), p, models.StatusApproved)
	assert.Empty(t, fake.messages())

	app.Submitted(context.Background(), p, models.StatusNeedsReview)
	msgs := fake.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "100", msgs[0].chatID)
	assert.Contains(t, msgs[0].text, "Registration Under Review")
	assert.Contains(t, msgs[0].text, "Reg no: R3")
	assert.Contains(t, msgs[0].replyMarkup, `"callback_data":"a:approve:R3"`)
	assert.Contains(t, msgs[0].replyMarkup, `"callback_data":"a:reject:R3"`)
}

func TestReviewKeyboard_LongRegNo(t *testing.T) {
	_, ok := reviewKeyboard(strings.Repeat("x", 60))
	assert.False(t, ok)
	_, ok = reviewKeyboard("R3")
	assert.True(t, ok)
}

func TestCallback_AdminApprovesAndRejects(t *testing.T) {
	reviews := &fakeReviewer{status: map[string]models.Status{"R3": models.StatusNeedsReview, "R5": models.StatusNeedsReview}}
	app, fake := newTestApp(t, reviews)
	ctx := context.Background()

	app.handleUpdate(ctx, callback(adminID, "a:approve:R3"))
	app.handleUpdate(ctx, callback(adminID, "a:reject:R5"))

	assert.Equal(t, []call{
		{action: "approve", regNo: "R3", operator: "tg:100"},
		{action: "reject", regNo: "R5", operator: "tg:100"},
	}, reviews.calls)
	msgs := fake.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "R3: Registration Approved", msgs[0].text)
	assert.Equal(t, "R5: Registration Rejected", msgs[1].text)
}

func TestCallback_NonAdminDenied(t *testing.T) {
	reviews := &fakeReviewer{status: map[string]models.Status{"R3": models.StatusNeedsReview}}
	app, fake := newTestApp(t, reviews)

	app.handleUpdate(context.Background(), callback(userID, "a:approve:R3"))

	assert.Empty(t, reviews.calls)
	msgs := fake.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Access denied.", msgs[0].text)
}

func TestCallback_UnknownRegNo(t *testing.T) {
	reviews := &fakeReviewer{status: map[string]models.Status{}}
	app, fake := newTestApp(t, reviews)

	app.handleUpdate(context.Background(), callback(adminID, "a:reject:GHOST"))

	msgs := fake.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "No registration found for GHOST", msgs[0].text)
}

func TestStatusCommand(t *testing.T) {
	reviews := &fakeReviewer{status: map[string]models.Status{"R1": models.StatusApproved}}
	app, fake := newTestApp(t, reviews)
	ctx := context.Background()

	app.handleUpdate(ctx, message(userID, "/status R1"))
	app.handleUpdate(ctx, message(userID, "/status R9"))
	app.handleUpdate(ctx, message(userID, "/status"))

	msgs := fake.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "R1: Registration Approved", msgs[0].text)
	assert.Equal(t, "No registration found for R9", msgs[1].text)
	assert.Equal(t, "Usage: /status <reg no>", msgs[2].text)
}

func TestPendingCommand(t *testing.T) {
	reviews := &fakeReviewer{pending: []review.Entry{
		{Participant: models.Participant{Name: "Asha", RegNo: "R3", Competition: models.Dance}, Status: models.StatusNeedsReview},
	}}
	app, fake := newTestApp(t, reviews)
	ctx := context.Background()

	app.handleUpdate(ctx, message(userID, "/pending"))
	app.handleUpdate(ctx, message(adminID, "/pending"))

	msgs := fake.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Access denied.", msgs[0].text)
	assert.Contains(t, msgs[1].text, "Reg no: R3")

	reviews.pending = nil
	app.handleUpdate(ctx, message(adminID, "/pending"))
	msgs = fake.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Nothing is waiting for review.", msgs[2].text)
}

func TestCommands_MatchExactly(t *testing.T) {
	reviews := &fakeReviewer{status: map[string]models.Status{"R1": models.StatusApproved}}
	app, fake := newTestApp(t, reviews)
	ctx := context.Background()

	app.handleUpdate(ctx, message(userID, "/statusfoo R1"))
	app.handleUpdate(ctx, message(adminID, "/pendingall"))
	app.handleUpdate(ctx, message(userID, "/status@reg_bot R1"))
	app.handleUpdate(ctx, message(userID, "status R1"))

	msgs := fake.messages()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[0].text, "Send /status <reg no>")
	assert.Contains(t, msgs[1].text, "/pending lists entries")
	assert.Equal(t, "R1: Registration Approved", msgs[2].text)
	assert.Contains(t, msgs[3].text, "Send /status <reg no>")
}
