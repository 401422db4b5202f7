package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/challenge"
	"github.com/raine/telegram-carbon-bot/internal/llm"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAdminID int64 = 1000

// testNow is a Sunday evening.
var testNow = time.Date(2026, 10, 18, 19, 0, 0, 0, time.Local)

type botApiMock struct {
	mock.Mock
}

func (m *botApiMock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *botApiMock) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *botApiMock) GetFileDirectURL(fileID string) (string, error) {
	args := m.Called(fileID)
	return args.Get(0).(string), args.Error(1)
}

// mockReceiptAnalyzer implements llm.ReceiptAnalyzer for testing
type mockReceiptAnalyzer struct {
	mock.Mock
}

func (m *mockReceiptAnalyzer) AnalyzeReceipt(ctx context.Context, images [][]byte) (*llm.ReceiptAnalysis, error) {
	args := m.Called(ctx, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ReceiptAnalysis), args.Error(1)
}

type testEnv struct {
	userId   int64
	tg       *botApiMock
	analyzer *mockReceiptAnalyzer
	store    *storage.SQLiteStore
	bot      *Bot
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)

	userId := int64(1)
	require.NoError(t, store.AddAllowedUser(userId, testAdminID))

	tg := new(botApiMock)
	// Typing indicators, callback answers and keyboard edits
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil).Maybe()

	analyzer := new(mockReceiptAnalyzer)
	bot := NewBot(tg, store, analyzer, challenge.DefaultCatalog(), testAdminID)
	bot.setClock(func() time.Time { return testNow })

	t.Cleanup(func() {
		bot.Shutdown()
		store.Close()
	})

	return &testEnv{userId: userId, tg: tg, analyzer: analyzer, store: store, bot: bot}
}

func makeUpdateWithMessageText(userId int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{
				ID:        userId,
				FirstName: "Alice",
			},
			Text: text,
		},
	}
}

func makeCallbackUpdate(userId int64, data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: userId, FirstName: "Alice"},
			Data: data,
			Message: &tgbotapi.Message{
				MessageID: messageID,
				Chat:      &tgbotapi.Chat{ID: userId},
			},
		},
	}
}

func makeMessage(userId int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(userId, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func textContains(parts ...string) any {
	return mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		for _, p := range parts {
			if !strings.Contains(msg.Text, p) {
				return false
			}
		}
		return true
	})
}

func (e *testEnv) send(text string) {
	e.bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(e.userId, text))
}

func TestHandleUpdate_Start(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", makeMessage(env.userId, formatReplyText(MsgStartWelcome))).Return(tgbotapi.Message{}, nil).Once()

	env.send("/start")
	env.tg.AssertExpectations(t)

	u, err := env.store.GetUser(env.userId)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Alice", u.DisplayName)
}

func TestHandleUpdate_UnknownUserIsDropped(t *testing.T) {
	env := setup(t)

	env.bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(555, "/start"))

	env.tg.AssertNotCalled(t, "Send", mock.Anything)
	assert.Equal(t, 0, env.bot.state.sessionCount())
}

func TestHandleUpdate_OpenRegistration(t *testing.T) {
	env := setup(t)
	env.bot.SetOpenRegistration(true)

	env.tg.On("Send", makeMessage(555, formatReplyText(MsgVersionInfo, Version, BuildTime))).Return(tgbotapi.Message{}, nil).Once()

	env.bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(555, "/version"))
	env.tg.AssertExpectations(t)
}

func TestHandleUpdate_UnknownCommand(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", makeMessage(env.userId, MsgUnknownCommand)).Return(tgbotapi.Message{}, nil).Once()

	env.send("hello there")
	env.tg.AssertExpectations(t)
}

func TestLogAndUndo(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", makeMessage(env.userId, "📝 Logged 0.5 × beef: *13.5 kg* CO₂e (Food - Meat)")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/log beef 0.5")

	entries, err := env.store.GetUserEntries(env.userId, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.SourceManual, entries[0].Source)
	assert.Equal(t, 13.5, entries[0].CarbonKg)
	assert.Equal(t, "2026-10-18", entries[0].Date)

	env.tg.On("Send", makeMessage(env.userId, "↩️ Removed beef (13.5 kg CO₂e).")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/undo")

	env.tg.On("Send", makeMessage(env.userId, MsgJournalEmpty)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/undo")

	env.tg.AssertExpectations(t)
}

func TestLog_Usage(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", makeMessage(env.userId, MsgLogUsage)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/log")
	env.tg.AssertExpectations(t)
}

func TestParseLogArgs(t *testing.T) {
	tests := []struct {
		args     string
		wantName string
		wantQty  *float64
	}{
		{"", "", nil},
		{"beef", "beef", nil},
		{"ground beef 0.5", "ground beef", ptr(0.5)},
		{"milk 1,5", "milk", ptr(1.5)},
		{"7up", "7up", nil},
		{"eggs 0", "eggs 0", nil},
		{"rice -2", "rice -2", nil},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			name, qty := parseLogArgs(tt.args)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantQty, qty)
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestHistory(t *testing.T) {
	env := setup(t)
	_, err := env.store.AddCarbonEntries(env.userId, testNow, storage.SourceManual, []carbon.AnalyzedItem{
		{Name: "Oat_milk", CarbonKg: 0.9, Category: carbon.CategoryDairy},
	})
	require.NoError(t, err)

	env.tg.On("Send", textContains(MsgHistoryHeader, "🧀 Oat\\_milk, *0.9 kg*")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/history")
	env.tg.AssertExpectations(t)
}

func makePhotoServer(t *testing.T) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg:" + r.URL.Path))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func makePhotoUpdate(userId int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 5,
			From:      &tgbotapi.User{ID: userId, FirstName: "Alice"},
			Photo: []tgbotapi.PhotoSize{
				{FileID: fileID + "-small", Width: 90, Height: 120},
				{FileID: fileID, Width: 900, Height: 1200},
			},
		},
	}
}

func TestReceiptFlow_Save(t *testing.T) {
	env := setup(t)
	ts := makePhotoServer(t)

	env.tg.On("GetFileDirectURL", "receipt-1").Return(ts.URL+"/receipt-1.jpg", nil).Once()
	env.analyzer.On("AnalyzeReceipt", mock.Anything, [][]byte{[]byte("jpeg:/receipt-1.jpg")}).
		Return(&llm.ReceiptAnalysis{Items: carbon.Inputs(carbon.DemoReceipts()[0])}, nil).Once()

	env.tg.On("Send", makeMessage(env.userId, MsgAnalyzingReceipt)).Return(tgbotapi.Message{}, nil).Once()
	env.tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return strings.Contains(msg.Text, "5 items") &&
			strings.Contains(msg.Text, "🥩 Ground Beef 500g: 13.5 kg") &&
			strings.Contains(msg.Text, "*Total: 19.02 kg CO₂e*") &&
			strings.Contains(msg.Text, "91 km by car") &&
			strings.Contains(msg.Text, "Beef has the highest") &&
			msg.ReplyMarkup != nil
	})).Return(tgbotapi.Message{MessageID: 77}, nil).Once()

	env.bot.handleUpdateSync(context.Background(), makePhotoUpdate(env.userId, "receipt-1"))

	env.tg.On("Send", makeMessage(env.userId, "✅ Saved 5 items (19.02 kg CO₂e) to your journal.")).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeCallbackUpdate(env.userId, "receipt:save", 77))

	env.tg.AssertExpectations(t)
	env.analyzer.AssertExpectations(t)

	entries, err := env.store.GetUserEntries(env.userId, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, storage.SourceReceipt, e.Source)
	}

	// Saving twice is not possible
	env.tg.On("Send", makeMessage(env.userId, MsgNoPendingReceipt)).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeCallbackUpdate(env.userId, "receipt:save", 77))
	env.tg.AssertExpectations(t)
}

func TestReceiptFlow_Discard(t *testing.T) {
	env := setup(t)
	ts := makePhotoServer(t)

	env.tg.On("GetFileDirectURL", "receipt-2").Return(ts.URL+"/receipt-2.jpg", nil).Once()
	env.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).
		Return(&llm.ReceiptAnalysis{Items: carbon.Inputs(carbon.DemoReceipts()[1]), Demo: true}, nil).Once()

	env.tg.On("Send", makeMessage(env.userId, MsgAnalyzingReceipt)).Return(tgbotapi.Message{}, nil).Once()
	env.tg.On("Send", textContains("*Total: 11.6 kg CO₂e*", MsgDemoNote)).Return(tgbotapi.Message{MessageID: 80}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makePhotoUpdate(env.userId, "receipt-2"))

	env.tg.On("Send", makeMessage(env.userId, MsgReceiptDiscarded)).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeCallbackUpdate(env.userId, "receipt:discard", 80))

	env.tg.AssertExpectations(t)

	entries, err := env.store.GetUserEntries(env.userId, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReceiptFlow_NoItems(t *testing.T) {
	env := setup(t)
	ts := makePhotoServer(t)

	env.tg.On("GetFileDirectURL", "blurry").Return(ts.URL+"/blurry.jpg", nil).Once()
	env.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).Return(nil, llm.ErrNoItems).Once()

	env.tg.On("Send", makeMessage(env.userId, MsgAnalyzingReceipt)).Return(tgbotapi.Message{}, nil).Once()
	env.tg.On("Send", makeMessage(env.userId, MsgNoItemsFound)).Return(tgbotapi.Message{}, nil).Once()

	env.bot.handleUpdateSync(context.Background(), makePhotoUpdate(env.userId, "blurry"))
	env.tg.AssertExpectations(t)
}

func TestReceiptFlow_AnalysisErrorIsEscaped(t *testing.T) {
	env := setup(t)
	ts := makePhotoServer(t)

	env.tg.On("GetFileDirectURL", "garbled").Return(ts.URL+"/garbled.jpg", nil).Once()
	env.analyzer.On("AnalyzeReceipt", mock.Anything, mock.Anything).
		Return(nil, errors.New(`failed to parse response JSON: {"name": "ice_cream", "carbonKg": *}`)).Once()

	env.tg.On("Send", makeMessage(env.userId, MsgAnalyzingReceipt)).Return(tgbotapi.Message{}, nil).Once()
	env.tg.On("Send", makeMessage(env.userId,
		`Analysis failed: failed to parse response JSON: {"name": "ice\_cream", "carbonKg": \*}`,
	)).Return(tgbotapi.Message{}, nil).Once()

	env.bot.handleUpdateSync(context.Background(), makePhotoUpdate(env.userId, "garbled"))
	env.tg.AssertExpectations(t)
}

func TestCancel(t *testing.T) {
	env := setup(t)

	msg := makeMessage(env.userId, MsgOk)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	env.tg.On("Send", msg).Return(tgbotapi.Message{}, nil).Once()

	env.send("/cancel")
	env.tg.AssertExpectations(t)
}

func TestChallengeFlow(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", textContains("Joined *Meatless Week*")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/join meatless-week")

	env.tg.On("Send", textContains("already joined *Meatless Week*")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/join meatless-week")

	env.tg.On("Send", textContains("*Meatless Week*: 1/7 days", "▓░░░░░░░░░", "Carbon saved: *2.16 kg*")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/checkin meatless-week")

	env.tg.On("Send", textContains("already checked in to *Meatless Week* today")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/checkin meatless-week")

	env.tg.On("Send", textContains("⏳ *Meatless Week* 1/7")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/mychallenges")

	env.tg.On("Send", textContains("1. Alice: 2.16 kg saved, 0 challenges", "You are #1 with 2.16 kg saved.")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/leaderboard")

	env.tg.AssertExpectations(t)

	// The check-in counts towards the streak but stays out of the journal
	days, err := env.store.GetActiveDays(env.userId, testNow.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, []string{testNow.Format(storage.DateFormat)}, days)

	entries, err := env.store.GetUserEntries(env.userId, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	env.tg.On("Send", makeMessage(env.userId, MsgJournalEmpty)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/undo")
	env.tg.AssertExpectations(t)
}

func TestChallenge_Errors(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", makeMessage(env.userId, MsgChallengeJoinUsage)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/join")

	env.tg.On("Send", makeMessage(env.userId, "Unknown challenge `moon-walk`. See /challenges.")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/join moon-walk")

	env.tg.On("Send", textContains("You have not joined *Local Food Month*")).Return(tgbotapi.Message{}, nil).Once()
	env.send("/checkin local-food-month")

	env.tg.On("Send", makeMessage(env.userId, MsgNoChallenges)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/mychallenges")

	env.tg.AssertExpectations(t)
}

func TestChallenge_ListAndJoinButton(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		return ok &&
			len(markup.InlineKeyboard) == 4 &&
			*markup.InlineKeyboard[0][0].CallbackData == "challenge:join:meatless-week" &&
			strings.Contains(msg.Text, "🟢 *Public Transport Hero*") &&
			strings.Contains(msg.Text, "Easy 10 trips")
	})).Return(tgbotapi.Message{}, nil).Once()
	env.send("/challenges")

	env.tg.On("Send", textContains("Joined *Zero Waste Weekend*")).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeCallbackUpdate(env.userId, "challenge:join:zero-waste-weekend", 12))

	env.tg.AssertExpectations(t)
}

func TestStats(t *testing.T) {
	env := setup(t)

	env.tg.On("Send", makeMessage(env.userId, MsgJournalEmpty)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/stats")

	receipt := carbon.Analyze(carbon.Inputs(carbon.DemoReceipts()[0]))
	_, err := env.store.AddCarbonEntries(env.userId, testNow, storage.SourceReceipt, receipt.Items)
	require.NoError(t, err)
	_, err = env.store.AddCarbonEntries(env.userId, testNow.AddDate(0, 0, -1), storage.SourceManual, []carbon.AnalyzedItem{
		{Name: "Bus", CarbonKg: 0.98, Category: carbon.CategoryTransport},
	})
	require.NoError(t, err)

	env.tg.On("Send", textContains(
		"This week: *20 kg* (6 entries)",
		"All time: *20 kg*",
		"🥩 Food - Meat: 13.5 kg",
		"87% below the global average of 150 kg",
		"Streak: 2 days",
	)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/stats")

	env.tg.AssertExpectations(t)
}

func TestAdminUsers(t *testing.T) {
	env := setup(t)
	admin := testAdminID

	env.tg.On("Send", makeMessage(admin, "✅ User `555` added.")).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(admin, "/admin users add 555"))

	allowed, err := env.store.IsUserAllowed(555)
	require.NoError(t, err)
	assert.True(t, allowed)

	env.tg.On("Send", textContains(MsgAdminAllowedUsers, "`1`", "`555`")).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(admin, "/admin users list"))

	env.tg.On("Send", makeMessage(admin, MsgAdminUserInvalidID)).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(admin, "/admin users remove abc"))

	env.tg.On("Send", makeMessage(admin, MsgAdminUsage)).Return(tgbotapi.Message{}, nil).Once()
	env.bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(admin, "/admin"))

	// Regular users cannot use admin commands
	env.tg.On("Send", makeMessage(env.userId, MsgUnknownCommand)).Return(tgbotapi.Message{}, nil).Once()
	env.send("/admin users add 777")

	env.tg.AssertExpectations(t)
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/join@CarbonBot  meatless-week ")
	assert.Equal(t, "/join", cmd)
	assert.Equal(t, []string{"meatless-week"}, args)

	cmd, args = parseCommand("")
	assert.Equal(t, "", cmd)
	assert.Empty(t, args)
}
