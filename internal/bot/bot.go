package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/challenge"
	"github.com/raine/telegram-carbon-bot/internal/llm"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg               BotAPI
	state            BotState
	store            *storage.SQLiteStore
	adminID          int64
	openRegistration bool

	// Handlers
	receiptHandler   *ReceiptHandler
	journalHandler   *JournalHandler
	statsHandler     *StatsHandler
	challengeHandler *ChallengeHandler
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store *storage.SQLiteStore, analyzer llm.ReceiptAnalyzer, catalog *challenge.Catalog, adminID int64) *Bot {
	bot := &Bot{
		tg:      tg,
		store:   store,
		adminID: adminID,
	}

	bot.state = bot.NewBotState()
	bot.receiptHandler = NewReceiptHandler(tg, analyzer, store)
	bot.journalHandler = NewJournalHandler(store)
	bot.statsHandler = NewStatsHandler(store)
	bot.challengeHandler = NewChallengeHandler(store, catalog)

	return bot
}

// SetOpenRegistration lets any Telegram user use the bot without being on
// the allowed users list.
func (b *Bot) SetOpenRegistration(open bool) {
	b.openRegistration = open
}

// setClock replaces the time source of every handler.
func (b *Bot) setClock(now func() time.Time) {
	b.receiptHandler.now = now
	b.journalHandler.now = now
	b.statsHandler.now = now
	b.challengeHandler.now = now
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	if update.CallbackQuery != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if !b.isAllowed(userId) {
		return
	}

	session, err := b.state.getUserSession(userId)
	if err != nil {
		log.Error().Err(err).Send()
		return
	}

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          eventCallback,
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().Int64("userId", userId).Str("text", update.Message.Text).Int("photos", len(update.Message.Photo)).Msg("got message")

	if len(update.Message.Photo) > 0 {
		send(SessionMessage{
			Type:    eventPhoto,
			Ctx:     ctx,
			Message: update.Message,
		})
	} else {
		send(SessionMessage{
			Type:    eventText,
			Ctx:     ctx,
			Message: update.Message,
		})
	}
}

// isAllowed reports whether the user may talk to the bot. The admin is
// always allowed; whitelist errors fail closed.
func (b *Bot) isAllowed(userId int64) bool {
	if userId == b.adminID || b.openRegistration {
		return true
	}
	allowed, err := b.store.IsUserAllowed(userId)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userId).Msg("whitelist check failed")
		return false
	}
	return allowed
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case eventCallback:
		b.registerUser(session, msg.CallbackQuery.From)
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case eventPhoto:
		b.registerUser(session, msg.Message.From)
		b.receiptHandler.HandlePhoto(ctx, session, msg.Message)
	case eventText:
		b.registerUser(session, msg.Message.From)
		b.handleCommand(ctx, session, msg.Message)
	case eventAlbumTimeout:
		b.receiptHandler.ProcessAlbumTimeout(ctx, session, msg.AlbumBuffer)
	}
}

// registerUser stores the user's display name for the leaderboard the first
// time the session sees them.
func (b *Bot) registerUser(session *UserSession, from *tgbotapi.User) {
	if session.registered || from == nil {
		return
	}
	if err := b.store.UpsertUser(from.ID, displayName(from)); err != nil {
		log.Warn().Err(err).Int64("userId", from.ID).Msg("failed to register user")
		return
	}
	session.registered = true
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.UserName != "" {
		return u.UserName
	}
	return fmt.Sprintf("user %d", u.ID)
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	argsStr := strings.Join(args, " ")
	switch command {
	case "/start":
		session.reply(MsgStartWelcome)
	case "/help":
		session.reply(MsgHelp)
	case "/log":
		b.journalHandler.HandleLog(session, argsStr)
	case "/undo":
		b.journalHandler.HandleUndo(session)
	case "/history":
		b.journalHandler.HandleHistory(session)
	case "/stats":
		b.statsHandler.HandleStats(session)
	case "/challenges":
		b.challengeHandler.HandleList(session)
	case "/join":
		b.challengeHandler.HandleJoin(session, argsStr)
	case "/checkin":
		b.challengeHandler.HandleCheckIn(session, argsStr)
	case "/mychallenges":
		b.challengeHandler.HandleMyChallenges(session)
	case "/leaderboard":
		b.challengeHandler.HandleLeaderboard(session)
	case "/cancel":
		b.receiptHandler.HandleCancel(session)
	case "/admin":
		b.handleAdminCommand(session, argsStr)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgUnknownCommand)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback")
	}

	switch {
	case strings.HasPrefix(query.Data, "receipt:"):
		b.receiptHandler.HandleCallback(ctx, session, query)
	case strings.HasPrefix(query.Data, "challenge:"):
		b.challengeHandler.HandleCallback(session, query)
	default:
		log.Warn().Str("data", query.Data).Msg("unknown callback data")
	}
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command.
func (b *Bot) handleAdminCommand(session *UserSession, args string) {
	if session.userId != b.adminID {
		session.reply(MsgUnknownCommand)
		return
	}

	parts := strings.Fields(args)
	if len(parts) < 2 || parts[0] != "users" {
		session.reply(MsgAdminUsage)
		return
	}
	b.handleAdminUsersCommand(session, parts[1], parts[2:])
}

// handleAdminUsersCommand handles /admin users subcommands.
func (b *Bot) handleAdminUsersCommand(session *UserSession, action string, args []string) {
	switch action {
	case "add":
		if len(args) < 1 {
			session.reply(MsgAdminUserAddUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserAdded, userID)

	case "remove":
		if len(args) < 1 {
			session.reply(MsgAdminUserRemoveUsage)
			return
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format("2006-01-02")))
		}
		session.reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
