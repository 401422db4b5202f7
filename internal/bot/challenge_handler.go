package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/challenge"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	leaderboardLimit = 10
	progressBarWidth = 10
)

var difficultyEmoji = map[challenge.Difficulty]string{
	challenge.DifficultyEasy:   "🟢",
	challenge.DifficultyMedium: "🟡",
	challenge.DifficultyHard:   "🔴",
}

// ChallengeHandler handles challenge commands and callbacks.
type ChallengeHandler struct {
	store   *storage.SQLiteStore
	catalog *challenge.Catalog
	now     func() time.Time
}

// NewChallengeHandler creates a new ChallengeHandler.
func NewChallengeHandler(store *storage.SQLiteStore, catalog *challenge.Catalog) *ChallengeHandler {
	return &ChallengeHandler{store: store, catalog: catalog, now: time.Now}
}

func unitLabel(ch challenge.Challenge, n int) string {
	return pluralize(ch.Unit, ch.Unit+"s", n)
}

// HandleList handles the /challenges command.
func (h *ChallengeHandler) HandleList(session *UserSession) {
	var sb strings.Builder
	sb.WriteString(MsgChallengesHeader)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ch := range h.catalog.All() {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf(MsgChallengeItem,
			difficultyEmoji[ch.Difficulty],
			escapeMarkdown(ch.Title),
			ch.ID,
			escapeMarkdown(ch.Description),
			strings.ToUpper(string(ch.Difficulty[:1]))+string(ch.Difficulty[1:]),
			unitLabel(ch, ch.Total),
			formatKg(ch.CarbonSavePotential),
		))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf(BtnJoinChallenge, ch.Title), "challenge:join:"+ch.ID),
		))
	}

	msg := tgbotapi.NewMessage(session.userId, sb.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	session.replyWithMessage(msg)
}

// HandleCallback handles challenge:join:<id> buttons.
func (h *ChallengeHandler) HandleCallback(session *UserSession, query *tgbotapi.CallbackQuery) {
	id, ok := strings.CutPrefix(query.Data, "challenge:join:")
	if !ok {
		log.Warn().Str("data", query.Data).Msg("unknown challenge callback")
		return
	}
	h.HandleJoin(session, id)
}

// HandleJoin handles the /join command.
func (h *ChallengeHandler) HandleJoin(session *UserSession, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		session.reply(MsgChallengeJoinUsage)
		return
	}
	ch, err := h.catalog.Get(id)
	if err != nil {
		session.reply(MsgChallengeUnknown, escapeMarkdown(id))
		return
	}

	_, err = h.store.JoinChallenge(session.userId, ch.ID, h.now())
	if errors.Is(err, storage.ErrAlreadyJoined) {
		session.reply(MsgChallengeAlreadyIn, escapeMarkdown(ch.Title))
		return
	}
	if err != nil {
		session.replyWithError(err)
		return
	}

	log.Info().Int64("userId", session.userId).Str("challenge", ch.ID).Msg("joined challenge")
	session.reply(MsgChallengeJoined, escapeMarkdown(ch.Title), ch.ID)
}

// HandleCheckIn handles the /checkin command. A check-in also records a
// zero-emission journal entry so the day counts towards the streak.
func (h *ChallengeHandler) HandleCheckIn(session *UserSession, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		session.reply(MsgChallengeCheckinUsage)
		return
	}
	ch, err := h.catalog.Get(id)
	if err != nil {
		session.reply(MsgChallengeUnknown, escapeMarkdown(id))
		return
	}

	uc, err := h.store.GetUserChallenge(session.userId, ch.ID)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if uc == nil {
		session.reply(MsgChallengeNotJoined, escapeMarkdown(ch.Title), ch.ID)
		return
	}

	now := h.now()
	next, err := challenge.ApplyCheckIn(ch, challenge.Progress{
		Progress:    uc.Progress,
		CarbonSaved: uc.CarbonSaved,
		Completed:   uc.IsCompleted,
		LastCheckin: uc.LastCheckin,
	}, now)
	switch {
	case errors.Is(err, challenge.ErrAlreadyCheckedIn):
		session.reply(MsgChallengeAlreadyToday, escapeMarkdown(ch.Title))
		return
	case errors.Is(err, challenge.ErrCompleted):
		session.reply(MsgChallengeAlreadyDone, escapeMarkdown(ch.Title))
		return
	case err != nil:
		session.replyWithError(err)
		return
	}

	uc.Progress = next.Progress
	uc.CarbonSaved = next.CarbonSaved
	uc.IsCompleted = next.Completed
	uc.LastCheckin = next.LastCheckin
	if err := h.store.SaveChallengeProgress(uc); err != nil {
		session.replyWithError(err)
		return
	}

	category, ok := carbon.ParseCategory(ch.Category)
	if !ok {
		category = carbon.CategoryOther
	}
	checkin := carbon.AnalyzedItem{Name: "Check-in: " + ch.Title, CarbonKg: 0, Category: category}
	if _, err := h.store.AddCarbonEntries(session.userId, now, storage.SourceChallenge, []carbon.AnalyzedItem{checkin}); err != nil {
		log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to record check-in entry")
	}

	session.reply(MsgChallengeCheckedIn,
		escapeMarkdown(ch.Title),
		next.Progress, unitLabel(ch, ch.Total),
		challenge.ProgressBar(next.Progress, ch.Total, progressBarWidth),
		formatKg(next.CarbonSaved),
	)
	if next.Completed {
		session.reply(MsgChallengeCompleted, escapeMarkdown(ch.Title), formatKg(next.CarbonSaved))
	}
}

// HandleMyChallenges handles the /mychallenges command.
func (h *ChallengeHandler) HandleMyChallenges(session *UserSession) {
	joined, err := h.store.GetUserChallenges(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(joined) == 0 {
		session.reply(MsgNoChallenges)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgMyChallengesHeader)
	for _, uc := range joined {
		ch, err := h.catalog.Get(uc.ChallengeID)
		if err != nil {
			// Removed from the catalog after joining
			continue
		}
		status := "⏳"
		if uc.IsCompleted {
			status = "✅"
		}
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf(MsgMyChallengeItem,
			status,
			escapeMarkdown(ch.Title),
			uc.Progress, ch.Total,
			challenge.ProgressBar(uc.Progress, ch.Total, progressBarWidth),
			formatKg(uc.CarbonSaved),
		))
	}
	session.reply(strings.ReplaceAll(sb.String(), "%", "%%"))
}

// HandleLeaderboard handles the /leaderboard command.
func (h *ChallengeHandler) HandleLeaderboard(session *UserSession) {
	entries, err := h.store.Leaderboard(leaderboardLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(entries) == 0 {
		session.reply(MsgLeaderboardEmpty)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgLeaderboardHeader)
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(MsgLeaderboardItem,
			e.Rank,
			escapeMarkdown(e.DisplayName),
			formatKg(e.CarbonSaved),
			pluralize("challenge", "challenges", e.ChallengesCompleted),
		))
	}

	rank, err := h.store.GetUserRank(session.userId)
	if err != nil {
		log.Warn().Err(err).Int64("userId", session.userId).Msg("failed to get user rank")
	} else if rank != nil {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf(MsgLeaderboardYou, rank.Rank, formatKg(rank.CarbonSaved)))
	}
	session.reply(strings.ReplaceAll(sb.String(), "%", "%%"))
}
