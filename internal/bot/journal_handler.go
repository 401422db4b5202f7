package bot

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

const historyLimit = 10

// JournalHandler handles manual carbon journal commands.
type JournalHandler struct {
	store *storage.SQLiteStore
	now   func() time.Time
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(store *storage.SQLiteStore) *JournalHandler {
	return &JournalHandler{store: store, now: time.Now}
}

// parseLogArgs splits "/log" arguments into an item name and an optional
// trailing quantity. A trailing number that is not positive is kept as part
// of the name.
func parseLogArgs(args string) (string, *float64) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", nil
	}
	if len(fields) > 1 {
		last := strings.Replace(fields[len(fields)-1], ",", ".", 1)
		if qty, err := strconv.ParseFloat(last, 64); err == nil && qty > 0 {
			return strings.Join(fields[:len(fields)-1], " "), &qty
		}
	}
	return strings.Join(fields, " "), nil
}

// HandleLog handles the /log command.
func (h *JournalHandler) HandleLog(session *UserSession, args string) {
	name, qty := parseLogArgs(args)
	if name == "" {
		session.reply(MsgLogUsage)
		return
	}

	result := carbon.Analyze([]carbon.ItemInput{{Name: name, Quantity: qty}})
	if _, err := h.store.AddCarbonEntries(session.userId, h.now(), storage.SourceManual, result.Items); err != nil {
		session.replyWithError(err)
		return
	}

	item := result.Items[0]
	quantity := "1 ×"
	if qty != nil {
		quantity = humanize.FtoaWithDigits(*qty, 2) + " ×"
	}
	log.Info().Int64("userId", session.userId).Str("item", item.Name).Float64("kg", item.CarbonKg).Msg("logged manual entry")
	session.reply(MsgLogged, quantity, escapeMarkdown(item.Name), formatKg(item.CarbonKg), item.Category)
}

// HandleUndo handles the /undo command.
func (h *JournalHandler) HandleUndo(session *UserSession) {
	entry, err := h.store.DeleteLastEntry(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if entry == nil {
		session.reply(MsgJournalEmpty)
		return
	}
	session.reply(MsgUndoDone, escapeMarkdown(entry.ItemName), formatKg(entry.CarbonKg))
}

// HandleHistory handles the /history command.
func (h *JournalHandler) HandleHistory(session *UserSession) {
	entries, err := h.store.GetUserEntries(session.userId, historyLimit)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(entries) == 0 {
		session.reply(MsgJournalEmpty)
		return
	}

	var sb strings.Builder
	sb.WriteString(MsgHistoryHeader)
	for _, e := range entries {
		sb.WriteString("\n")
		sb.WriteString(formatReplyText(MsgHistoryItem,
			emojiFor(e.Category),
			escapeMarkdown(e.ItemName),
			formatKg(e.CarbonKg),
			humanize.RelTime(e.CreatedAt, h.now(), "ago", "from now"),
		))
	}
	session.reply(strings.ReplaceAll(sb.String(), "%", "%%"))
}
