package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/llm"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	// albumBufferTimeout is how long to wait for more photos before processing an album
	albumBufferTimeout = 1500 * time.Millisecond
	// maxAlbumPhotos is the maximum number of photos to process in an album
	maxAlbumPhotos = 10
)

// ReceiptHandler turns receipt photos into carbon estimates and saves them
// once the user confirms.
type ReceiptHandler struct {
	tg       BotAPI
	analyzer llm.ReceiptAnalyzer
	store    *storage.SQLiteStore
	now      func() time.Time

	albumTimeout time.Duration
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(tg BotAPI, analyzer llm.ReceiptAnalyzer, store *storage.SQLiteStore) *ReceiptHandler {
	return &ReceiptHandler{
		tg:       tg,
		analyzer: analyzer,
		store:    store,
		now:      time.Now,

		albumTimeout: albumBufferTimeout,
	}
}

// HandlePhoto processes a photo message. Album photos (MediaGroupID) are
// buffered and analyzed together.
// Called from session worker - no locking needed.
func (h *ReceiptHandler) HandlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	largest := message.Photo[len(message.Photo)-1]
	photo := AlbumPhoto{FileID: largest.FileID, Width: largest.Width, Height: largest.Height}

	if message.MediaGroupID == "" {
		h.processPhotos(ctx, session, []AlbumPhoto{photo})
		return
	}

	flushed := session.receipt.addAlbumPhoto(photo, message.MediaGroupID, maxAlbumPhotos, h.albumTimeout, func(buffer *AlbumBuffer) {
		// The update context may be gone by the time the timer fires
		session.Send(SessionMessage{Type: eventAlbumTimeout, Ctx: context.Background(), AlbumBuffer: buffer})
	})
	if len(flushed) > 0 {
		h.processPhotos(ctx, session, flushed)
	}
}

// ProcessAlbumTimeout analyzes a buffered album once no more photos arrived.
// Called from session worker - no locking needed.
func (h *ReceiptHandler) ProcessAlbumTimeout(ctx context.Context, session *UserSession, albumBuffer *AlbumBuffer) {
	if photos := session.receipt.takeAlbum(albumBuffer); photos != nil {
		h.processPhotos(ctx, session, photos)
	}
}

// processPhotos downloads the photos, analyzes them as one receipt and shows
// the estimate with save and discard buttons.
func (h *ReceiptHandler) processPhotos(ctx context.Context, session *UserSession, photos []AlbumPhoto) {
	if len(photos) == 0 {
		return
	}

	if len(photos) > 1 {
		session.reply(MsgAnalyzingReceipts, len(photos))
	} else {
		session.reply(MsgAnalyzingReceipt)
	}

	// Replies clear the typing status, so start the loop after the reply
	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go session.keepTyping(typingCtx)

	var images [][]byte
	for _, photo := range photos {
		data, err := downloadFileID(h.tg.GetFileDirectURL, photo.FileID)
		if err != nil {
			log.Error().Err(err).Str("fileID", photo.FileID).Msg("failed to download photo")
			continue
		}
		images = append(images, data)
	}
	if len(images) == 0 {
		session.reply(MsgDownloadFailed)
		return
	}

	analysis, err := h.analyzer.AnalyzeReceipt(ctx, images)
	cancelTyping()
	if errors.Is(err, llm.ErrNoItems) {
		session.reply(MsgNoItemsFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Msg("receipt analysis failed")
		session.reply(MsgAnalysisFailed, escapeMarkdown(err.Error()))
		return
	}

	result := carbon.Analyze(analysis.Items)
	log.Info().
		Int64("userId", session.userId).
		Int("itemCount", len(result.Items)).
		Float64("totalKg", result.TotalCarbon).
		Bool("cached", analysis.Cached).
		Bool("demo", analysis.Demo).
		Msg("receipt analyzed")

	if previous := session.receipt.pendingAt(h.now()); previous != nil {
		session.removeInlineKeyboard(previous.MessageID)
		session.reply(MsgPendingReplaced)
	}

	msg := tgbotapi.NewMessage(session.userId, formatAnalysis(result, analysis.Demo))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnSaveReceipt, "receipt:save"),
			tgbotapi.NewInlineKeyboardButtonData(BtnDiscardReceipt, "receipt:discard"),
		),
	)
	sent := session.replyWithMessage(msg)

	session.receipt.Pending = &PendingReceipt{
		Result:    result,
		Demo:      analysis.Demo,
		MessageID: sent.MessageID,
		CreatedAt: h.now(),
	}
}

// HandleCallback handles receipt:save and receipt:discard buttons.
// Called from session worker - no locking needed.
func (h *ReceiptHandler) HandleCallback(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	pending := session.receipt.pendingAt(h.now())
	if query.Message != nil {
		session.removeInlineKeyboard(query.Message.MessageID)
	}
	if pending == nil {
		session.reply(MsgNoPendingReceipt)
		return
	}

	switch query.Data {
	case "receipt:save":
		h.savePending(session, pending)
	case "receipt:discard":
		session.receipt.Pending = nil
		session.reply(MsgReceiptDiscarded)
	}
}

func (h *ReceiptHandler) savePending(session *UserSession, pending *PendingReceipt) {
	entries, err := h.store.AddCarbonEntries(session.userId, h.now(), storage.SourceReceipt, pending.Result.Items)
	if err != nil {
		session.replyWithError(err)
		return
	}
	session.receipt.Pending = nil

	log.Info().Int64("userId", session.userId).Int("entries", len(entries)).Msg("saved receipt")
	session.reply(MsgReceiptSaved, pluralize("item", "items", len(entries)), formatKg(pending.Result.TotalCarbon))
}

// HandleCancel drops a pending receipt and any buffered album photos.
func (h *ReceiptHandler) HandleCancel(session *UserSession) {
	if session.receipt.Pending != nil {
		session.removeInlineKeyboard(session.receipt.Pending.MessageID)
	}
	session.reset()
	session.replyAndRemoveCustomKeyboard(MsgOk)
}
