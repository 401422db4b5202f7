package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/rs/zerolog/log"
)

// sessionEvent says what a SessionMessage carries.
type sessionEvent string

const (
	eventText         sessionEvent = "text"
	eventPhoto        sessionEvent = "photo"
	eventCallback     sessionEvent = "callback"
	eventAlbumTimeout sessionEvent = "album_timeout"
)

const (
	// pendingReceiptTTL is how long save/discard buttons stay usable.
	pendingReceiptTTL = 24 * time.Hour
	// typingInterval keeps the indicator alive; Telegram drops it after ~5s.
	typingInterval = 4 * time.Second
	inboxSize      = 10
)

// SessionMessage is one unit of work for a session worker.
type SessionMessage struct {
	Type sessionEvent
	Ctx  context.Context
	Done chan struct{} // closed once handled, for SendSync

	Message       *tgbotapi.Message       // text and photo
	CallbackQuery *tgbotapi.CallbackQuery // callback
	AlbumBuffer   *AlbumBuffer            // album_timeout
}

// MessageSender is the part of the Telegram API a session replies through.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// MessageHandler processes session messages on the worker goroutine.
type MessageHandler interface {
	HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage)
}

// AlbumPhoto is the largest size of one photo in a receipt album.
type AlbumPhoto struct {
	FileID string
	Width  int
	Height int
}

// AlbumBuffer collects the photos of one Telegram media group.
type AlbumBuffer struct {
	MediaGroupID  string
	Photos        []AlbumPhoto
	Timer         *time.Timer
	FirstReceived time.Time
}

// PendingReceipt is an analyzed receipt waiting to be saved or discarded.
type PendingReceipt struct {
	Result    carbon.AnalysisResult
	Demo      bool
	MessageID int // message carrying the save/discard buttons
	CreatedAt time.Time
}

// ReceiptState is the receipt flow of one user. Only the session worker
// touches it.
type ReceiptState struct {
	Pending     *PendingReceipt
	AlbumBuffer *AlbumBuffer
}

// pendingAt returns the pending receipt unless it has expired by now.
func (r *ReceiptState) pendingAt(now time.Time) *PendingReceipt {
	if r.Pending == nil {
		return nil
	}
	if now.Sub(r.Pending.CreatedAt) > pendingReceiptTTL {
		r.Pending = nil
		return nil
	}
	return r.Pending
}

// addAlbumPhoto buffers a photo of album groupID and (re)arms the timer that
// calls onTimeout with the buffer. Photos beyond maxPhotos are dropped. If a
// different album was still buffered its photos are returned so the caller
// can analyze them before the new one.
func (r *ReceiptState) addAlbumPhoto(photo AlbumPhoto, groupID string, maxPhotos int, timeout time.Duration, onTimeout func(*AlbumBuffer)) (flushed []AlbumPhoto) {
	buffer := r.AlbumBuffer
	if buffer == nil || buffer.MediaGroupID != groupID {
		if buffer != nil {
			if buffer.Timer != nil {
				buffer.Timer.Stop()
			}
			flushed = buffer.Photos
		}
		buffer = &AlbumBuffer{MediaGroupID: groupID, FirstReceived: time.Now()}
		r.AlbumBuffer = buffer
	}

	if len(buffer.Photos) < maxPhotos {
		buffer.Photos = append(buffer.Photos, photo)
	}

	if buffer.Timer != nil {
		buffer.Timer.Stop()
	}
	buffer.Timer = time.AfterFunc(timeout, func() { onTimeout(buffer) })
	return flushed
}

// takeAlbum clears and returns the buffered photos. A buffer that was
// replaced or cleared since its timer was armed yields nil.
func (r *ReceiptState) takeAlbum(buffer *AlbumBuffer) []AlbumPhoto {
	if buffer == nil || r.AlbumBuffer != buffer {
		return nil
	}
	r.AlbumBuffer = nil
	if len(buffer.Photos) == 0 {
		return nil
	}
	return buffer.Photos
}

// clear stops a running album timer and forgets all receipt state.
func (r *ReceiptState) clear() {
	if r.AlbumBuffer != nil && r.AlbumBuffer.Timer != nil {
		r.AlbumBuffer.Timer.Stop()
	}
	r.AlbumBuffer = nil
	r.Pending = nil
}

// UserSession serializes everything one user does: a single worker goroutine
// drains the inbox, so handlers may use session state without locks.
type UserSession struct {
	userId int64
	sender MessageSender

	inbox   chan SessionMessage
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	handler MessageHandler

	// registered is set once the user row has been upserted
	registered bool
	receipt    ReceiptState
}

// newUserSession creates a session and starts its worker.
func newUserSession(userId int64, sender MessageSender, handler MessageHandler) *UserSession {
	ctx, cancel := context.WithCancel(context.Background())
	s := &UserSession{
		userId:  userId,
		sender:  sender,
		inbox:   make(chan SessionMessage, inboxSize),
		ctx:     ctx,
		cancel:  cancel,
		handler: handler,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *UserSession) reset() {
	log.Info().Int64("userId", s.userId).Msg("reset user session")
	s.receipt.clear()
}

// run handles messages until the session is stopped. Messages still queued
// at that point are released without being handled.
func (s *UserSession) run() {
	defer s.wg.Done()
	for {
		select {
		case msg := <-s.inbox:
			s.handle(msg)
		case <-s.ctx.Done():
			for {
				select {
				case msg := <-s.inbox:
					msg.release()
				default:
					return
				}
			}
		}
	}
}

func (msg SessionMessage) release() {
	if msg.Done != nil {
		close(msg.Done)
	}
}

func (s *UserSession) handle(msg SessionMessage) {
	defer msg.release()
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Int64("userId", s.userId).
				Str("type", string(msg.Type)).
				Interface("panic", r).
				Msg("recovered from panic in session worker")
		}
	}()

	ctx := msg.Ctx
	if ctx == nil {
		ctx = s.ctx
	}
	s.handler.HandleSessionMessage(ctx, s, msg)
}

// Send queues a message without waiting for it to be handled.
func (s *UserSession) Send(msg SessionMessage) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
		msg.release()
	}
}

// SendSync queues a message and waits until it has been handled, or dropped
// by a stopped session.
func (s *UserSession) SendSync(msg SessionMessage) {
	msg.Done = make(chan struct{})
	s.Send(msg)
	<-msg.Done
}

// Stop ends the worker and waits for the message in progress.
func (s *UserSession) Stop() {
	s.cancel()
	s.wg.Wait()
	s.receipt.clear()
}

// keepTyping shows the typing indicator until ctx is done.
func (s *UserSession) keepTyping(ctx context.Context) {
	ticker := time.NewTicker(typingInterval)
	defer ticker.Stop()
	for {
		action := tgbotapi.NewChatAction(s.userId, tgbotapi.ChatTyping)
		if _, err := s.sender.Request(action); err != nil {
			log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to send typing action")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *UserSession) replyWithMessage(msg tgbotapi.MessageConfig) tgbotapi.Message {
	msg.ChatID = s.userId
	sent, err := s.sender.Send(msg)
	if err != nil {
		log.Error().Stack().
			Interface("msg", msg).
			Err(fmt.Errorf("failed to send reply message: %w", err)).Send()
		return sent
	}
	log.Debug().Int64("userId", s.userId).Int("messageId", sent.MessageID).Msg("sent message")
	return sent
}

func (s *UserSession) sendText(text string, removeReplyKeyboard bool) tgbotapi.Message {
	msg := tgbotapi.MessageConfig{Text: text, ParseMode: tgbotapi.ModeMarkdown}
	if removeReplyKeyboard {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return s.replyWithMessage(msg)
}

func (s *UserSession) reply(text string, a ...any) tgbotapi.Message {
	return s.sendText(formatReplyText(text, a...), false)
}

func (s *UserSession) replyAndRemoveCustomKeyboard(text string, a ...any) tgbotapi.Message {
	return s.sendText(formatReplyText(text, a...), true)
}

func (s *UserSession) replyWithError(err error) tgbotapi.Message {
	log.Error().Stack().Err(err).Int64("userId", s.userId).Send()
	return s.sendText(formatReplyText(MsgUnexpectedErr, escapeMarkdown(err.Error())), false)
}

// removeInlineKeyboard strips the buttons from a previously sent message.
func (s *UserSession) removeInlineKeyboard(messageID int) {
	if messageID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(
		s.userId,
		messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	if _, err := s.sender.Request(edit); err != nil {
		log.Debug().Err(err).Int64("userId", s.userId).Msg("failed to remove inline keyboard")
	}
}
