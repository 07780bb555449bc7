// Package bot connects the responder to Telegram.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/gemini-relay/internal/chunk"
	"github.com/RichardoC/gemini-relay/internal/llm"
	"github.com/RichardoC/gemini-relay/internal/metrics"
	"github.com/RichardoC/gemini-relay/internal/models"
	"github.com/RichardoC/gemini-relay/internal/queue"
)

// Sender is the part of *bot.Bot the handler uses.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

type Responder interface {
	Respond(ctx context.Context, in models.Inbound) (string, error)
}

type Handler struct {
	responder Responder
	metrics   *metrics.Metrics
	logger    *zap.Logger
	maxLen    int

	queue    *queue.Keyed
	inflight sync.WaitGroup
}

// NewHandler creates a handler that splits replies at maxLen characters.
// m may be nil.
func NewHandler(responder Responder, m *metrics.Metrics, logger *zap.Logger, maxLen int) *Handler {
	if maxLen <= 0 {
		maxLen = chunk.DefaultMaxLen
	}
	return &Handler{
		responder: responder,
		metrics:   m,
		logger:    logger,
		maxLen:    maxLen,
		queue:     queue.NewKeyed(),
	}
}

// Handle is registered as the bot's default handler. The bot must call it
// synchronously in delivery order (WithNotAsyncHandlers, one worker): the
// user's place in line is taken here and the reply is produced in the
// background, so one user's messages are answered in the order Telegram
// delivered them while other users proceed in parallel.
func (h *Handler) Handle(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	h.dispatch(ctx, b, update)
}

func (h *Handler) dispatch(ctx context.Context, sender Sender, update *tgmodels.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	ticket := h.queue.Enqueue(userID)

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer ticket.Done()
		if err := ticket.Wait(ctx); err != nil {
			h.logger.Warn("dropping queued message", zap.Int64("user_id", userID), zap.Error(err))
			return
		}
		h.handle(ctx, sender, update)
	}()
}

// Wait blocks until every dispatched message has been handled.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

func (h *Handler) handle(ctx context.Context, sender Sender, update *tgmodels.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	in := models.Inbound{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		FirstName: msg.From.FirstName,
		Text:      msg.Text,
	}

	logger := h.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.Int64("user_id", in.UserID),
		zap.Int64("chat_id", in.ChatID))

	// One bad update must not take the handler down for everyone else.
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling message", zap.Any("panic", r))
		}
	}()

	if strings.TrimSpace(in.Text) == "" {
		h.metrics.ObserveMessage(metrics.KindIgnored)
		logger.Debug("ignoring update without text")
		return
	}

	if _, isCommand := llm.ParseCommand(in.Text); isCommand {
		h.metrics.ObserveMessage(metrics.KindCommand)
	} else {
		h.metrics.ObserveMessage(metrics.KindChat)
		if _, err := sender.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: in.ChatID,
			Action: tgmodels.ChatActionTyping,
		}); err != nil {
			logger.Warn("failed to send typing action", zap.Error(err))
		}
	}

	logger.Info("message received", zap.Int("text_len", len(in.Text)))

	reply, err := h.responder.Respond(ctx, in)
	if err != nil {
		if errors.Is(err, llm.ErrInvalidArgument) {
			logger.Debug("dropping message", zap.Error(err))
		} else {
			logger.Error("failed to process message",
				zap.String("kind", llm.Kind(err)),
				zap.Error(err))
		}
	}
	if reply == "" {
		return
	}

	h.send(ctx, sender, logger, in.ChatID, reply)
}

// send delivers reply as ordered fragments and stops at the first failure.
func (h *Handler) send(ctx context.Context, sender Sender, logger *zap.Logger, chatID int64, reply string) {
	fragments := chunk.Split(reply, h.maxLen)
	sent := 0
	for _, fragment := range fragments {
		if strings.TrimSpace(fragment) == "" {
			continue
		}
		if _, err := sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fragment,
		}); err != nil {
			logger.Error("failed to send reply",
				zap.Int("fragment", sent),
				zap.Int("fragments", len(fragments)),
				zap.Error(err))
			h.metrics.ObserveFragments(sent, true)
			return
		}
		sent++
	}
	h.metrics.ObserveFragments(sent, false)

	logger.Info("reply sent", zap.Int("fragments", sent), zap.Int("reply_len", len(reply)))
}
