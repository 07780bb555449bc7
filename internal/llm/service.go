package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/gemini-relay/internal/history"
	"github.com/RichardoC/gemini-relay/internal/metrics"
	"github.com/RichardoC/gemini-relay/internal/models"
	"github.com/RichardoC/gemini-relay/internal/queue"
)

const defaultTimeout = 30 * time.Second

type Options struct {
	SystemPrompt string
	// Timeout bounds a single completion call.
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// Service answers inbound messages: it intercepts commands and otherwise
// relays the user's recent history to the completion API.
type Service struct {
	client  CompletionClient
	history history.Store
	opts    Options
	logger  *zap.Logger
	queue   *queue.Keyed
}

func New(client CompletionClient, store history.Store, logger *zap.Logger, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:  client,
		history: store,
		opts:    opts,
		logger:  logger,
		queue:   queue.NewKeyed(),
	}
}

// Respond returns the reply for one inbound message. A non-empty reply is
// always safe to send, including when err reports an upstream failure.
// An empty message yields ErrInvalidArgument and no reply. Calls for the
// same user are answered one at a time in call order.
func (s *Service) Respond(ctx context.Context, in models.Inbound) (string, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidArgument)
	}

	ticket := s.queue.Enqueue(in.UserID)
	defer ticket.Done()
	if err := ticket.Wait(ctx); err != nil {
		err = classify(err)
		return failureText(err), err
	}

	if cmd, ok := ParseCommand(in.Text); ok {
		return s.runCommand(ctx, cmd, in)
	}
	return s.complete(ctx, in)
}

func (s *Service) complete(ctx context.Context, in models.Inbound) (string, error) {
	if err := s.history.Append(ctx, in.UserID, models.RoleUser, in.Text); err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return "", err
		}
		return apologyText, fmt.Errorf("failed to record user turn: %w", err)
	}

	turns, err := s.history.Get(ctx, in.UserID)
	if err != nil {
		return apologyText, fmt.Errorf("failed to get conversation history: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.client.Complete(callCtx, Request{SystemPrompt: s.opts.SystemPrompt, Turns: turns})
	if err == nil && strings.TrimSpace(reply) == "" {
		err = fmt.Errorf("%w: empty completion", ErrUpstreamRejected)
	}
	if err != nil {
		// The user's turn stays recorded so the next message still carries it.
		err = classify(err)
		s.opts.Metrics.ObserveCompletion(Kind(err), time.Since(start))
		return failureText(err), err
	}
	s.opts.Metrics.ObserveCompletion("ok", time.Since(start))

	s.logger.Debug("completion finished",
		zap.Int64("user_id", in.UserID),
		zap.Int("turns", len(turns)),
		zap.Int("reply_len", len(reply)),
		zap.Duration("elapsed", time.Since(start)))

	if err := s.history.Append(ctx, in.UserID, models.RoleAssistant, reply); err != nil {
		s.logger.Warn("failed to record assistant turn", zap.Int64("user_id", in.UserID), zap.Error(err))
	}
	return reply, nil
}
