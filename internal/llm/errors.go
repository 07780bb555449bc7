package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/RichardoC/gemini-relay/internal/history"
)

var (
	ErrInvalidArgument     = history.ErrInvalidArgument
	ErrUpstreamUnavailable = errors.New("completion API unavailable")
	ErrUpstreamRejected    = errors.New("completion API rejected the request")
	ErrContentBlocked      = fmt.Errorf("%w: blocked by safety settings", ErrUpstreamRejected)
)

const (
	apologyText = "Sorry, I encountered an error while processing your request. Please try again later."
	blockedText = "I'm unable to respond to this message due to safety settings. Please try a different question."
)

// classify maps a completion client error onto ErrUpstreamUnavailable or
// ErrUpstreamRejected, keeping the original error in the chain.
func classify(err error) error {
	if errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamRejected) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstreamRejected, err)
}

// failureText is what the user sees when a completion fails.
func failureText(err error) string {
	if errors.Is(err, ErrContentBlocked) {
		return blockedText
	}
	return apologyText
}

// Kind names the error kind for logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrContentBlocked):
		return "content_blocked"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrUpstreamRejected):
		return "upstream_rejected"
	}
	return "internal"
}
