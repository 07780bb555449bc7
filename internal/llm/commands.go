package llm

import (
	"context"
	"fmt"

	"github.com/RichardoC/gemini-relay/internal/models"
)

// Command is a slash-command recognised when it is the whole message.
type Command string

const (
	CommandStart Command = "/start"
	CommandHelp  Command = "/help"
	CommandClear Command = "/clear"
)

const helpText = `I'm a Telegram bot powered by a generative AI model. Here's how you can use me:

- Just send me any message and I'll respond, remembering our recent conversation
- Use /start to restart our conversation and clear chat history
- Use /help to see this help message
- Use /clear to clear our conversation history

Feel free to ask me anything!`

const clearedText = "Conversation history cleared. Let's start fresh!"

// ParseCommand reports whether text is exactly one of the known commands.
// Matching is case-sensitive and ignores nothing: "/help me" is a message.
func ParseCommand(text string) (Command, bool) {
	switch c := Command(text); c {
	case CommandStart, CommandHelp, CommandClear:
		return c, true
	}
	return "", false
}

func greeting(firstName string) string {
	if firstName == "" {
		return "Hi! I'm an AI-powered bot. Ask me anything!\n\n" + helpText
	}
	return fmt.Sprintf("Hi %s! I'm an AI-powered bot. Ask me anything!\n\n%s", firstName, helpText)
}

func (s *Service) runCommand(ctx context.Context, cmd Command, in models.Inbound) (string, error) {
	switch cmd {
	case CommandStart:
		if err := s.history.Clear(ctx, in.UserID); err != nil {
			return apologyText, fmt.Errorf("failed to clear history: %w", err)
		}
		return greeting(in.FirstName), nil
	case CommandHelp:
		return helpText, nil
	case CommandClear:
		if err := s.history.Clear(ctx, in.UserID); err != nil {
			return apologyText, fmt.Errorf("failed to clear history: %w", err)
		}
		return clearedText, nil
	}
	return "", fmt.Errorf("%w: unknown command %q", ErrInvalidArgument, cmd)
}
