package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardoC/gemini-relay/internal/config"
	"github.com/RichardoC/gemini-relay/internal/llm"
	"github.com/RichardoC/gemini-relay/internal/models"
)

// ask sends one prompt through the configured completion client. Useful for
// checking credentials and model settings without Telegram.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var envFile string
	cmd := &cobra.Command{
		Use:          "ask <prompt>",
		Short:        "Send a single prompt to the configured model",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ask(cmd.Context(), envFile, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional KEY=value file; the environment overrides it")

	if err := cmd.Execute(); err != nil {
		logger.Fatal("ask failed", zap.Error(err))
	}
}

func ask(ctx context.Context, envFile, prompt string) error {
	cfg, err := config.LoadCompletion(envFile)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	completion, err := client.Complete(ctx, llm.Request{
		SystemPrompt: cfg.SystemPrompt,
		Turns:        []models.Turn{{Role: models.RoleUser, Text: prompt}},
	})
	if err != nil {
		return fmt.Errorf("failed to generate completion: %w", err)
	}
	fmt.Fprintln(os.Stdout, completion)
	return nil
}
