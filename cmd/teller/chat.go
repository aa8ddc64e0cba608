package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ridgelinebank/teller/internal/tui"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Open the chat surface and talk to the decision engine.

Each message runs the full pipeline: classification, entity extraction,
context resolution, the confidence gate, and business-rule validation. Every
turn is written to the audit log.`,
		RunE: runChat,
	}

	cmd.Flags().String("session", "", "session ID to resume (default: new session)")
	cmd.Flags().String("text", "", "process a single utterance and print the JSON response instead of opening the chat surface")

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	sessionID, _ := cmd.Flags().GetString("session")
	text, _ := cmd.Flags().GetString("text")

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	eng, err := buildEngine(store)
	if err != nil {
		return err
	}

	// One-shot mode for scripting and smoke tests.
	if text != "" {
		resp, err := eng.ProcessTurn(ctx, sessionID, text)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	}

	return tui.Run(ctx, tui.Config{
		Engine:    eng,
		SessionID: sessionID,
	})
}
