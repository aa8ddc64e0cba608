package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ridgelinebank/teller/internal/config"
	"github.com/ridgelinebank/teller/internal/engine"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/sheets"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and export the decision audit log",
	}

	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditReplayCmd())
	cmd.AddCommand(auditExportCmd())

	return cmd
}

func auditListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit records for a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			if sessionID == "" {
				return fmt.Errorf("--session is required")
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.GetAuditRecords(ctx, sessionID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no audit records for session", sessionID)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "TURN\tTIMESTAMP\tINTENT\tCONF\tSTATE\tOUTCOME\tINPUT\n")
			for _, rec := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
					rec.Turn,
					rec.Timestamp.Format(time.RFC3339),
					rec.Classification.IntentID,
					rec.Classification.Confidence,
					rec.DecisionState,
					rec.Outcome,
					rec.InputText)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("session", "", "session ID")
	return cmd
}

func auditReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Derive a session's decision trajectory from its audit records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			if sessionID == "" {
				return fmt.Errorf("--session is required")
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.GetAuditRecords(ctx, sessionID)
			if err != nil {
				return err
			}

			turns, err := engine.Replay(records)
			if err != nil {
				return fmt.Errorf("replay failed: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "TURN\tINTENT\tSTATE\tOUTCOME\tFINAL\n")
			for _, turn := range turns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\n",
					turn.Turn, turn.IntentID, turn.State, turn.Outcome, turn.Final)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("session", "", "session ID")
	return cmd
}

func auditExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export audit records to Google Sheets for compliance review",
		RunE:  runAuditExport,
	}

	cmd.Flags().String("from", "", "start date (YYYY-MM-DD, default: 30 days ago)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD, default: now)")
	cmd.Flags().Bool("sheets", true, "export to Google Sheets")

	return cmd
}

func runAuditExport(cmd *cobra.Command, _ []string) error {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	toSheets, _ := cmd.Flags().GetBool("sheets")

	end := time.Now()
	start := end.AddDate(0, 0, -30)

	var err error
	if fromStr != "" {
		start, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if toStr != "" {
		end, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
		end = end.AddDate(0, 0, 1) // inclusive end day
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.GetAuditRecordsByDateRange(ctx, start, end)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no audit records in the selected range")
		return nil
	}

	// Summarize outcomes while the bar ticks through the records.
	bar := progressbar.Default(int64(len(records)), "scanning audit records")
	byOutcome := make(map[model.TurnOutcome]int)
	for _, rec := range records {
		byOutcome[rec.Outcome]++
		_ = bar.Add(1)
	}

	slog.Info("audit export range",
		"from", start.Format("2006-01-02"),
		"to", end.Format("2006-01-02"),
		"records", len(records),
		"executed", byOutcome[model.OutcomeExecuted],
		"rejected", byOutcome[model.OutcomeRejected])

	if !toSheets {
		return nil
	}

	sheetsCfg, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("sheets configuration error: %w", err)
	}

	exporter, err := sheets.NewExporter(ctx, *sheetsCfg, slog.Default())
	if err != nil {
		return err
	}

	if err := exporter.WriteAudit(ctx, records); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	slog.Info("audit export completed", "records", len(records))
	return nil
}
