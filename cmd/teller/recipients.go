package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/ofx"
)

func recipientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipients",
		Short: "Manage the known-recipient index",
	}

	cmd.AddCommand(recipientsListCmd())
	cmd.AddCommand(recipientsAddCmd())
	cmd.AddCommand(recipientsImportOFXCmd())

	return cmd
}

func recipientsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved recipients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			recipients, err := store.ListRecipients(ctx)
			if err != nil {
				return err
			}
			if len(recipients) == 0 {
				fmt.Println("no saved recipients")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "NAME\tALIASES\tVERIFIED\tSOURCE\n")
			for _, r := range recipients {
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\n",
					r.DisplayName,
					strings.Join(r.Aliases, ", "),
					r.Verified,
					r.Attributes["source"])
			}
			return w.Flush()
		},
	}
}

func recipientsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a recipient to the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases, _ := cmd.Flags().GetStringSlice("alias")
			verified, _ := cmd.Flags().GetBool("verified")
			bank, _ := cmd.Flags().GetString("bank")

			recipient := &model.Recipient{
				ID:          uuid.NewString(),
				DisplayName: args[0],
				Aliases:     aliases,
				Verified:    verified,
			}
			if bank != "" {
				recipient.Attributes = map[string]string{"bank": bank}
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpsertRecipient(ctx, recipient); err != nil {
				return err
			}

			fmt.Printf("added recipient %q (%s)\n", recipient.DisplayName, recipient.ID)
			return nil
		},
	}

	cmd.Flags().StringSlice("alias", nil, "alternate name (repeatable)")
	cmd.Flags().Bool("verified", false, "mark the recipient as verified")
	cmd.Flags().String("bank", "", "bank attribute shown during disambiguation")

	return cmd
}

func recipientsImportOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Harvest payees from OFX/QFX statement exports",
		Long: `Parse OFX or QFX files exported from a bank and add each distinct payee
to the recipient index as an unverified recipient.

Examples:
  teller recipients import-ofx ~/Downloads/checking_jan.qfx
  teller recipients import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRecipientsImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "preview the import without saving")

	return cmd
}

func runRecipientsImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	// Expand globs and collect all files.
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}
	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	ctx := cmd.Context()
	harvester := ofx.NewHarvester()

	// Merge across files by display name so the same payee in two statements
	// becomes one recipient.
	merged := make(map[string]model.Recipient)
	var order []string

	for _, filePath := range allFiles {
		f, err := os.Open(filePath) // #nosec G304
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", filePath, err)
		}

		recipients, err := harvester.Recipients(ctx, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", filePath, err)
		}

		for _, r := range recipients {
			key := strings.ToLower(r.DisplayName)
			if _, ok := merged[key]; !ok {
				merged[key] = r
				order = append(order, key)
			}
		}
	}

	if dryRun {
		fmt.Printf("would import %d recipients:\n", len(order))
		for _, key := range order {
			fmt.Println("  " + merged[key].DisplayName)
		}
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.Default(int64(len(order)), "importing recipients")
	for _, key := range order {
		recipient := merged[key]
		if err := store.UpsertRecipient(ctx, &recipient); err != nil {
			return fmt.Errorf("failed to save recipient %q: %w", recipient.DisplayName, err)
		}
		_ = bar.Add(1)
	}

	fmt.Printf("imported %d recipients from %d files\n", len(order), len(allFiles))
	return nil
}
