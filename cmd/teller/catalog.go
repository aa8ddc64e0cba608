package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/config"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the intent catalog",
	}

	cmd.AddCommand(catalogListCmd())
	cmd.AddCommand(catalogValidateCmd())

	return cmd
}

func catalogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the intents the engine can recognize",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := loadCatalog()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "INTENT\tCATEGORY\tRISK\tREQUIRED\tDESCRIPTION\n")
			for _, intent := range store.All() {
				required := ""
				for i, e := range intent.RequiredEntities {
					if i > 0 {
						required += ","
					}
					required += string(e)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					intent.ID, intent.Category, intent.RiskLevel, required, intent.Description)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Printf("\ncatalog version: %s (%d intents)\n", store.Version(), len(store.All()))
			return nil
		},
	}
}

func catalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate an intent catalog YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.ExpandPath(args[0])

			store, err := catalog.Load(path)
			if err != nil {
				return fmt.Errorf("catalog is invalid: %w", err)
			}

			fmt.Printf("catalog %s is valid: version %s, %d intents\n",
				path, store.Version(), len(store.All()))
			return nil
		},
	}
}
