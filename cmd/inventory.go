package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	app "pantry-bot/internal/application"
	"pantry-bot/internal/infrastructure/storage"
	"pantry-bot/internal/report"
)

// NewInventoryCmd создаёт группу команд для ручной работы с инвентарём.
func NewInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "List and edit the pantry inventory",
	}

	cmd.AddCommand(newInventoryListCmd())
	cmd.AddCommand(newInventoryAddCmd())
	cmd.AddCommand(newInventoryRemoveCmd())

	return cmd
}

func newInventoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show all items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			out, err := report.NewWriter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			_, c, _, err := buildContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			recs, err := c.InventoryService.List(cmd.Context())
			if err != nil {
				return err
			}
			return out.WriteInventory(recs)
		},
	}
	cmd.Flags().StringP("format", "f", report.FormatMarkdown, "Output format: markdown or json")
	return cmd
}

func newInventoryAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>...",
		Short: "Add items by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := buildContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			for _, name := range args {
				rec, created, err := c.InventoryService.Add(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("add %q: %w", name, err)
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s (id %s)\n", rec.Name, rec.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "exists %s (id %s)\n", rec.Name, rec.ID)
				}
			}
			return nil
		},
	}
}

func newInventoryRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove items by name, or by record id with --id",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byID, err := cmd.Flags().GetBool("id")
			if err != nil {
				return err
			}

			_, c, _, err := buildContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			var missing []error
			for _, arg := range args {
				if byID {
					err = c.InventoryService.Delete(cmd.Context(), arg)
					switch {
					case errors.Is(err, storage.ErrNotFound):
						missing = append(missing, fmt.Errorf("id %s: %w", arg, err))
					case err != nil:
						return fmt.Errorf("remove id %s: %w", arg, err)
					default:
						fmt.Fprintf(cmd.OutOrStdout(), "removed id %s\n", arg)
					}
					continue
				}

				n, err := c.InventoryService.DeleteByName(cmd.Context(), arg)
				switch {
				case errors.Is(err, app.ErrIngredientNotFound):
					missing = append(missing, fmt.Errorf("%q: %w", arg, err))
				case err != nil:
					return fmt.Errorf("remove %q: %w", arg, err)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%d)\n", arg, n)
				}
			}
			return errors.Join(missing...)
		},
	}
	cmd.Flags().Bool("id", false, "Treat arguments as record ids")
	return cmd
}
