package main

import (
	"github.com/spf13/cobra"
)

func (a *app) newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Manage document categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List document categories in display order",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				names, err := store.Categories(cmd.Context())
				if err != nil {
					return err
				}
				if a.jsonOut {
					return a.printJSON(names)
				}
				for _, name := range names {
					a.printf("%s\n", name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a document category",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				if err := store.AddCategory(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.message("added category %q", args[0])
			},
		},
		&cobra.Command{
			Use:   "rename <from> <to>",
			Short: "Rename a category and move its documents",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				moved, err := store.RenameCategory(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return a.message("renamed %q to %q (%d documents)", args[0], args[1], moved)
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a category no document uses",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				if err := store.DeleteCategory(cmd.Context(), args[0]); err != nil {
					return err
				}
				return a.message("deleted category %q", args[0])
			},
		},
	)
	return cmd
}
