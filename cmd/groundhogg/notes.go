package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newNotesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Read and write notes on the current contact",
	}

	var noteType string
	add := &cobra.Command{
		Use:     "add <content>...",
		Short:   "Attach a note",
		Example: `  groundhogg notes add "Asked for a demo" --type call`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.sdk.Client.AddNote(cmd.Context(), strings.Join(args, " "), noteType)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(resp.Data)
			}
			c.success("Note %d added", resp.Data.ID)
			return nil
		},
	}
	add.Flags().StringVar(&noteType, "type", "", `note type (default "note")`)

	list := &cobra.Command{
		Use:   "list",
		Short: "List notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.sdk.Client.ListNotes(cmd.Context())
			if err != nil {
				return err
			}
			return c.printNotes(resp.Data)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
