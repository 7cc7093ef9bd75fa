package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birbparty/groundhogg-go/sdk"
)

type sessionView struct {
	Key       string        `json:"key"`
	ContactID sdk.ContactID `json:"contact_id,omitempty"`
	Storage   string        `json:"storage"`
}

func newSessionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and change the persisted current contact",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current contact ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := c.sdk.ContactID()
			view := sessionView{
				Key:       c.sdk.Session.Key(),
				ContactID: id,
				Storage:   c.config.GetString(cfgKeyStorage),
			}
			if c.jsonOut {
				return c.printJSON(view)
			}
			if !id.Valid() {
				mutedColor.Fprintln(c.out, "No current contact")
				return nil
			}
			fmt.Fprintf(c.out, "%s %s\n", labelColor.Sprint("Contact:"), id)
			return nil
		},
	}

	set := &cobra.Command{
		Use:     "set <contact-id>",
		Short:   "Make a contact current",
		Example: "  groundhogg session set 42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sdk.ParseContactID(args[0])
			if err != nil {
				return err
			}
			if err := c.sdk.SetContact(cmd.Context(), id); err != nil {
				return err
			}
			c.success("Current contact is now %s", id)
			return nil
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print the current contact whenever another process changes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := make(chan sdk.ContactID, 16)
			unsubscribe := c.sdk.Session.OnExternalChange(func(id sdk.ContactID) {
				select {
				case changes <- id:
				default:
				}
			})
			defer unsubscribe()

			mutedColor.Fprintln(c.errOut, "Watching for session changes, press Ctrl+C to stop")
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case id := <-changes:
					if c.jsonOut {
						if err := c.printJSON(sessionView{Key: c.sdk.Session.Key(), ContactID: id, Storage: c.config.GetString(cfgKeyStorage)}); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintf(c.out, "%s %s\n", labelColor.Sprint("Contact:"), id)
				}
			}
		},
	}

	cmd.AddCommand(show, set, watch)
	return cmd
}
