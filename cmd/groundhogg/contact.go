package main

import (
	"github.com/spf13/cobra"

	"github.com/birbparty/groundhogg-go/sdk"
)

type contactFlags struct {
	email     string
	firstName string
	lastName  string
	phone     string
	fields    map[string]string
}

func (f *contactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone number")
	cmd.Flags().StringToStringVar(&f.fields, "field", nil, "extra field, KEY=VALUE (repeatable)")
}

func (f *contactFlags) contact() sdk.Contact {
	contact := sdk.Contact{
		Email:     f.email,
		FirstName: f.firstName,
		LastName:  f.lastName,
		Phone:     f.phone,
	}
	if len(f.fields) > 0 {
		contact.Fields = make(map[string]any, len(f.fields))
		for k, v := range f.fields {
			contact.Fields[k] = parseValue(v)
		}
	}
	return contact
}

func (f *contactFlags) empty() bool {
	return f.email == "" && f.firstName == "" && f.lastName == "" && f.phone == "" && len(f.fields) == 0
}

func newContactCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Create, fetch and update contacts",
	}
	cmd.AddCommand(
		newContactCreateCmd(c),
		newContactGetCmd(c),
		newContactUpdateCmd(c),
		newContactListCmd(c),
		newContactFindCmd(c),
	)
	return cmd
}

func newContactCreateCmd(c *cli) *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contact and make it the current one",
		Example: `  groundhogg contact create --email jane@example.com --first-name Jane
  groundhogg contact create --email jane@example.com --field source=webinar`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.email == "" {
				return userErrorf("--email is required")
			}
			resp, err := c.sdk.CreateContact(cmd.Context(), flags.contact())
			if err != nil {
				return err
			}
			c.success("%s", resp.Message)
			return c.printContact(resp.Data)
		},
	}
	flags.register(cmd)
	return cmd
}

func newContactGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.sdk.Client.GetContact(cmd.Context())
			if err != nil {
				return err
			}
			return c.printContact(resp.Data)
		},
	}
}

func newContactUpdateCmd(c *cli) *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update fields on the current contact",
		Example: `  groundhogg contact update --phone 555-0100 --field lifecycle=customer`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.empty() {
				return userErrorf("nothing to update")
			}
			resp, err := c.sdk.Client.UpdateContact(cmd.Context(), flags.contact())
			if err != nil {
				return err
			}
			c.success("%s", resp.Message)
			return c.printContact(resp.Data)
		},
	}
	flags.register(cmd)
	return cmd
}

func newContactListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.sdk.Client.ListContacts(cmd.Context())
			if err != nil {
				return err
			}
			return c.printContacts(resp.Data)
		},
	}
}

func newContactFindCmd(c *cli) *cobra.Command {
	var email, phone string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Look up a contact by email or phone",
		Example: `  groundhogg contact find --email jane@example.com
  groundhogg contact find --phone 555-0100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				resp *sdk.Response[*sdk.Contact]
				err  error
			)
			switch {
			case email != "":
				resp, err = c.sdk.Client.FindByEmail(cmd.Context(), email)
			case phone != "":
				resp, err = c.sdk.Client.FindByPhone(cmd.Context(), phone)
			default:
				return userErrorf("one of --email or --phone is required")
			}
			if err != nil {
				return err
			}
			return c.printContact(resp.Data)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.MarkFlagsMutuallyExclusive("email", "phone")
	return cmd
}
