package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/birbparty/groundhogg-go/sdk"
)

var (
	labelColor   = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	mutedColor   = color.New(color.FgHiBlack)
)

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) success(format string, args ...any) {
	if c.jsonOut {
		return
	}
	successColor.Fprintf(c.out, format+"\n", args...)
}

func (c *cli) printContact(contact *sdk.Contact) error {
	if c.jsonOut {
		return c.printJSON(contact)
	}
	if contact == nil {
		mutedColor.Fprintln(c.out, "No contact found")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s\t%s\n", labelColor.Sprint(label), value)
		}
	}
	row("ID:", contact.ID.String())
	row("Email:", contact.Email)
	row("First name:", contact.FirstName)
	row("Last name:", contact.LastName)
	row("Phone:", contact.Phone)
	row("Tags:", strings.Join(contact.Tags, ", "))
	for _, key := range slices.Sorted(maps.Keys(contact.Fields)) {
		row(key+":", fmt.Sprint(contact.Fields[key]))
	}
	return w.Flush()
}

func (c *cli) printContacts(contacts []sdk.Contact) error {
	if c.jsonOut {
		return c.printJSON(contacts)
	}
	if len(contacts) == 0 {
		mutedColor.Fprintln(c.out, "No contacts")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tPHONE")
	fmt.Fprintln(w, "--\t-----\t----\t-----")
	for _, contact := range contacts {
		name := strings.TrimSpace(contact.FirstName + " " + contact.LastName)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", contact.ID, contact.Email, name, contact.Phone)
	}
	return w.Flush()
}

func (c *cli) printNotes(notes []sdk.Note) error {
	if c.jsonOut {
		return c.printJSON(notes)
	}
	if len(notes) == 0 {
		mutedColor.Fprintln(c.out, "No notes")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tCREATED\tCONTENT")
	fmt.Fprintln(w, "--\t----\t-------\t-------")
	for _, note := range notes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", note.ID, note.Type, note.DateCreated, note.Content)
	}
	return w.Flush()
}
