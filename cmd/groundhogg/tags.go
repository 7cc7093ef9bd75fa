package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/birbparty/groundhogg-go/sdk"
)

func newTagsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Apply or remove tags on the current contact",
	}
	cmd.AddCommand(
		newTagsChangeCmd(c, "add", "Apply tags", c.addTags),
		newTagsChangeCmd(c, "remove", "Remove tags", c.removeTags),
	)
	return cmd
}

func (c *cli) addTags(cmd *cobra.Command, ids []int64) (*sdk.Response[*sdk.Contact], error) {
	return c.sdk.Client.AddTags(cmd.Context(), ids...)
}

func (c *cli) removeTags(cmd *cobra.Command, ids []int64) (*sdk.Response[*sdk.Contact], error) {
	return c.sdk.Client.RemoveTags(cmd.Context(), ids...)
}

func newTagsChangeCmd(c *cli, use, short string, apply func(*cobra.Command, []int64) (*sdk.Response[*sdk.Contact], error)) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <tag-id>...",
		Short:   short,
		Example: "  groundhogg tags " + use + " 12 15",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseTagIDs(args)
			if err != nil {
				return err
			}
			resp, err := apply(cmd, ids)
			if err != nil {
				return err
			}
			return c.printContact(resp.Data)
		},
	}
}

func parseTagIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, userErrorf("invalid tag ID %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
