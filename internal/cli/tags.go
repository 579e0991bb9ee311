package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func (a *App) tagsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags with their bookmark counts",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			tags, err := a.catalog.ListTags(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				warn(a.out, "No tags found.")
				return nil
			}
			printTagTable(a.out, tags)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum number of tags")
	return cmd
}

func (a *App) tagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage the tags of bookmarks",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add ID TAG...",
			Short: "Add tags to a bookmark",
			Args:  usageArgs(cobra.MinimumNArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				if err := a.open(); err != nil {
					return err
				}
				b, err := a.catalog.AddTags(cmd.Context(), id, args[1:])
				if err != nil {
					return err
				}
				success(a.out, "Bookmark %d tags: %s", b.Id, strings.Join(b.Tags, ", "))
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm ID TAG...",
			Short: "Remove tags from a bookmark",
			Args:  usageArgs(cobra.MinimumNArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				if err := a.open(); err != nil {
					return err
				}
				b, err := a.catalog.RemoveTags(cmd.Context(), id, args[1:])
				if err != nil {
					return err
				}
				if len(b.Tags) == 0 {
					success(a.out, "Bookmark %d has no tags left.", b.Id)
					return nil
				}
				success(a.out, "Bookmark %d tags: %s", b.Id, strings.Join(b.Tags, ", "))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Delete a tag from every bookmark",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.open(); err != nil {
					return err
				}
				if err := a.catalog.DeleteTag(cmd.Context(), args[0]); err != nil {
					return err
				}
				success(a.out, "Tag '%s' deleted.", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Delete tags no bookmark uses",
			Args:  usageArgs(cobra.NoArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.open(); err != nil {
					return err
				}
				removed, err := a.catalog.PruneTags(cmd.Context())
				if err != nil {
					return err
				}
				success(a.out, "Removed %d unused tag(s).", removed)
				return nil
			},
		},
	)
	return cmd
}
