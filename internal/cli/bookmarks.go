package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
)

func (a *App) addCommand() *cobra.Command {
	var input domain.NewBookmark
	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Add a new bookmark",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			input.URL = args[0]
			b, err := a.catalog.AddBookmark(cmd.Context(), input)
			if err != nil {
				return err
			}
			success(a.out, "Bookmark added (id=%d): %s", b.Id, b.URL)
			if len(b.Tags) > 0 {
				info(a.out, "  Tags: %s", strings.Join(b.Tags, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&input.Tags, "tag", "t", nil, "tag to attach (repeatable)")
	cmd.Flags().StringVarP(&input.Title, "title", "T", "", "bookmark title")
	cmd.Flags().StringVarP(&input.Description, "description", "d", "", "bookmark description")
	return cmd
}

func (a *App) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a single bookmark",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			b, err := a.catalog.GetBookmark(cmd.Context(), id)
			if err != nil {
				return err
			}
			printBookmarkDetail(a.out, b)
			return nil
		},
	}
}

func (a *App) listCommand() *cobra.Command {
	var opts domain.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			bookmarks, err := a.catalog.ListBookmarks(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(bookmarks) == 0 {
				warn(a.out, "No bookmarks found.")
				return nil
			}
			printBookmarkTable(a.out, bookmarks, highlighter{})
			info(a.out, "\n%d bookmark(s) shown.", len(bookmarks))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Tags, "tag", "t", nil, "only bookmarks carrying this tag (repeatable, all must match)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "l", 50, "maximum number of bookmarks")
	cmd.Flags().IntVarP(&opts.Offset, "offset", "o", 0, "number of bookmarks to skip")
	return cmd
}

func (a *App) searchCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search titles, URLs and descriptions",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			query := args[0]
			bookmarks, err := a.catalog.SearchBookmarks(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			if len(bookmarks) == 0 {
				warn(a.out, "No bookmarks matching '%s'.", query)
				return nil
			}
			printBookmarkTable(a.out, bookmarks, newHighlighter(query))
			info(a.out, "\n%d bookmark(s) shown.", len(bookmarks))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "maximum number of results")
	return cmd
}

func (a *App) updateCommand() *cobra.Command {
	var (
		title, description string
		tags               []string
		clearTags          bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the title, description or tags of a bookmark",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			var patch domain.BookmarkPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			switch {
			case clearTags && len(tags) > 0:
				return catalogerrors.InvalidInput("--tag and --clear-tags cannot be combined")
			case clearTags:
				patch.Tags = &[]string{}
			case cmd.Flags().Changed("tag"):
				patch.Tags = &tags
			}
			if patch.IsEmpty() {
				return catalogerrors.InvalidInput("nothing to update: use --title, --description, --tag or --clear-tags")
			}
			if err := a.open(); err != nil {
				return err
			}
			b, err := a.catalog.UpdateBookmark(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			success(a.out, "Bookmark %d updated.", b.Id)
			printBookmarkDetail(a.out, b)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "T", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "replace the tags (repeatable)")
	cmd.Flags().BoolVar(&clearTags, "clear-tags", false, "remove all tags")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a bookmark",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			b, err := a.catalog.GetBookmark(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !yes && !a.confirm(fmt.Sprintf("Delete bookmark %d (%s)?", b.Id, b.URL)) {
				warn(a.out, "Aborted.")
				return nil
			}
			if err := a.catalog.DeleteBookmark(cmd.Context(), id); err != nil {
				return err
			}
			success(a.out, "Bookmark %d deleted.", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on stdin; anything but y or yes declines.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(a.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		fmt.Fprintln(a.out)
		return false
	}
}
