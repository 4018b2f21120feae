package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmunix/cinesync/internal/library"
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"lib"},
	Short:   "Manage the watch library",
	Long: `Manage the watch library of the current identity.

Items are keyed by ID and media type (movie, series/tv, anime).

Examples:
  cinesync library list --status watching
  cinesync library add 603 "The Matrix" --type movie
  cinesync library status 603 completed
  cinesync library rewatch 603
  cinesync library bookmark 1399 "Game of Thrones" --type tv`,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library items",
	Args:  cobra.NoArgs,
	RunE:  runLibraryList,
}

var libraryAddCmd = &cobra.Command{
	Use:   "add <id> <title>",
	Short: "Add an item",
	Args:  cobra.ExactArgs(2),
	RunE:  runLibraryAdd,
}

var libraryUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update item metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryUpdate,
}

var libraryStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Set the watch status (setting the current status removes the item)",
	Args:  cobra.ExactArgs(2),
	RunE:  runLibraryStatus,
}

var libraryFavoriteCmd = &cobra.Command{
	Use:   "favorite <id> [title]",
	Short: "Toggle favorite",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLibraryFavorite,
}

var libraryBookmarkCmd = &cobra.Command{
	Use:   "bookmark <id> [title]",
	Short: "Toggle bookmark",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLibraryBookmark,
}

var libraryRewatchCmd = &cobra.Command{
	Use:   "rewatch <id>",
	Short: "Mark a completed item as being rewatched",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryRewatch,
}

var libraryRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an item",
	Args:    cobra.ExactArgs(1),
	RunE:    runLibraryRemove,
}

var librarySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search library titles",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLibrarySearch,
}

var libraryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show watch statistics and level",
	Args:  cobra.NoArgs,
	RunE:  runLibraryStats,
}

var libraryBookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List bookmarks on this device",
	Args:  cobra.NoArgs,
	RunE:  runLibraryBookmarks,
}

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library as JSON",
	Args:  cobra.NoArgs,
	RunE:  runLibraryExport,
}

var libraryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import items from an export file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryImport,
}

var libraryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every library item",
	Args:  cobra.NoArgs,
	RunE:  runLibraryClear,
}

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryListCmd, libraryAddCmd, libraryUpdateCmd, libraryStatusCmd,
		libraryFavoriteCmd, libraryBookmarkCmd, libraryRewatchCmd, libraryRemoveCmd,
		librarySearchCmd, libraryStatsCmd, libraryBookmarksCmd, libraryExportCmd,
		libraryImportCmd, libraryClearCmd)

	for _, c := range []*cobra.Command{libraryAddCmd, libraryUpdateCmd, libraryStatusCmd,
		libraryFavoriteCmd, libraryBookmarkCmd, libraryRewatchCmd, libraryRemoveCmd} {
		c.Flags().StringP("type", "t", "movie", "Media type (movie, series, tv, anime)")
	}
	for _, c := range []*cobra.Command{libraryAddCmd, libraryUpdateCmd} {
		c.Flags().String("image", "", "Poster image URL")
		c.Flags().String("genres", "", "Comma-separated genres")
		c.Flags().Int("duration", 0, "Runtime in minutes")
		c.Flags().Int("episodes", 0, "Episode count")
	}
	libraryAddCmd.Flags().StringP("status", "s", "", "Initial status (default Watchlist)")
	libraryUpdateCmd.Flags().String("title", "", "New title")
	libraryRewatchCmd.Flags().Bool("off", false, "Stop rewatching")

	libraryListCmd.Flags().StringP("status", "s", "", "Filter by status")
	libraryListCmd.Flags().Bool("favorites", false, "Only favorites")
	librarySearchCmd.Flags().IntP("limit", "n", 10, "Maximum results")
	libraryExportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	libraryClearCmd.Flags().Bool("yes", false, "Confirm clearing the library")
}

// metadataFromFlags builds item metadata from the positional id, an optional
// title and the shared metadata flags.
func metadataFromFlags(cmd *cobra.Command, args []string) library.Metadata {
	mediaType, _ := cmd.Flags().GetString("type")
	meta := library.Metadata{
		ID:        args[0],
		MediaType: library.MediaType(mediaType),
	}
	if len(args) > 1 {
		meta.Title = args[1]
	}
	if f := cmd.Flags().Lookup("title"); f != nil && f.Changed {
		meta.Title = f.Value.String()
	}
	if cmd.Flags().Lookup("image") != nil {
		meta.Image, _ = cmd.Flags().GetString("image")
		meta.DurationMinutes, _ = cmd.Flags().GetInt("duration")
		meta.Episodes, _ = cmd.Flags().GetInt("episodes")
		if genres, _ := cmd.Flags().GetString("genres"); genres != "" {
			for _, g := range strings.Split(genres, ",") {
				meta.Genres = append(meta.Genres, strings.TrimSpace(g))
			}
		}
	}
	return meta
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	favorites, _ := cmd.Flags().GetBool("favorites")

	client := NewClient(serverURL)
	lib, err := client.Library(status, favorites)
	if err != nil {
		return fmt.Errorf("failed to fetch library: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, lib)
	}
	printLibrary(out, lib)
	return nil
}

func printLibrary(w io.Writer, lib *LibraryResponse) {
	if len(lib.Items) == 0 {
		fmt.Fprintln(w, "Library is empty")
		return
	}

	fmt.Fprintf(w, "Library of %s (%d):\n\n", lib.Identity, lib.Total)
	fmt.Fprintf(w, "  %-10s %-7s %-32s %-12s %s\n", "ID", "TYPE", "TITLE", "STATUS", "FLAGS")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 75))
	for _, it := range lib.Items {
		fmt.Fprintf(w, "  %-10s %-7s %-32s %-12s %s\n",
			it.ID, it.MediaType, truncate(it.Title, 32), itemStatus(it), itemFlags(it))
	}
}

func itemStatus(it library.Item) string {
	if it.IsStandaloneBookmark {
		return "-"
	}
	return string(it.Status)
}

func itemFlags(it library.Item) string {
	var flags []string
	if it.Favorite {
		flags = append(flags, "fav")
	}
	if it.Bookmarked {
		flags = append(flags, "bookmark")
	}
	if it.IsRewatching {
		flags = append(flags, "rewatching")
	}
	return strings.Join(flags, ",")
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	if status != "" {
		st, ok := library.ParseStatus(status)
		if !ok {
			return fmt.Errorf("unknown status %q", status)
		}
		status = string(st)
	}
	return mutate(cmd, library.Mutation{
		Op:     library.OpAdd,
		Item:   metadataFromFlags(cmd, args),
		Status: library.Status(status),
	})
}

func runLibraryUpdate(cmd *cobra.Command, args []string) error {
	return mutate(cmd, library.Mutation{Op: library.OpUpdate, Item: metadataFromFlags(cmd, args)})
}

func runLibraryStatus(cmd *cobra.Command, args []string) error {
	st, ok := library.ParseStatus(args[1])
	if !ok {
		return fmt.Errorf("unknown status %q (want one of %s)", args[1], statusNames())
	}
	return mutate(cmd, library.Mutation{
		Op:     library.OpSetStatus,
		Item:   metadataFromFlags(cmd, args[:1]),
		Status: st,
	})
}

func runLibraryFavorite(cmd *cobra.Command, args []string) error {
	return mutate(cmd, library.Mutation{Op: library.OpToggleFavorite, Item: metadataFromFlags(cmd, args)})
}

func runLibraryBookmark(cmd *cobra.Command, args []string) error {
	return mutate(cmd, library.Mutation{Op: library.OpToggleBookmark, Item: metadataFromFlags(cmd, args)})
}

func runLibraryRewatch(cmd *cobra.Command, args []string) error {
	off, _ := cmd.Flags().GetBool("off")
	return mutate(cmd, library.Mutation{
		Op:         library.OpSetRewatching,
		Item:       metadataFromFlags(cmd, args),
		Rewatching: !off,
	})
}

func runLibraryRemove(cmd *cobra.Command, args []string) error {
	return mutate(cmd, library.Mutation{Op: library.OpRemove, Item: metadataFromFlags(cmd, args)})
}

func mutate(cmd *cobra.Command, m library.Mutation) error {
	client := NewClient(serverURL)
	lib, err := client.Mutate(m)
	if err != nil {
		return fmt.Errorf("%s failed: %w", m.Op, err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, lib)
	}

	k := library.Key{ID: library.NormalizeID(m.Item.ID), MediaType: m.Item.MediaType}
	if mt, ok := library.ParseMediaType(string(k.MediaType)); ok {
		k.MediaType = mt
	}
	it, ok := library.Find(lib.Items, k)
	if !ok {
		fmt.Fprintf(out, "%s is not in the library (%d items)\n", k, lib.Total)
		return nil
	}
	fmt.Fprintf(out, "%s %q: %s", k, it.Title, itemStatus(it))
	if flags := itemFlags(it); flags != "" {
		fmt.Fprintf(out, " [%s]", flags)
	}
	fmt.Fprintln(out)
	return nil
}

func statusNames() string {
	names := make([]string, len(library.Statuses))
	for i, s := range library.Statuses {
		names[i] = strings.ToLower(string(s))
	}
	return strings.Join(names, ", ")
}

func runLibrarySearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	client := NewClient(serverURL)
	res, err := client.Search(strings.Join(args, " "), limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	if len(res.Matches) == 0 {
		fmt.Fprintf(out, "No matches for %q\n", res.Query)
		return nil
	}
	for _, m := range res.Matches {
		fmt.Fprintf(out, "  %3.0f%%  %-10s %-7s %s\n", m.Score*100, m.Item.ID, m.Item.MediaType, m.Item.Title)
	}
	return nil
}

func runLibraryStats(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	stats, err := client.Stats()
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, stats)
	}
	printStats(out, stats)
	return nil
}

func printStats(w io.Writer, s *library.Stats) {
	fmt.Fprintf(w, "Level %d: %s (%d XP", s.Level.Number, s.Level.Title, s.XP)
	if s.NextLevelAt > 0 {
		fmt.Fprintf(w, ", next at %d", s.NextLevelAt)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Items:      %d\n", s.Total)
	fmt.Fprintf(w, "  Completed:  %d\n", s.Completed)
	fmt.Fprintf(w, "  Favorites:  %d\n", s.Favorites)
	fmt.Fprintf(w, "  Bookmarks:  %d\n", s.Bookmarks)
	fmt.Fprintf(w, "  Rewatching: %d\n", s.Rewatching)
	fmt.Fprintf(w, "  Watch time: %dh (%.1f days)\n", s.WatchTime.Hours, s.WatchTime.Days)
	for _, st := range library.Statuses {
		if n := s.ByStatus[st]; n > 0 {
			fmt.Fprintf(w, "    %-12s %d\n", st, n)
		}
	}
}

func runLibraryBookmarks(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	res, err := client.Bookmarks()
	if err != nil {
		return fmt.Errorf("failed to fetch bookmarks: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(out, "No bookmarks")
		return nil
	}
	for _, b := range res.Items {
		fmt.Fprintf(out, "  %-10s %-7s %-32s %s\n", b.ID, b.MediaType, truncate(b.Title, 32), formatTimeAgo(b.DateAdded))
	}
	return nil
}

func runLibraryExport(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("output")

	client := NewClient(serverURL)
	data, err := client.Export()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if path == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

func runLibraryImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	client := NewClient(serverURL)
	res, err := client.Import(data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, res)
	}
	fmt.Fprintf(out, "Imported %d items (%d already present)\n", res.Added, res.Skipped)
	return nil
}

func runLibraryClear(cmd *cobra.Command, args []string) error {
	if !confirm(cmd, "Remove every library item?") {
		return fmt.Errorf("refusing to clear the library without confirmation (use --yes)")
	}

	client := NewClient(serverURL)
	if err := client.ClearLibrary(); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Library cleared")
	return nil
}
