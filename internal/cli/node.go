package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/store"
)

func init() {
	nodeCmd := &cobra.Command{
		Use:   "node",
		Short: "Create, edit, link and search notes",
	}

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a note",
		Long:  "Create a note. Content comes from --content or piped stdin.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runNodeAdd,
	}
	add.Flags().StringP("content", "b", "", "Note body")
	add.Flags().StringP("tags", "t", "", "Comma-separated tags")
	add.Flags().String("emoji", "", "Emoji shown on the node")
	add.Flags().Bool("markdown", true, "Render content as markdown")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a note; only the given flags change",
		Args:  cobra.ExactArgs(1),
		Run:   runNodeEdit,
	}
	edit.Flags().String("title", "", "New title")
	edit.Flags().StringP("content", "b", "", "New body")
	edit.Flags().StringP("tags", "t", "", "New comma-separated tags")
	edit.Flags().String("emoji", "", "New emoji")
	edit.Flags().Bool("markdown", true, "Render content as markdown")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note; links to it from other notes are kept until prune",
		Args:  cobra.ExactArgs(1),
		Run:   runNodeRm,
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List notes in creation order",
		Run:   runNodeLs,
	}
	ls.Flags().StringP("tag", "t", "", "Only notes with this tag")
	ls.Flags().StringP("query", "q", "", "Substring of title or content")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search titles, content and content chunks",
		Args:  cobra.MinimumNArgs(1),
		Run:   runNodeSearch,
	}
	search.Flags().StringP("tag", "t", "", "Only notes with this tag")
	search.Flags().IntP("limit", "l", 20, "Max results")

	tags := &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		Run:   runNodeTags,
	}

	link := &cobra.Command{
		Use:   "link <a> <b>",
		Short: "Connect two notes",
		Args:  cobra.ExactArgs(2),
		Run:   func(cmd *cobra.Command, args []string) { runRelink(cmd, args, true) },
	}
	unlink := &cobra.Command{
		Use:   "unlink <a> <b>",
		Short: "Disconnect two notes",
		Args:  cobra.ExactArgs(2),
		Run:   func(cmd *cobra.Command, args []string) { runRelink(cmd, args, false) },
	}

	move := &cobra.Command{
		Use:   "move <id> <x> <y>",
		Short: "Set a note's position on the map",
		Args:  cobra.ExactArgs(3),
		Run:   runNodeMove,
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove links that point at deleted notes",
		Run:   runNodePrune,
	}

	nodeCmd.AddCommand(add, edit, rm, ls, search, tags, link, unlink, move, prune)
	RootCmd.AddCommand(nodeCmd)
}

func nodeRepo(a *app) *repository.Nodes {
	return repository.NewNodes(a.store, a.logger)
}

func runNodeAdd(cmd *cobra.Command, args []string) {
	content, _ := cmd.Flags().GetString("content")
	tags, _ := cmd.Flags().GetString("tags")
	emoji, _ := cmd.Flags().GetString("emoji")
	markdown, _ := cmd.Flags().GetBool("markdown")

	if content == "" {
		var err error
		if content, err = readContent(nil); err != nil {
			exitErr("read stdin", err)
		}
	}

	a := mustOpen(cmd)
	defer a.Close()

	n, err := nodeRepo(a).Create(cmd.Context(), repository.NodeDraft{
		Title:      strings.Join(args, " "),
		Content:    content,
		Emoji:      emoji,
		Tags:       splitList(tags),
		IsMarkdown: markdown,
	})
	if err != nil {
		exitErr("add node", err)
	}
	printOut(n, func(w io.Writer) { fmt.Fprintln(w, n.ID) })
}

func runNodeEdit(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()
	ctx := cmd.Context()
	repo := nodeRepo(a)

	n, err := repo.Get(ctx, args[0])
	if err != nil {
		exitErr("edit node", err)
	}
	d := repository.NodeDraft{
		Title:      n.Title,
		Content:    n.Content,
		Emoji:      n.Emoji,
		Tags:       n.Tags,
		IsMarkdown: n.IsMarkdown,
	}
	flags := cmd.Flags()
	if flags.Changed("title") {
		d.Title, _ = flags.GetString("title")
	}
	if flags.Changed("content") {
		d.Content, _ = flags.GetString("content")
	}
	if flags.Changed("tags") {
		s, _ := flags.GetString("tags")
		d.Tags = splitList(s)
	}
	if flags.Changed("emoji") {
		d.Emoji, _ = flags.GetString("emoji")
	}
	if flags.Changed("markdown") {
		d.IsMarkdown, _ = flags.GetBool("markdown")
	}

	n, err = repo.Update(ctx, args[0], d)
	if err != nil {
		exitErr("edit node", err)
	}
	printOut(n, nil)
}

func runNodeRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := nodeRepo(a).Delete(cmd.Context(), args[0]); err != nil {
		exitErr("rm node", err)
	}
	printOut(map[string]interface{}{"ok": true, "deleted": args[0]}, nil)
}

func runNodeLs(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	query, _ := cmd.Flags().GetString("query")

	a := mustOpen(cmd)
	defer a.Close()

	nodes, err := nodeRepo(a).List(cmd.Context(), store.NodeQuery{Tag: tag, Query: query})
	if err != nil {
		exitErr("list nodes", err)
	}
	if nodes == nil {
		nodes = []model.Node{}
	}
	printOut(nodes, func(w io.Writer) {
		for _, n := range nodes {
			writeNodeLine(w, n)
		}
	})
}

func writeNodeLine(w io.Writer, n model.Node) {
	title := n.Title
	if n.Emoji != "" {
		title = n.Emoji + " " + title
	}
	fmt.Fprintf(w, "%s  %s", n.ID, title)
	if len(n.Tags) > 0 {
		fmt.Fprintf(w, "  [%s]", strings.Join(n.Tags, ", "))
	}
	if len(n.ConnectedNodeIDs) > 0 {
		fmt.Fprintf(w, "  (%d links)", len(n.ConnectedNodeIDs))
	}
	fmt.Fprintln(w)
}

func runNodeSearch(cmd *cobra.Command, args []string) {
	tag, _ := cmd.Flags().GetString("tag")
	limit, _ := cmd.Flags().GetInt("limit")

	a := mustOpen(cmd)
	defer a.Close()

	results, err := nodeRepo(a).Search(cmd.Context(), store.SearchParams{
		Query: strings.Join(args, " "),
		Tag:   tag,
		Limit: limit,
	})
	if err != nil {
		exitErr("search", err)
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	printOut(results, func(w io.Writer) {
		for _, r := range results {
			writeNodeLine(w, r.Node)
			if r.MatchChunk != nil {
				fmt.Fprintf(w, "    lines %d-%d: %s\n", r.MatchChunk.StartLine, r.MatchChunk.EndLine,
					firstLine(r.MatchChunk.Text))
			}
		}
	})
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func runNodeTags(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	tags, err := nodeRepo(a).AllTags(cmd.Context())
	if err != nil {
		exitErr("tags", err)
	}
	printOut(tags, func(w io.Writer) {
		for _, t := range tags {
			fmt.Fprintln(w, t)
		}
	})
}

func runRelink(cmd *cobra.Command, args []string, connect bool) {
	a := mustOpen(cmd)
	defer a.Close()
	repo := nodeRepo(a)

	op, relink := "link", repo.Connect
	if !connect {
		op, relink = "unlink", repo.Disconnect
	}
	if err := relink(cmd.Context(), args[0], args[1]); err != nil {
		exitErr(op, err)
	}
	printOut(map[string]interface{}{"ok": true, "a": args[0], "b": args[1]}, nil)
}

func runNodeMove(cmd *cobra.Command, args []string) {
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		exitErr("move", fmt.Errorf("invalid x %q", args[1]))
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		exitErr("move", fmt.Errorf("invalid y %q", args[2]))
	}

	a := mustOpen(cmd)
	defer a.Close()

	repo := nodeRepo(a)
	if _, err := repo.Get(cmd.Context(), args[0]); err != nil {
		exitErr("move", err)
	}
	if err := repo.UpdatePosition(cmd.Context(), args[0], x, y); err != nil {
		exitErr("move", err)
	}
	printOut(map[string]interface{}{"ok": true, "id": args[0], "x": x, "y": y}, nil)
}

func runNodePrune(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	n, err := nodeRepo(a).PruneDangling(cmd.Context())
	if err != nil {
		exitErr("prune", err)
	}
	printOut(map[string]interface{}{"ok": true, "removed": n}, nil)
}
