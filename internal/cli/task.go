package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/tasks"
)

func init() {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		Run:   runTaskAdd,
	}
	addTaskFlags(add)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task; only the given flags change",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskEdit,
	}
	edit.Flags().String("title", "", "New title")
	addTaskFlags(edit)

	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between open and completed",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskDone,
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List tasks, open first, then by priority and age",
		Run:   runTaskLs,
	}
	ls.Flags().Bool("today", false, "Only tasks created today")
	ls.Flags().StringP("status", "s", "all", "Status: all, pending or done")
	ls.Flags().StringP("priority", "p", "", "Only this priority")
	ls.Flags().StringP("tag", "t", "", "Only tasks with this tag")
	ls.Flags().String("category", "", "Only this category")
	ls.Flags().StringP("query", "q", "", "Substring of title or description")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		Run:   runTaskRm,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every completed task",
		Run:   runTaskClear,
	}

	taskCmd.AddCommand(add, edit, done, ls, rm, clearCmd)
	RootCmd.AddCommand(taskCmd)
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().String("desc", "", "Description")
	cmd.Flags().StringP("priority", "p", "medium", "Priority: low, medium, high")
	cmd.Flags().String("category", "", "Category")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().String("repeat", "none", "Repeat: none, daily, weekly, monthly")
	cmd.Flags().String("remind", "", "Reminder time (RFC 3339)")
}

func taskRepo(a *app) *repository.Tasks {
	return repository.NewTasks(a.store, a.loc, a.logger)
}

// applyTaskFlags overwrites the fields of d whose flags were given, or all
// of them when all is set.
func applyTaskFlags(cmd *cobra.Command, d *repository.TaskDraft, all bool) error {
	flags := cmd.Flags()
	set := func(name string) bool { return all || flags.Changed(name) }

	if set("desc") {
		d.Description, _ = flags.GetString("desc")
	}
	if set("priority") {
		s, _ := flags.GetString("priority")
		p, err := model.ParsePriority(s)
		if err != nil {
			return err
		}
		d.Priority = p
	}
	if set("category") {
		d.Category, _ = flags.GetString("category")
	}
	if set("tags") {
		s, _ := flags.GetString("tags")
		d.Tags = splitList(s)
	}
	if set("repeat") {
		s, _ := flags.GetString("repeat")
		d.Repeat = model.RepeatType(strings.ToLower(s))
	}
	if set("remind") {
		s, _ := flags.GetString("remind")
		d.ReminderAt = nil
		if s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("invalid --remind %q: %w", s, err)
			}
			d.ReminderAt = &t
		}
	}
	return nil
}

func runTaskAdd(cmd *cobra.Command, args []string) {
	d := repository.TaskDraft{Title: strings.Join(args, " ")}
	if err := applyTaskFlags(cmd, &d, true); err != nil {
		exitErr("add task", err)
	}

	a := mustOpen(cmd)
	defer a.Close()

	t, err := taskRepo(a).Create(cmd.Context(), d)
	if err != nil {
		exitErr("add task", err)
	}
	printOut(t, func(w io.Writer) { fmt.Fprintln(w, t.ID) })
}

func runTaskEdit(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()
	repo := taskRepo(a)

	t, err := repo.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("edit task", err)
	}
	d := repository.TaskDraft{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Category:    t.Category,
		ReminderAt:  t.ReminderAt,
		Repeat:      t.Repeat,
		Tags:        t.Tags,
	}
	if cmd.Flags().Changed("title") {
		d.Title, _ = cmd.Flags().GetString("title")
	}
	if err := applyTaskFlags(cmd, &d, false); err != nil {
		exitErr("edit task", err)
	}

	t, err = repo.Update(cmd.Context(), args[0], d)
	if err != nil {
		exitErr("edit task", err)
	}
	printOut(t, nil)
}

func runTaskDone(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	t, err := taskRepo(a).Toggle(cmd.Context(), args[0])
	if err != nil {
		exitErr("toggle task", err)
	}
	printOut(t, func(w io.Writer) { writeTaskLine(w, t) })
}

func runTaskLs(cmd *cobra.Command, args []string) {
	today, _ := cmd.Flags().GetBool("today")
	status, _ := cmd.Flags().GetString("status")
	priority, _ := cmd.Flags().GetString("priority")
	tag, _ := cmd.Flags().GetString("tag")
	category, _ := cmd.Flags().GetString("category")
	query, _ := cmd.Flags().GetString("query")

	f := tasks.Filter{Tag: tag, Category: category, Query: query}
	switch s := tasks.Status(strings.ToLower(status)); s {
	case tasks.StatusAll, tasks.StatusPending, tasks.StatusDone:
		f.Status = s
	default:
		exitErr("list tasks", fmt.Errorf("invalid status %q (valid: all, pending, done)", status))
	}
	if priority != "" {
		p, err := model.ParsePriority(priority)
		if err != nil {
			exitErr("list tasks", err)
		}
		f.Priority = &p
	}

	a := mustOpen(cmd)
	defer a.Close()

	view := tasks.NewView(taskRepo(a))
	load := view.All
	if today {
		load = view.Today
	}
	sum, err := load(cmd.Context(), f)
	if err != nil {
		exitErr("list tasks", err)
	}
	printOut(sum, func(w io.Writer) {
		for _, t := range sum.Tasks {
			writeTaskLine(w, t)
		}
		fmt.Fprintf(w, "%d/%d completed\n", sum.Completed, sum.Total)
	})
}

func writeTaskLine(w io.Writer, t model.Task) {
	box := "[ ]"
	if t.IsCompleted {
		box = "[x]"
	}
	fmt.Fprintf(w, "%s %s  %-6s  %s", box, t.ID, t.Priority.DisplayName(), t.Title)
	if t.Category != "" {
		fmt.Fprintf(w, "  (%s)", t.Category)
	}
	fmt.Fprintln(w)
}

func runTaskRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := taskRepo(a).Delete(cmd.Context(), args[0]); err != nil {
		exitErr("rm task", err)
	}
	printOut(map[string]interface{}{"ok": true, "deleted": args[0]}, nil)
}

func runTaskClear(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	n, err := taskRepo(a).ClearCompleted(cmd.Context())
	if err != nil {
		exitErr("clear tasks", err)
	}
	printOut(map[string]interface{}{"ok": true, "deleted": n}, nil)
}
