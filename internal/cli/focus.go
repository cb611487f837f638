package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/nodemind/internal/focus"
	"github.com/rcliao/nodemind/internal/model"
	"github.com/rcliao/nodemind/internal/repository"
	"github.com/rcliao/nodemind/internal/store"
)

func init() {
	focusCmd := &cobra.Command{
		Use:   "focus",
		Short: "Record focus sessions and breaks",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a session",
		Long: "Start a session. With --wait the countdown runs in the foreground and the " +
			"session completes at zero; interrupting discards it.",
		Run: runFocusStart,
	}
	start.Flags().StringP("kind", "k", "focus", "Kind: focus, short_break, long_break")
	start.Flags().IntP("minutes", "m", 0, "Length in minutes (default: preference, then config)")
	start.Flags().String("task", "", "Task the session works on")
	start.Flags().String("notes", "", "Notes stored on completion")
	start.Flags().BoolP("wait", "w", false, "Run the countdown in the foreground")

	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a running session",
		Args:  cobra.ExactArgs(1),
		Run:   runFocusComplete,
	}
	complete.Flags().String("notes", "", "Session notes")

	discard := &cobra.Command{
		Use:   "discard <id>",
		Short: "Delete an unfinished session",
		Args:  cobra.ExactArgs(1),
		Run:   runFocusDiscard,
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List sessions, newest first",
		Run:   runFocusLs,
	}
	ls.Flags().IntP("limit", "l", 10, "Max results")
	ls.Flags().Bool("today", false, "Only sessions started today")

	streak := &cobra.Command{
		Use:   "streak",
		Short: "Show the current streak and total focus time",
		Run:   runFocusStreak,
	}

	focusCmd.AddCommand(start, complete, discard, ls, streak)
	RootCmd.AddCommand(focusCmd)
}

func focusRepo(a *app) *repository.Focus {
	return repository.NewFocus(a.store, a.loc, a.logger)
}

// defaultMinutes prefers the stored preference over the config value.
func defaultMinutes(ctx context.Context, a *app) int {
	v, ok, err := a.store.GetPref(ctx, store.PrefDefaultMinutes)
	if err == nil && ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		a.logger.Warn("ignoring invalid preference", zap.String("key", store.PrefDefaultMinutes), zap.String("value", v))
	}
	return a.cfg.Focus.DefaultMinutes
}

func runFocusStart(cmd *cobra.Command, args []string) {
	kindFlag, _ := cmd.Flags().GetString("kind")
	minutes, _ := cmd.Flags().GetInt("minutes")
	taskID, _ := cmd.Flags().GetString("task")
	notes, _ := cmd.Flags().GetString("notes")
	wait, _ := cmd.Flags().GetBool("wait")

	kind, err := model.ParseSessionType(kindFlag)
	if err != nil {
		exitErr("start session", err)
	}

	a := mustOpen(cmd)
	defer a.Close()
	ctx := cmd.Context()

	if minutes <= 0 && kind == model.SessionFocus {
		minutes = defaultMinutes(ctx, a)
	}

	if !wait {
		fs, err := focusRepo(a).Start(ctx, kind, minutes, taskID)
		if err != nil {
			exitErr("start session", err)
		}
		printOut(fs, func(w io.Writer) { fmt.Fprintln(w, fs.ID) })
		return
	}

	opts := focus.OptionsFromConfig(a.cfg.Focus)
	opts.Logger = a.logger
	tm := focus.New(focusRepo(a), opts)
	defer tm.Close()

	tm.SelectKind(kind)
	if kind == model.SessionFocus {
		tm.SetCustomMinutes(minutes)
	}
	tm.SelectTask(taskID)
	tm.SetNotes(notes)

	fs, err := countdown(ctx, tm, os.Stderr)
	if err != nil {
		exitErr("focus", err)
	}
	printOut(fs, nil)
}

// countdown runs tm in the foreground until the session completes or the
// process is interrupted, in which case the session is discarded.
func countdown(parent context.Context, tm *focus.Timer, progress io.Writer) (model.FocusSession, error) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	states := tm.Subscribe()
	if err := tm.Start(ctx); err != nil {
		return model.FocusSession{}, err
	}
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(progress)
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := tm.Stop(stopCtx); err != nil {
				return model.FocusSession{}, err
			}
			return model.FocusSession{}, errors.New("interrupted, session discarded")
		case st, ok := <-states:
			if !ok {
				return model.FocusSession{}, errors.New("timer closed")
			}
			if st.LastCompleted != nil {
				fmt.Fprintf(progress, "\r%s %s  %3.0f%%\n", st.Kind.DisplayName(), focus.FormatSeconds(0), 100.0)
				return *st.LastCompleted, nil
			}
			if st.Session == nil && st.Message != "" {
				return model.FocusSession{}, errors.New(st.Message)
			}
			fmt.Fprintf(progress, "\r%s %s  %3.0f%%", st.Kind.DisplayName(), st.FormatRemaining(), st.Progress()*100)
		}
	}
}

func runFocusComplete(cmd *cobra.Command, args []string) {
	notes, _ := cmd.Flags().GetString("notes")

	a := mustOpen(cmd)
	defer a.Close()

	fs, err := focusRepo(a).Complete(cmd.Context(), args[0], notes)
	if err != nil {
		exitErr("complete session", err)
	}
	printOut(fs, nil)
}

func runFocusDiscard(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := focusRepo(a).Discard(cmd.Context(), args[0]); err != nil {
		exitErr("discard session", err)
	}
	printOut(map[string]interface{}{"ok": true, "deleted": args[0]}, nil)
}

func runFocusLs(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	today, _ := cmd.Flags().GetBool("today")

	a := mustOpen(cmd)
	defer a.Close()

	repo := focusRepo(a)
	var sessions []model.FocusSession
	var err error
	if today {
		sessions, err = repo.Today(cmd.Context())
	} else {
		sessions, err = repo.Recent(cmd.Context(), limit)
	}
	if err != nil {
		exitErr("list sessions", err)
	}
	if sessions == nil {
		sessions = []model.FocusSession{}
	}
	printOut(sessions, func(w io.Writer) {
		for _, fs := range sessions {
			state := "running"
			if fs.IsCompleted {
				state = "done"
			}
			fmt.Fprintf(w, "%s  %s  %-11s %3dmin  %s\n", fs.ID,
				fs.StartTime.In(a.loc).Format("2006-01-02 15:04"), fs.SessionType.DisplayName(),
				fs.DurationMinutes, state)
		}
	})
}

func runFocusStreak(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()
	ctx := cmd.Context()
	repo := focusRepo(a)

	streak, err := repo.Streak(ctx, time.Now())
	if err != nil {
		exitErr("streak", err)
	}
	minutes, err := repo.TotalFocusMinutes(ctx)
	if err != nil {
		exitErr("streak", err)
	}
	out := map[string]int{"streak": streak, "total_focus_minutes": minutes}
	printOut(out, func(w io.Writer) {
		fmt.Fprintf(w, "%d day streak, %dh %02dm focused\n", streak, minutes/60, minutes%60)
	})
}
