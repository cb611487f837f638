package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/nodemind/internal/dashboard"
)

func init() {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals, the last seven days, recent activity and achievements",
		Run:   runDashboard,
	}

	RootCmd.AddCommand(cmd)
}

func runDashboard(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	sum, err := dashboard.New(a.store, a.loc, a.logger).Load(cmd.Context(), time.Now())
	if err != nil {
		exitErr("dashboard", err)
	}
	printOut(sum, func(w io.Writer) { writeDashboardText(w, sum) })
}

func writeDashboardText(w io.Writer, sum dashboard.Summary) {
	t := sum.Totals
	fmt.Fprintf(w, "Tasks %d/%d  Notes %d  Focus %dh  Streak %d (best %d)\n\n",
		t.CompletedTasks, t.Tasks, t.Notes, t.FocusHours, t.CurrentStreak, t.LongestStreak)

	for _, d := range sum.Weekly {
		fmt.Fprintf(w, "%s  %-10s %3d min  %d tasks\n", d.Date,
			strings.Repeat("#", min(d.FocusSessionsCompleted, 10)), d.TotalFocusMinutes, d.TasksCompleted)
	}

	if len(sum.Recent) > 0 {
		fmt.Fprintln(w)
	}
	for _, r := range sum.Recent {
		fmt.Fprintf(w, "%s %s: %s\n", r.Icon, r.Title, r.Subtitle)
	}

	fmt.Fprintln(w)
	for _, ach := range sum.Achievements {
		mark := " "
		if ach.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s %-14s %3.0f%%  %s\n", mark, ach.Icon, ach.Title, ach.Progress*100, ach.Description)
	}
}
