package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}

	printOut(stats, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		fmt.Fprintf(w, "nodes %d, connections %d, chunks %d\n", stats.Nodes, stats.Connections, stats.Chunks)
		fmt.Fprintf(w, "tasks %d (%d completed), sessions %d, days %d\n",
			stats.Tasks, stats.CompletedTasks, stats.Sessions, stats.DailyStats)
	})
}
