package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every record as JSON or YAML",
		Long:  "Export nodes, tasks, sessions, daily stats and preferences as one document.",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	a := mustOpen(cmd)
	defer a.Close()

	exp, err := a.store.ExportAll(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	if out == "" {
		printOut(exp, nil)
		return
	}
	f, err := os.Create(out)
	if err != nil {
		exitErr("export", err)
	}
	defer f.Close()
	if err := writeOut(f, formatForPath(out), exp, nil); err != nil {
		exitErr("export", err)
	}
}
