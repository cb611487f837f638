package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/nodemind/internal/store"
)

// prefKeys are the preferences a user may set, with their validators.
var prefKeys = map[string]func(string) error{
	store.PrefTheme: func(v string) error {
		switch v {
		case "light", "dark", "system":
			return nil
		}
		return fmt.Errorf("invalid theme %q (valid: light, dark, system)", v)
	},
	store.PrefDefaultMinutes: func(v string) error {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 {
			return fmt.Errorf("invalid minutes %q", v)
		}
		return nil
	},
}

func init() {
	prefCmd := &cobra.Command{
		Use:   "pref",
		Short: "Read and write preferences",
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a preference",
		Args:  cobra.ExactArgs(1),
		Run:   runPrefGet,
	}
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set theme_mode or default_pomodoro_duration",
		Args:  cobra.ExactArgs(2),
		Run:   runPrefSet,
	}

	prefCmd.AddCommand(get, set)
	RootCmd.AddCommand(prefCmd)
}

func runPrefGet(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	v, ok, err := a.store.GetPref(cmd.Context(), args[0])
	if err != nil {
		exitErr("get pref", err)
	}
	out := map[string]interface{}{"key": args[0], "set": ok, "value": v}
	printOut(out, func(w io.Writer) { fmt.Fprintln(w, v) })
}

func runPrefSet(cmd *cobra.Command, args []string) {
	check, ok := prefKeys[args[0]]
	if !ok {
		exitErr("set pref", fmt.Errorf("unknown or read-only key %q", args[0]))
	}
	if err := check(args[1]); err != nil {
		exitErr("set pref", err)
	}

	a := mustOpen(cmd)
	defer a.Close()

	if err := a.store.SetPref(cmd.Context(), args[0], args[1]); err != nil {
		exitErr("set pref", err)
	}
	printOut(map[string]interface{}{"ok": true, "key": args[0], "value": args[1]}, nil)
}
