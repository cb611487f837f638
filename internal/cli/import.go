package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/nodemind/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import records from an export",
		Long: "Import records from a file or stdin. Expects the document produced by export; " +
			"records with existing ids are replaced.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

// formatForPath picks yaml for .yaml/.yml files, else the --format flag.
func formatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	}
	return formatFlag
}

func decodeExport(data []byte, format string) (*store.Export, error) {
	var exp store.Export
	var err error
	if format == "yaml" {
		err = yaml.Unmarshal(data, &exp)
	} else {
		err = json.Unmarshal(data, &exp)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	return &exp, nil
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data   []byte
		err    error
		format = formatFlag
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		format = formatForPath(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		exitErr("read input", err)
	}

	exp, err := decodeExport(data, format)
	if err != nil {
		exitErr("import", err)
	}

	a := mustOpen(cmd)
	defer a.Close()

	res, err := a.store.Import(cmd.Context(), exp)
	if err != nil {
		exitErr("import", err)
	}
	printOut(map[string]interface{}{"ok": true, "imported": res}, nil)
}
