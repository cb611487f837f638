package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// printOut writes v in the selected --format. text renders the text form;
// commands without one fall back to YAML.
func printOut(v interface{}, text func(w io.Writer)) {
	if err := writeOut(os.Stdout, formatFlag, v, text); err != nil {
		exitErr("output", err)
	}
}

func writeOut(w io.Writer, format string, v interface{}, text func(w io.Writer)) error {
	switch strings.ToLower(format) {
	case "", "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		return writeYAML(w, v)
	case "text":
		if text == nil {
			return writeYAML(w, v)
		}
		text(w)
		return nil
	}
	return fmt.Errorf("unknown format %q (valid: json, yaml, text)", format)
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// readContent takes content from args, else from piped stdin.
func readContent(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
