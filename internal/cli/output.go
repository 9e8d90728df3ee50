package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pagebuilder/internal/domain"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeOut prints v in the selected format. text renders the human
// form; when it is nil the text format falls back to indented JSON.
func writeOut(cmd *cobra.Command, o *options, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	switch o.Format {
	case formatYAML:
		return writeYAML(w, v)
	case formatText:
		if text != nil {
			text(w)
			return nil
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through JSON so keys follow the json tags of the
// domain types instead of yaml.v3's lowercased field names.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// renderTree prints one line per node, children indented under their
// parent. The selected node is marked with "*".
func renderTree(w io.Writer, t domain.Tree, selectedID string) {
	if len(t) == 0 {
		fmt.Fprintln(w, "(empty page)")
		return
	}
	var walk func(nodes domain.Tree, depth int)
	walk = func(nodes domain.Tree, depth int) {
		for _, n := range nodes {
			mark := " "
			if n.ID == selectedID {
				mark = "*"
			}
			fmt.Fprintf(w, "%s%s %s %s%s\n", mark, strings.Repeat("  ", depth), n.Type, n.ID, summary(n))
			walk(n.Children, depth+1)
		}
	}
	walk(t, 0)
}

// summary is the short label shown after a node: its text or label.
func summary(n domain.ComponentNode) string {
	for _, key := range []string{"text", "label", "placeholder", "src"} {
		if s, ok := n.Props[key].(string); ok && s != "" {
			if len(s) > 40 {
				s = s[:37] + "..."
			}
			return fmt.Sprintf(" %q", s)
		}
	}
	return ""
}
