package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	setCmd := &cobra.Command{
		Use:   "set KEY [JSON]",
		Short: "Replace the value of a key",
		Long:  "Replace the value of a key. The JSON value can be a positional arg or piped via stdin. null removes the key.",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runSet,
	}
	mergeCmd := &cobra.Command{
		Use:   "merge KEY [JSON]",
		Short: "Merge a JSON patch into a key",
		Long:  "Merge a JSON patch into a key. Objects merge recursively, null fields are deleted, anything else replaces the value.",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runMerge,
	}

	RootCmd.AddCommand(setCmd, mergeCmd)
}

// readValue takes the JSON value from args[1] or stdin.
func readValue(args []string) (json.RawMessage, error) {
	var content string
	if len(args) > 1 {
		content = args[1]
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			content = string(b)
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("value is required (positional arg or stdin)")
	}
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("value is not valid JSON: %s", content)
	}
	return json.RawMessage(content), nil
}

func runSet(cmd *cobra.Command, args []string) {
	key := args[0]
	value, err := readValue(args)
	if err != nil {
		exitErr("set", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Set(cmd.Context(), key, value); err != nil {
		exitErr("set", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", key)
}

func runMerge(cmd *cobra.Command, args []string) {
	key := args[0]
	patch, err := readValue(args)
	if err != nil {
		exitErr("merge", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Merge(cmd.Context(), key, patch); err != nil {
		exitErr("merge", err)
	}

	merged, err := s.Get(cmd.Context(), key)
	if err != nil {
		// A null patch removes the key.
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q,"removed":true}`+"\n", key)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(merged))
}
