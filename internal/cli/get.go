package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/rcliao/lhn/internal/model"
	"github.com/rcliao/lhn/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value of a key",
		Long:  "Print the value of a key. A collection prefix such as report_ prints every member keyed by full key.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	key := args[0]

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if slices.Contains(model.Collections, key) {
		members, err := s.GetCollection(cmd.Context(), key)
		if err != nil {
			exitErr("get", err)
		}
		b, _ := json.MarshalIndent(members, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return
	}

	value, err := s.Get(cmd.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "null")
		return
	}
	if err != nil {
		exitErr("get", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, value, "", "  "); err != nil {
		exitErr("get", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), buf.String())
}
