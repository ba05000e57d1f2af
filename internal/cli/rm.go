package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rmCmd := &cobra.Command{
		Use:   "rm KEY",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every key",
		Run:   runClear,
	}
	clearCmd.Flags().Bool("yes", false, "Confirm removing every key (required)")

	RootCmd.AddCommand(rmCmd, clearCmd)
}

func runRm(cmd *cobra.Command, args []string) {
	key := args[0]

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Remove(cmd.Context(), key); err != nil {
		exitErr("rm", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"key":%q}`+"\n", key)
}

func runClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to clear without --yes"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Clear(cmd.Context()); err != nil {
		exitErr("clear", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), `{"ok":true}`)
}
