package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent changes",
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max entries")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	records, err := s.History(cmd.Context(), limit)
	if err != nil {
		exitErr("history", err)
	}

	if formatFlag == "text" {
		for _, r := range records {
			fmt.Fprintf(cmd.OutOrStdout(), "v%-6d %-6s %-32s %s\n", r.Version, r.Op, r.Key, humanize.Time(r.CreatedAt))
		}
		return
	}
	b, _ := json.MarshalIndent(records, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
