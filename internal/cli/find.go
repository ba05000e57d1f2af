package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/lhn/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "find QUERY",
		Short: "Find keys by key or value substring",
		Args:  cobra.MinimumNArgs(1),
		Run:   runFind,
	}

	cmd.Flags().StringP("collection", "c", "", "Filter by collection prefix (e.g. report_)")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runFind(cmd *cobra.Command, args []string) {
	collection, _ := cmd.Flags().GetString("collection")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Collection: collection,
		Query:      strings.Join(args, " "),
		Limit:      limit,
	})
	if err != nil {
		exitErr("find", err)
	}

	if formatFlag == "text" {
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s v%-6d %s\n", r.Key, r.Version, r.Value)
		}
		return
	}
	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
