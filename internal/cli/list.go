package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rcliao/lhn/internal/lhn"
	"github.com/rcliao/lhn/internal/model"
	"github.com/rcliao/lhn/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the ordered navigation list",
		Long:  "Compute the reports the navigation shows, in display order, from the current store state.",
		Run:   runList,
	}

	cmd.Flags().Bool("names", false, "Include participant display names")
	cmd.Flags().Bool("ids-only", false, "Only output the ordered report IDs")

	RootCmd.AddCommand(cmd)
}

// Row is one line of the navigation list.
type Row struct {
	ReportID     model.ID       `json:"reportID"`
	ReportName   string         `json:"reportName,omitempty"`
	ChatType     model.ChatType `json:"chatType,omitempty"`
	Unread       bool           `json:"unread"`
	DisplayNames string         `json:"displayNames,omitempty"`
}

// buildRows resolves the ordered IDs back to their reports.
func buildRows(st lhn.State, ord lhn.Ordering, names bool) []Row {
	byID := make(map[model.ID]model.Report, len(st.Reports))
	for _, r := range st.Reports {
		byID[r.ID] = r
	}

	rows := make([]Row, 0, len(ord.ReportIDs))
	for _, id := range ord.ReportIDs {
		r := byID[id]
		row := Row{
			ReportID:   id,
			ReportName: r.ReportName,
			ChatType:   r.ChatType,
			Unread:     lhn.IsUnread(r, st.ActiveReportID),
		}
		if names {
			row.DisplayNames = st.PersonalDetails.DisplayNames(r.Participants)
		}
		rows = append(rows, row)
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) {
	names, _ := cmd.Flags().GetBool("names")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p := pipeline.New(s, nil, pipeline.Options{
		Logger:          logger,
		StrictChatTypes: cfg.StrictChatTypes,
	})
	st, err := p.Load(cmd.Context())
	if err != nil {
		exitErr("list", err)
	}
	ord := lhn.Compute(st)

	if idsOnly {
		b, _ := json.MarshalIndent(ord, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return
	}

	rows := buildRows(st, ord, names)
	if formatFlag == "text" {
		printRowsText(cmd.OutOrStdout(), rows)
		return
	}
	b, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func printRowsText(w io.Writer, rows []Row) {
	for _, r := range rows {
		mark := " "
		if r.Unread {
			mark = "*"
		}
		label := r.ReportName
		if r.DisplayNames != "" {
			label = r.DisplayNames
		}
		fmt.Fprintf(w, "%s %-12s %-18s %s\n", mark, r.ReportID, r.ChatType, label)
	}
}
