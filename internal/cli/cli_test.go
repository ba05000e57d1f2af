package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rcliao/lhn/internal/lhn"
	"github.com/rcliao/lhn/internal/model"
	"github.com/rcliao/lhn/internal/store"
)

func TestBuildRows(t *testing.T) {
	st := lhn.State{
		Reports: []model.Report{
			{ID: "1", ReportName: "Lunch", ChatType: model.ChatTypePolicyExpenseChat, Participants: []string{"a@x.com"}, LastReadSequenceNumber: 3, MaxSequenceNumber: 5},
			{ID: "2", ReportName: "Chat", Participants: []string{"b@x.com", "c@x.com"}, LastReadSequenceNumber: 5, MaxSequenceNumber: 5},
		},
		PersonalDetails: model.PersonalDetails{
			"b@x.com": {Login: "b@x.com", FirstName: "Bea"},
		},
	}
	ord := lhn.Ordering{ReportIDs: []model.ID{"1", "2"}, UnreadCount: 1}

	rows := buildRows(st, ord, true)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ReportID != "1" || !rows[0].Unread || rows[0].ChatType != model.ChatTypePolicyExpenseChat {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].Unread {
		t.Errorf("expected report 2 read, got %+v", rows[1])
	}
	if rows[1].DisplayNames != "Bea, c@x.com" {
		t.Errorf("expected display names %q, got %q", "Bea, c@x.com", rows[1].DisplayNames)
	}

	rows = buildRows(st, ord, false)
	if rows[1].DisplayNames != "" {
		t.Errorf("expected no display names, got %q", rows[1].DisplayNames)
	}
}

func TestBuildRowsActiveReportIsRead(t *testing.T) {
	st := lhn.State{
		Reports: []model.Report{
			{ID: "1", Participants: []string{"a@x.com"}, LastReadSequenceNumber: 1, MaxSequenceNumber: 9},
		},
		ActiveReportID: "1",
	}
	rows := buildRows(st, lhn.Ordering{ReportIDs: []model.ID{"1"}}, false)
	if rows[0].Unread {
		t.Error("expected the active report to be read")
	}
}

func TestPrintStatsText(t *testing.T) {
	var buf bytes.Buffer
	printStatsText(&buf, &store.Stats{
		DBPath:      "/tmp/lhn.db",
		DBSizeBytes: 2048,
		Version:     1234,
		TotalKeys:   3,
		Collections: []store.CollectionStats{{Collection: "report_", Keys: 2}, {Collection: "", Keys: 1}},
	})
	out := buf.String()
	for _, want := range []string{"2.0 kB", "1,234", "report_", "(single keys)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "WARN")
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output %q", buf.String())
	}
	if !newLogger(&buf, "bogus").Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected unknown level to fall back to info")
	}
}
