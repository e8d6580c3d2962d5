package main

import (
	"strings"
	"testing"
	"time"

	"chatscribe/internal/job"
	"chatscribe/internal/ledger"
)

func TestRenderTableAlignsColumns(t *testing.T) {
	output := renderTable(
		[]string{"Archive", "Count"},
		[][]string{{"chat.zip", "3"}, {"ventas.zip", "12"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(output, "chat.zip") || !strings.Contains(output, "ventas.zip") {
		t.Fatalf("expected rows in table, got %q", output)
	}
	if !strings.Contains(output, "Archive") {
		t.Fatalf("expected header in table, got %q", output)
	}
}

func TestStateLabelWithoutColor(t *testing.T) {
	if got := stateLabel(job.StateCompleted, false); got != "completed" {
		t.Fatalf("expected plain label, got %q", got)
	}
	if got := stateLabel(job.StateFailed, true); !strings.Contains(got, ansiRed) {
		t.Fatalf("expected red label, got %q", got)
	}
}

func TestBuildJobRowsFormatsFailure(t *testing.T) {
	rows := buildJobRows([]job.Snapshot{
		{
			ArchiveName: "chat.zip",
			State:       job.StateCompleted,
			Progress:    1,
			Result:      "/out/chat.txt",
		},
		{
			ArchiveName: "roto.zip",
			State:       job.StateFailed,
			Progress:    0.05,
			FailedStage: "unpack",
			Cause:       "archive is not valid",
		},
	}, false)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "/out/chat.txt" {
		t.Fatalf("expected result path in outcome column, got %q", rows[0][3])
	}
	if rows[1][3] != "unpack: archive is not valid" {
		t.Fatalf("expected stage-prefixed failure, got %q", rows[1][3])
	}
	if rows[0][2] != "100%" || rows[1][2] != "5%" {
		t.Fatalf("unexpected progress columns: %q %q", rows[0][2], rows[1][2])
	}
}

func TestBuildJobRecordRows(t *testing.T) {
	updated := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	rows := buildJobRecordRows([]ledger.Record{
		{
			ID:          "0123456789abcdef",
			BatchID:     "batch-1a2b3c4d",
			ArchiveName: "chat.zip",
			State:       job.StateCompleted,
			Progress:    1,
			ResultPath:  "/out/chat.txt",
			UpdatedAt:   updated,
		},
	}, false)

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0][0] != "01234567" {
		t.Fatalf("expected truncated job id, got %q", rows[0][0])
	}
	if rows[0][6] != "/out/chat.txt" {
		t.Fatalf("expected result path detail, got %q", rows[0][6])
	}
}
