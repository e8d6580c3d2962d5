package chat_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatscribe/internal/chat"
)

const sampleExport = "12/6/2025, 3:15 p.m. - Robert: Que dejó el TLF y subimos a esperar\n" +
	"12/6/2025, 3:15 p.m. - Hermano: Ok ok\n" +
	"13/6/2025, 7:21 a.m. - Hermano: ‎PTT-20250613-WA0020.opus (archivo adjunto)\n" +
	"13/6/2025, 9:52 a.m. - Robert: Si chamo gracias a Dios\n" +
	"continuación del mensaje anterior\n"

func TestParseMessages(t *testing.T) {
	messages := chat.ParseMessages(strings.Split(sampleExport, "\n"))
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}

	first := messages[0]
	want := time.Date(2025, time.June, 12, 15, 15, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Fatalf("unexpected timestamp: %v", first.Timestamp)
	}
	if first.Sender != "Robert" {
		t.Fatalf("unexpected sender: %q", first.Sender)
	}

	morning := messages[2]
	if morning.Timestamp.Hour() != 7 {
		t.Fatalf("a.m. hour not preserved: %v", morning.Timestamp)
	}

	last := messages[3]
	if !strings.Contains(last.Body, "continuación") {
		t.Fatalf("continuation line not folded into message: %q", last.Body)
	}
}

func TestParseVoiceNoteDate(t *testing.T) {
	date, ok := chat.ParseVoiceNoteDate("PTT-20250717-WA0056.opus")
	if !ok {
		t.Fatal("expected date to parse")
	}
	if date.Year() != 2025 || date.Month() != time.July || date.Day() != 17 {
		t.Fatalf("unexpected date: %v", date)
	}

	if _, ok := chat.ParseVoiceNoteDate("AUD-1234.opus"); ok {
		t.Fatal("expected unparseable filename to be rejected")
	}
}

func TestListVoiceNotesSortsByDate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"PTT-20250717-WA0056.opus",
		"PTT-20250613-WA0020.opus",
		"PTT-20250613-WA0056.opus",
		"notes.txt",
		"IMG-20250613-WA0001.jpg",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	notes, err := chat.ListVoiceNotes(dir)
	if err != nil {
		t.Fatalf("ListVoiceNotes failed: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 voice notes, got %d", len(notes))
	}
	if notes[0].Name != "PTT-20250613-WA0020.opus" || notes[2].Name != "PTT-20250717-WA0056.opus" {
		t.Fatalf("unexpected order: %v", notes)
	}
}

func TestInsertTranscriptionReplacesMarker(t *testing.T) {
	tr := chat.NewTranscript(sampleExport)

	if !tr.HasAttachmentMarker("PTT-20250613-WA0020.opus") {
		t.Fatal("expected attachment marker to be detected through format runes")
	}

	ok := tr.InsertTranscription("PTT-20250613-WA0020.opus", "Hola, llegamos bien")
	if !ok {
		t.Fatal("expected insertion to succeed")
	}
	content := tr.Content()
	if strings.Contains(content, "archivo adjunto") {
		t.Fatal("marker not replaced")
	}
	if !strings.Contains(content, "7:21 a.m. - Hermano: Hola, llegamos bien") {
		t.Fatalf("message line not preserved around transcript:\n%s", content)
	}

	if tr.InsertTranscription("PTT-20990101-WA0000.opus", "texto") {
		t.Fatal("expected insertion to fail for unknown attachment")
	}
}

func TestTranscriptSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.txt")
	if err := os.WriteFile(path, []byte(sampleExport), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	tr, err := chat.LoadTranscript(path)
	if err != nil {
		t.Fatalf("LoadTranscript failed: %v", err)
	}
	tr.InsertTranscription("PTT-20250613-WA0020.opus", "Hola")
	if err := tr.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back transcript: %v", err)
	}
	if !strings.Contains(string(data), "Hola") {
		t.Fatal("saved transcript missing insertion")
	}
}
