package testsupport

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

// ArchiveEntry is one file to place inside a generated chat export archive.
type ArchiveEntry struct {
	Name string
	Body []byte
}

// DefaultTranscript is the transcript used by WriteChatArchive when the caller
// does not supply one.
const DefaultTranscript = "1/1/2024, 9:00 a.m. - Asesor: Hola, bienvenido\n" +
	"1/1/2024, 9:05 a.m. - Cliente: ‎PTT-20240101-WA0001.opus (archivo adjunto)\n" +
	"1/1/2024, 9:06 a.m. - Asesor: Perfecto, lo reviso\n"

// WriteChatArchive builds a zip export at dir/name containing a chat
// transcript and one voice note, returning the archive path.
func WriteChatArchive(t testing.TB, dir, name string) string {
	t.Helper()
	return WriteArchive(t, dir, name,
		ArchiveEntry{Name: "_chat.txt", Body: []byte(DefaultTranscript)},
		ArchiveEntry{Name: "PTT-20240101-WA0001.opus", Body: []byte("opus-bytes")},
	)
}

// WriteArchive builds a zip file at dir/name with the supplied entries.
func WriteArchive(t testing.TB, dir, name string, entries ...ArchiveEntry) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	writer := zip.NewWriter(f)
	for _, entry := range entries {
		w, err := writer.Create(entry.Name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", entry.Name, err)
		}
		if _, err := w.Write(entry.Body); err != nil {
			t.Fatalf("zip write %s: %v", entry.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}
