package chat

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// VoiceNote is a dated audio attachment discovered in an extracted archive.
type VoiceNote struct {
	Path string
	Name string
	Date time.Time
}

// voiceNotePattern matches exported voice-note filenames: PTT-YYYYMMDD-WAxxxx.
var voiceNotePattern = regexp.MustCompile(`PTT-(\d{8})-WA(\d{4})`)

// IsVoiceNote reports whether a filename looks like an exported voice note.
func IsVoiceNote(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".opus")
}

// ParseVoiceNoteDate extracts the recording date from a voice-note filename.
// Exports carry only the date, so the time of day is midnight.
func ParseVoiceNoteDate(name string) (time.Time, bool) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	match := voiceNotePattern.FindStringSubmatch(stem)
	if match == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse("20060102", match[1])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// ListVoiceNotes returns the dated voice notes directly under dir, ordered by
// recording date and then by name. Audio files without a parseable date are
// skipped.
func ListVoiceNotes(dir string) ([]VoiceNote, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var notes []VoiceNote
	for _, entry := range entries {
		if entry.IsDir() || !IsVoiceNote(entry.Name()) {
			continue
		}
		date, ok := ParseVoiceNoteDate(entry.Name())
		if !ok {
			continue
		}
		notes = append(notes, VoiceNote{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
			Date: date,
		})
	}

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Date.Equal(notes[j].Date) {
			return notes[i].Name < notes[j].Name
		}
		return notes[i].Date.Before(notes[j].Date)
	})
	return notes, nil
}
