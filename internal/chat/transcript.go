package chat

import (
	"fmt"
	"os"
	"strings"
)

// Attachment marker suffixes produced by the export, by locale.
var attachmentMarkers = []string{"(archivo adjunto)", "(file attached)"}

// Transcript holds an exported chat text file in memory for editing.
type Transcript struct {
	lines      []string
	normalized []string
}

// LoadTranscript reads a transcript file into memory.
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return NewTranscript(string(data)), nil
}

// NewTranscript builds a transcript from raw export text.
func NewTranscript(content string) *Transcript {
	lines := strings.Split(content, "\n")
	normalized := make([]string, len(lines))
	for i, line := range lines {
		normalized[i] = NormalizeName(line)
	}
	return &Transcript{lines: lines, normalized: normalized}
}

// Content returns the current transcript text.
func (t *Transcript) Content() string {
	return strings.Join(t.lines, "\n")
}

// Save writes the transcript to path.
func (t *Transcript) Save(path string) error {
	if err := os.WriteFile(path, []byte(t.Content()), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Messages parses the transcript into messages.
func (t *Transcript) Messages() []Message {
	return ParseMessages(t.lines)
}

// InsertTranscription replaces the attachment marker for the named voice note
// with its transcription text, preserving the rest of the message line. It
// reports whether a marker was found.
func (t *Transcript) InsertTranscription(audioName, text string) bool {
	audioName = NormalizeName(audioName)
	text = strings.TrimSpace(text)
	for _, marker := range attachmentMarkers {
		mention := audioName + " " + marker
		for i, line := range t.normalized {
			idx := strings.Index(line, mention)
			if idx < 0 {
				continue
			}
			replacement := text
			if replacement == "" {
				replacement = audioName + " (sin transcripción)"
			}
			updated := line[:idx] + replacement + line[idx+len(mention):]
			t.lines[i] = updated
			t.normalized[i] = NormalizeName(updated)
			return true
		}
	}
	return false
}

// HasAttachmentMarker reports whether the transcript still mentions the named
// attachment as an un-transcribed file.
func (t *Transcript) HasAttachmentMarker(audioName string) bool {
	audioName = NormalizeName(audioName)
	for _, marker := range attachmentMarkers {
		mention := audioName + " " + marker
		for _, line := range t.normalized {
			if strings.Contains(line, mention) {
				return true
			}
		}
	}
	return false
}
