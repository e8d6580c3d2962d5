// Package enrich implements the second pipeline stage: transcribing voice
// notes and folding the transcriptions into the chat transcript.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"chatscribe/internal/chat"
	"chatscribe/internal/logging"
	"chatscribe/internal/services"
	"chatscribe/internal/stage"
)

const (
	stageName = "enrich"

	// Progress band covered by this stage. Unpacking owns everything below,
	// finalization everything above.
	progressStart = 0.3
	progressEnd   = 0.8

	// AnalysisFileName is where the conversation review is written inside the
	// workspace before finalization publishes it.
	AnalysisFileName = "analysis.txt"
)

// Transcriber turns a voice note file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Analyzer produces a coaching review for a finished transcript.
type Analyzer interface {
	AnalyzeConversation(ctx context.Context, transcript string) (string, error)
}

// Enricher drives transcription and optional conversation analysis.
type Enricher struct {
	transcriber Transcriber
	analyzer    Analyzer
	logger      *slog.Logger
}

// New constructs the enrichment stage handler. analyzer may be nil when
// conversation analysis is disabled.
func New(transcriber Transcriber, analyzer Analyzer, logger *slog.Logger) *Enricher {
	return &Enricher{
		transcriber: transcriber,
		analyzer:    analyzer,
		logger:      logging.NewComponentLogger(logger, "enrich"),
	}
}

// Prepare verifies the unpack stage recorded a readable transcript.
func (e *Enricher) Prepare(ctx context.Context, env *stage.Env) error {
	_, err := stage.RequireTranscript(env)
	return err
}

// Execute transcribes every voice note in the workspace and rewrites the
// transcript with the results. A chat with no voice notes succeeds untouched.
func (e *Enricher) Execute(ctx context.Context, env *stage.Env) error {
	path, err := stage.RequireTranscript(env)
	if err != nil {
		return err
	}
	transcript, err := chat.LoadTranscript(path)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, stageName, "load transcript",
			"Chat transcript could not be read", err)
	}
	env.Transcript = transcript

	notes, err := chat.ListVoiceNotes(env.Workspace.ChatsDir)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, stageName, "list voice notes",
			"Workspace audio files unreadable", err)
	}

	logger := e.logger.With(
		logging.String(logging.FieldJobID, env.Job.ID()),
		logging.String(logging.FieldArchive, env.Job.ArchiveName()),
	)

	if len(notes) == 0 {
		logger.InfoContext(ctx, "no voice notes found, transcript passes through unchanged")
	}

	inserted := 0
	for i, note := range notes {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := e.transcriber.Transcribe(ctx, note.Path)
		if err != nil {
			err = services.ClassifyTimeout(err)
			return services.Wrap(
				services.ErrExternalTool, stageName, "transcribe voice note",
				fmt.Sprintf("Transcription failed for %s", note.Name), err)
		}
		if transcript.InsertTranscription(note.Name, text) {
			inserted++
		} else {
			logger.WarnContext(ctx, "voice note has no attachment marker in transcript",
				logging.String("voice_note", note.Name))
		}
		env.Job.SetProgress(progressStart + (progressEnd-progressStart)*float64(i+1)/float64(len(notes)))
	}

	if inserted > 0 {
		if err := transcript.Save(path); err != nil {
			return services.Wrap(
				services.ErrTransient, stageName, "save transcript",
				"Enriched transcript could not be written back", err)
		}
	}
	env.TranscribedCount = inserted

	if e.analyzer != nil {
		review, err := e.analyzer.AnalyzeConversation(ctx, transcript.Content())
		if err != nil {
			err = services.ClassifyTimeout(err)
			return services.Wrap(
				services.ErrExternalTool, stageName, "analyze conversation",
				"Conversation analysis failed", err)
		}
		analysisPath := filepath.Join(env.Workspace.Root, AnalysisFileName)
		if err := os.WriteFile(analysisPath, []byte(review+"\n"), 0o644); err != nil {
			return services.Wrap(
				services.ErrTransient, stageName, "write analysis",
				"Conversation analysis could not be written", err)
		}
		env.AnalysisPath = analysisPath
	}

	logger.InfoContext(ctx, "enrichment complete",
		logging.Int("voice_notes", len(notes)),
		logging.Int("transcriptions_inserted", inserted),
		logging.Bool("analysis", env.AnalysisPath != ""))
	return nil
}

// HealthCheck verifies the transcription backend is reachable.
func (e *Enricher) HealthCheck(ctx context.Context) stage.Health {
	if e.transcriber == nil {
		return stage.Unhealthy(stageName, "transcriber not configured")
	}
	if err := e.transcriber.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
