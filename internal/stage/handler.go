package stage

import (
	"context"

	"chatscribe/internal/chat"
	"chatscribe/internal/job"
	"chatscribe/internal/workspace"
)

// Env is the mutable processing record handed from stage to stage for one job.
// Stages record the artifacts they produce so later stages can pick them up.
type Env struct {
	Job       *job.Job
	Workspace *workspace.Workspace

	// TranscriptPath is set by the unpack stage once the chat text file has
	// been located inside the workspace.
	TranscriptPath string
	// Transcript is loaded by the enrichment stage and carries inserted
	// transcriptions forward to finalization.
	Transcript *chat.Transcript
	// TranscribedCount records how many voice notes were transcribed.
	TranscribedCount int
	// AnalysisPath names the conversation analysis file when analysis ran.
	AnalysisPath string
	// OutputPath is set by the finalize stage to the published result file.
	OutputPath string
}

// Handler describes the contract the coordinator needs from each pipeline stage.
type Handler interface {
	Prepare(context.Context, *Env) error
	Execute(context.Context, *Env) error
	HealthCheck(context.Context) Health
}
