package stage

import (
	"os"

	"chatscribe/internal/services"
)

// RequireTranscript returns the transcript path recorded by the unpack stage.
// On a missing or unreadable path it returns a services.ErrValidation suitable
// for stage Execute methods.
func RequireTranscript(env *Env) (string, error) {
	if env == nil || env.TranscriptPath == "" {
		return "", services.Wrap(
			services.ErrValidation, "stage", "require transcript",
			"Chat transcript missing from workspace; archive was not unpacked", nil)
	}
	if _, err := os.Stat(env.TranscriptPath); err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "require transcript",
			"Chat transcript no longer readable in workspace", err)
	}
	return env.TranscriptPath, nil
}
