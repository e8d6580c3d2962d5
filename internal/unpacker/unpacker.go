// Package unpacker implements the first pipeline stage: extracting a chat
// export archive into the job workspace and locating its transcript.
package unpacker

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chatscribe/internal/chat"
	"chatscribe/internal/fileutil"
	"chatscribe/internal/logging"
	"chatscribe/internal/services"
	"chatscribe/internal/stage"
)

const stageName = "unpack"

// Unpacker extracts chat export archives.
type Unpacker struct {
	logger *slog.Logger
}

// New constructs the unpack stage handler.
func New(logger *slog.Logger) *Unpacker {
	return &Unpacker{logger: logging.NewComponentLogger(logger, "unpacker")}
}

// Prepare verifies the archive exists and is a readable zip file.
func (u *Unpacker) Prepare(ctx context.Context, env *stage.Env) error {
	path := env.Job.ArchivePath()
	reader, err := zip.OpenReader(path)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, stageName, "open archive",
			fmt.Sprintf("Archive %s is not a readable zip file", env.Job.ArchiveName()), err)
	}
	return reader.Close()
}

// Execute extracts the archive into the workspace and records the transcript
// path on the processing record.
func (u *Unpacker) Execute(ctx context.Context, env *stage.Env) error {
	reader, err := zip.OpenReader(env.Job.ArchivePath())
	if err != nil {
		return services.Wrap(
			services.ErrValidation, stageName, "open archive",
			fmt.Sprintf("Archive %s is not a readable zip file", env.Job.ArchiveName()), err)
	}
	defer reader.Close()

	extracted := 0
	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := u.extractEntry(entry, env.Workspace.ChatsDir); err != nil {
			return err
		}
		extracted++
	}

	transcript, err := findTranscript(env.Workspace.ChatsDir)
	if err != nil {
		return err
	}
	env.TranscriptPath = transcript

	u.logger.InfoContext(ctx, "archive extracted",
		logging.String(logging.FieldJobID, env.Job.ID()),
		logging.String(logging.FieldArchive, env.Job.ArchiveName()),
		logging.Int("entries", extracted),
		logging.String("transcript", filepath.Base(transcript)))
	return nil
}

// HealthCheck reports stage readiness.
func (u *Unpacker) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(stageName)
}

func (u *Unpacker) extractEntry(entry *zip.File, destDir string) error {
	// Entry names from phone exports often arrive NFD-encoded; normalize so
	// transcript attachment markers match the files on disk.
	name := chat.NormalizeName(entry.Name)
	// Flatten: exports nest everything under a single directory on some
	// platforms and not on others.
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return services.Wrap(
			services.ErrValidation, stageName, "extract entry",
			fmt.Sprintf("Archive entry %q has an unusable name", entry.Name), nil)
	}
	dest := filepath.Join(destDir, name)
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(filepath.Separator)) {
		return services.Wrap(
			services.ErrValidation, stageName, "extract entry",
			fmt.Sprintf("Archive entry %q escapes the workspace", entry.Name), nil)
	}
	// Flattening can map entries from different subdirectories onto one base
	// name; suffix instead of overwriting so no attachment is lost.
	if _, err := os.Stat(dest); err == nil {
		dest = fileutil.UniquePath(dest, nil)
		u.logger.Warn("archive entry renamed to avoid collision",
			logging.String("entry", entry.Name),
			logging.String("extracted_as", filepath.Base(dest)))
	}

	src, err := entry.Open()
	if err != nil {
		return services.Wrap(
			services.ErrValidation, stageName, "extract entry",
			fmt.Sprintf("Archive entry %q could not be read", entry.Name), err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, stageName, "extract entry",
			fmt.Sprintf("Could not write %s into the workspace", name), err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return services.Wrap(
			services.ErrTransient, stageName, "extract entry",
			fmt.Sprintf("Could not write %s into the workspace", name), err)
	}
	return out.Close()
}

// findTranscript locates the chat text file among the extracted entries.
// Exports name it "_chat.txt" or "<conversation>.txt" depending on platform;
// when several candidates exist the lexicographically first wins so reruns
// stay deterministic.
func findTranscript(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", services.Wrap(
			services.ErrTransient, stageName, "locate transcript",
			"Workspace extraction directory unreadable", err)
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return "", services.Wrap(
			services.ErrValidation, stageName, "locate transcript",
			"Archive contains no chat transcript (.txt) file", nil)
	}
	sort.Strings(candidates)
	return filepath.Join(dir, candidates[0]), nil
}
