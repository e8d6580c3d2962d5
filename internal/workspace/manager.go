// Package workspace allocates and releases the isolated per-job working
// directories the stage pipeline runs in. A workspace is exclusively owned by
// one job for its lifetime; release is best-effort and idempotent.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"chatscribe/internal/logging"
)

// ChatsDirName is the extraction subdirectory stages expect inside a workspace.
const ChatsDirName = "chats"

// Workspace is a job's exclusively owned working directory.
type Workspace struct {
	Root     string
	ChatsDir string

	mu       sync.Mutex
	released bool
}

// Released reports whether the workspace has already been released.
func (w *Workspace) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}

// Manager creates collision-free workspaces under the processing directory.
// Uniqueness comes from the job identifier's token, so concurrent allocations
// need no coordination beyond directory creation.
type Manager struct {
	processingDir string
	logger        *slog.Logger
}

// NewManager constructs a workspace manager rooted at processingDir.
func NewManager(processingDir string, logger *slog.Logger) *Manager {
	return &Manager{
		processingDir: processingDir,
		logger:        logging.NewComponentLogger(logger, "workspace"),
	}
}

// Allocate creates the working directory for a job, including the extraction
// subdirectory, and returns its handle.
func (m *Manager) Allocate(jobID string) (*Workspace, error) {
	if jobID == "" {
		return nil, fmt.Errorf("allocate workspace: job id required")
	}
	root := filepath.Join(m.processingDir, jobID)
	if _, err := os.Stat(root); err == nil {
		// The uuid token makes this unreachable in practice; treat it as a
		// hard failure rather than silently sharing a directory.
		return nil, fmt.Errorf("allocate workspace: %s already exists", root)
	}
	chatsDir := filepath.Join(root, ChatsDirName)
	if err := os.MkdirAll(chatsDir, 0o755); err != nil {
		return nil, fmt.Errorf("allocate workspace: %w", err)
	}
	m.logger.Debug("workspace allocated", logging.String(logging.FieldJobID, jobID), logging.String("path", root))
	return &Workspace{Root: root, ChatsDir: chatsDir}, nil
}

// Release removes the workspace contents. Failure to remove is logged but
// never escalated; releasing twice is a no-op.
func (m *Manager) Release(ws *Workspace) {
	if ws == nil {
		return
	}
	ws.mu.Lock()
	if ws.released {
		ws.mu.Unlock()
		return
	}
	ws.released = true
	ws.mu.Unlock()

	if err := os.RemoveAll(ws.Root); err != nil {
		m.logger.Warn("failed to remove workspace",
			logging.String("path", ws.Root),
			logging.Error(err),
			logging.String(logging.FieldEventType, "workspace_release_failed"),
			logging.String(logging.FieldErrorHint, "check processing_dir permissions"),
		)
		return
	}
	m.logger.Debug("workspace released", logging.String("path", ws.Root))
}
