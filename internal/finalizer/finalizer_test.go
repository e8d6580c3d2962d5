package finalizer_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"chatscribe/internal/finalizer"
	"chatscribe/internal/job"
	"chatscribe/internal/stage"
	"chatscribe/internal/workspace"
)

func newEnv(t *testing.T, archiveName, transcriptBody string) *stage.Env {
	t.Helper()
	mgr := workspace.NewManager(t.TempDir(), nil)
	jb := job.New("/tmp/"+archiveName, archiveName)
	ws, err := mgr.Allocate(jb.ID())
	if err != nil {
		t.Fatalf("allocate workspace: %v", err)
	}
	t.Cleanup(func() { mgr.Release(ws) })

	path := filepath.Join(ws.ChatsDir, "_chat.txt")
	if err := os.WriteFile(path, []byte(transcriptBody), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return &stage.Env{Job: jb, Workspace: ws, TranscriptPath: path}
}

func TestExecutePublishesTranscript(t *testing.T) {
	out := t.TempDir()
	env := newEnv(t, "ventas enero.zip", "hola\n")

	fin := finalizer.New(out, nil)
	if err := fin.Prepare(context.Background(), env); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := fin.Execute(context.Background(), env); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := filepath.Join(out, "ventas enero.txt")
	if env.OutputPath != want {
		t.Fatalf("unexpected output path %q", env.OutputPath)
	}
	body, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(body) != "hola\n" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestExecuteSuffixesOnCollision(t *testing.T) {
	out := t.TempDir()
	fin := finalizer.New(out, nil)

	first := newEnv(t, "chat.zip", "primero\n")
	second := newEnv(t, "chat.zip", "segundo\n")
	for _, env := range []*stage.Env{first, second} {
		if err := fin.Execute(context.Background(), env); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	if first.OutputPath == second.OutputPath {
		t.Fatalf("collision not resolved: %q", first.OutputPath)
	}
	if second.OutputPath != filepath.Join(out, "chat_2.txt") {
		t.Fatalf("unexpected suffix path %q", second.OutputPath)
	}
	body, err := os.ReadFile(second.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(body) != "segundo\n" {
		t.Fatalf("wrong content at suffixed path: %q", body)
	}
}

func TestExecuteConcurrentSameNameGetDistinctPaths(t *testing.T) {
	out := t.TempDir()
	fin := finalizer.New(out, nil)

	const n = 6
	envs := make([]*stage.Env, n)
	for i := range envs {
		envs[i] = newEnv(t, "chat.zip", "hola\n")
	}

	var wg sync.WaitGroup
	for _, env := range envs {
		wg.Add(1)
		go func(env *stage.Env) {
			defer wg.Done()
			if err := fin.Execute(context.Background(), env); err != nil {
				t.Errorf("Execute: %v", err)
			}
		}(env)
	}
	wg.Wait()

	seen := map[string]struct{}{}
	for _, env := range envs {
		if env.OutputPath == "" {
			continue
		}
		if _, dup := seen[env.OutputPath]; dup {
			t.Fatalf("duplicate output path %q", env.OutputPath)
		}
		seen[env.OutputPath] = struct{}{}
	}
}

func TestExecutePublishesAnalysis(t *testing.T) {
	out := t.TempDir()
	env := newEnv(t, "chat.zip", "hola\n")
	analysis := filepath.Join(env.Workspace.Root, "analysis.txt")
	if err := os.WriteFile(analysis, []byte("review\n"), 0o644); err != nil {
		t.Fatalf("write analysis: %v", err)
	}
	env.AnalysisPath = analysis

	if err := finalizer.New(out, nil).Execute(context.Background(), env); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	published, err := os.ReadFile(filepath.Join(out, "chat_analysis.txt"))
	if err != nil {
		t.Fatalf("analysis not published: %v", err)
	}
	if string(published) != "review\n" {
		t.Fatalf("unexpected analysis content %q", published)
	}
	// Published by move; the workspace copy is gone.
	if _, err := os.Stat(analysis); !os.IsNotExist(err) {
		t.Fatalf("expected workspace analysis to be moved, stat err %v", err)
	}
}
