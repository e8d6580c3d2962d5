package job_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"chatscribe/internal/job"
)

func TestNewJobUniqueIDs(t *testing.T) {
	a := job.New("/tmp/chat.zip", "chat.zip")
	b := job.New("/tmp/chat.zip", "chat.zip")
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct IDs for same-named inputs, got %q", a.ID())
	}
	if !strings.HasPrefix(a.ID(), "chat-") {
		t.Fatalf("expected ID derived from archive stem, got %q", a.ID())
	}
}

func TestTransitionsAreForwardOnly(t *testing.T) {
	j := job.New("/tmp/chat.zip", "chat.zip")

	if err := j.Transition(job.StateUnpacking); err != nil {
		t.Fatalf("pending -> unpacking: %v", err)
	}
	if err := j.Transition(job.StateEnriching); err != nil {
		t.Fatalf("unpacking -> enriching: %v", err)
	}
	if err := j.Transition(job.StateUnpacking); err == nil {
		t.Fatal("expected backward transition to be rejected")
	}
	if err := j.Transition(job.StateEnriching); err == nil {
		t.Fatal("expected re-entry into current state to be rejected")
	}
}

func TestTerminalStatesNeverRevert(t *testing.T) {
	j := job.New("/tmp/chat.zip", "chat.zip")
	if err := j.Transition(job.StateUnpacking); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := j.Fail("unpack", errors.New("boom")); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := j.Transition(job.StateEnriching); err == nil {
		t.Fatal("expected terminal job to refuse transitions")
	}
	if j.State() != job.StateFailed {
		t.Fatalf("unexpected state: %s", j.State())
	}
}

func TestCompleteRequiresResult(t *testing.T) {
	j := job.New("/tmp/chat.zip", "chat.zip")
	if err := j.Transition(job.StateFinalizing); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := j.Transition(job.StateCompleted); err == nil {
		t.Fatal("expected completion without a result to be rejected")
	}
	if err := j.Complete("/out/chat.txt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	snap := j.Snapshot()
	if snap.Result != "/out/chat.txt" || snap.State != job.StateCompleted {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	j := job.New("/tmp/chat.zip", "chat.zip")
	j.SetProgress(0.5)
	j.SetProgress(0.2)
	if got := j.Snapshot().Progress; got != 0.5 {
		t.Fatalf("progress regressed: %v", got)
	}
	j.SetProgress(2)
	if got := j.Snapshot().Progress; got != 1 {
		t.Fatalf("progress not clamped: %v", got)
	}
}

func TestSnapshotConsistencyUnderFailure(t *testing.T) {
	j := job.New("/tmp/chat.zip", "chat.zip")
	if err := j.Transition(job.StateUnpacking); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := j.Fail("unpack", errors.New("missing transcript")); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	snap := j.Snapshot()
	if snap.Result != "" {
		t.Fatalf("failed job must not carry a result: %+v", snap)
	}
	if snap.FailedStage != "unpack" || snap.Cause == "" {
		t.Fatalf("failure detail missing: %+v", snap)
	}
	if snap.Progress != 1 {
		t.Fatalf("terminal snapshot progress should be 1, got %v", snap.Progress)
	}
}

func TestConcurrentSnapshotsDoNotTear(t *testing.T) {
	j := job.New("/tmp/chat.zip", "chat.zip")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := j.Snapshot()
			if snap.State != job.StateCompleted && snap.Result != "" {
				t.Error("snapshot pairs result with non-completed state")
				return
			}
			if snap.State != job.StateFailed && snap.FailedStage != "" {
				t.Error("snapshot pairs failure with non-failed state")
				return
			}
		}
	}()

	for _, s := range []job.State{job.StateUnpacking, job.StateEnriching, job.StateFinalizing} {
		if err := j.Transition(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
		j.SetProgress(0.3)
	}
	if err := j.Complete("/out/chat.txt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	close(stop)
	wg.Wait()
}
