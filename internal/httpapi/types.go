package httpapi

import (
	"time"

	"chatscribe/internal/coordinator"
	"chatscribe/internal/ledger"
)

type submitBatchRequest struct {
	Archives []string `json:"archives"`
}

type healthResponse struct {
	Ready  bool              `json:"ready"`
	Stages []stageHealthView `json:"stages"`
}

type stageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

type batchResponse struct {
	ID        string    `json:"id"`
	Done      bool      `json:"done"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Jobs      []jobView `json:"jobs"`
}

type batchListResponse struct {
	Batches []batchResponse `json:"batches"`
}

type jobView struct {
	ID          string  `json:"id"`
	ArchiveName string  `json:"archive_name"`
	State       string  `json:"state"`
	Progress    float64 `json:"progress"`
	Result      string  `json:"result,omitempty"`
	FailedStage string  `json:"failed_stage,omitempty"`
	Cause       string  `json:"cause,omitempty"`
}

type jobListResponse struct {
	Jobs []jobRecordView `json:"jobs"`
}

type jobRecordView struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	ArchiveName string    `json:"archive_name"`
	State       string    `json:"state"`
	Progress    float64   `json:"progress"`
	ResultPath  string    `json:"result_path,omitempty"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Failure     string    `json:"failure,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func batchView(snap coordinator.Snapshot) batchResponse {
	jobs := make([]jobView, 0, len(snap.Jobs))
	for _, js := range snap.Jobs {
		jobs = append(jobs, jobView{
			ID:          js.ID,
			ArchiveName: js.ArchiveName,
			State:       string(js.State),
			Progress:    js.Progress,
			Result:      js.Result,
			FailedStage: js.FailedStage,
			Cause:       js.Cause,
		})
	}
	return batchResponse{
		ID:        snap.ID,
		Done:      snap.Done,
		Completed: snap.Completed,
		Failed:    snap.Failed,
		Jobs:      jobs,
	}
}

func recordView(record ledger.Record) jobRecordView {
	return jobRecordView{
		ID:          record.ID,
		BatchID:     record.BatchID,
		ArchiveName: record.ArchiveName,
		State:       string(record.State),
		Progress:    record.Progress,
		ResultPath:  record.ResultPath,
		FailedStage: record.FailedStage,
		Failure:     record.Failure,
		UpdatedAt:   record.UpdatedAt,
	}
}
