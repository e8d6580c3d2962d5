package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatscribe/internal/coordinator"
	"chatscribe/internal/enrich"
	"chatscribe/internal/finalizer"
	"chatscribe/internal/httpapi"
	"chatscribe/internal/testsupport"
	"chatscribe/internal/unpacker"
)

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	return "hola", nil
}

func (fakeTranscriber) HealthCheck(context.Context) error { return nil }

func newFixture(t *testing.T) (*httptest.Server, *coordinator.Coordinator, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	stages := coordinator.StageSet{
		Unpack:   unpacker.New(nil),
		Enrich:   enrich.New(fakeTranscriber{}, nil, nil),
		Finalize: finalizer.New(cfg.Paths.OutputDir, nil),
	}
	coord := coordinator.New(cfg, stages, nil)
	srv := httpapi.New(cfg, coord, nil, nil)
	testsupport.WriteChatArchive(t, cfg.Paths.UploadDir, "chat.zip")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, coord, cfg.Paths.UploadDir
}

func postBatch(t *testing.T, ts *httptest.Server, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(ts.URL+"/api/batches", "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func TestSubmitAndPollBatch(t *testing.T) {
	ts, coord, _ := newFixture(t)

	resp := postBatch(t, ts, map[string]any{"archives": []string{"chat.zip"}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var submitted struct {
		ID   string `json:"id"`
		Jobs []struct {
			State string `json:"state"`
		} `json:"jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if submitted.ID == "" || len(submitted.Jobs) != 1 {
		t.Fatalf("unexpected submit response: %+v", submitted)
	}

	batch, ok := coord.Batch(submitted.ID)
	if !ok {
		t.Fatalf("batch %s not registered", submitted.ID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := batch.Wait(ctx); err != nil {
		t.Fatalf("batch did not finish: %v", err)
	}

	getResp, err := http.Get(ts.URL + "/api/batches/" + submitted.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	defer getResp.Body.Close()
	var fetched struct {
		Done      bool `json:"done"`
		Completed int  `json:"completed"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !fetched.Done || fetched.Completed != 1 {
		t.Fatalf("unexpected batch view: %+v", fetched)
	}
}

func TestSubmitRejectsPathTraversal(t *testing.T) {
	ts, _, _ := newFixture(t)

	resp := postBatch(t, ts, map[string]any{"archives": []string{"../escape.zip"}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSubmitRejectsEmptyList(t *testing.T) {
	ts, _, _ := newFixture(t)

	resp := postBatch(t, ts, map[string]any{"archives": []string{}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetMissingBatchReturns404(t *testing.T) {
	ts, _, _ := newFixture(t)

	resp, err := http.Get(ts.URL + "/api/batches/batch-missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _, _ := newFixture(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health struct {
		Ready  bool `json:"ready"`
		Stages []struct {
			Name string `json:"name"`
		} `json:"stages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !health.Ready || len(health.Stages) != 3 {
		t.Fatalf("unexpected health payload: %+v", health)
	}
}

func TestCancelBatchEndpoint(t *testing.T) {
	ts, coord, _ := newFixture(t)

	resp := postBatch(t, ts, map[string]any{"archives": []string{"chat.zip"}})
	defer resp.Body.Close()
	var submitted struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/batches/"+submitted.ID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	cancelResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer cancelResp.Body.Close()
	if cancelResp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", cancelResp.StatusCode)
	}

	batch, _ := coord.Batch(submitted.ID)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := batch.Wait(ctx); err != nil {
		t.Fatalf("batch did not settle after cancel: %v", err)
	}
}
