package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tirecore/internal/adapters/httpapi"
	"tirecore/internal/blob"
	"tirecore/internal/core"
	"tirecore/pkg/domain"
)

func setup(t *testing.T, archive blob.Store) (*core.Service, *httpapi.Handler) {
	t.Helper()
	svc := core.NewInMemoryService(nil)
	if _, err := svc.SeedDemo(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc, httpapi.NewHandler(svc, archive)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestQueries(t *testing.T) {
	_, h := setup(t, nil)
	for _, target := range []string{
		"/api/v1/catalog", "/api/v1/combinations", "/api/v1/orders", "/api/v1/sheets",
		"/api/v1/sheets?order=ORD-001", "/api/v1/fields", "/api/v1/results",
		"/api/v1/audit", "/api/v1/progress", "/api/v1/orders/ORD-001/sheet-template",
	} {
		if resp := do(t, h, http.MethodGet, target, ""); resp.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d body %s", target, resp.Code, resp.Body.String())
		}
	}

	resp := do(t, h, http.MethodGet, "/api/v1/audit", "")
	audit := decodeBody[struct {
		Trail []domain.AuditTrailEntry `json:"audit_trail"`
	}](t, resp)
	if len(audit.Trail) != 1 || audit.Trail[0].OrderID != "ORD-003" {
		t.Fatalf("unexpected audit %+v", audit.Trail)
	}

	resp = do(t, h, http.MethodGet, "/api/v1/progress", "")
	progress := decodeBody[struct {
		Progress domain.Progress `json:"progress"`
	}](t, resp)
	if progress.Progress.Total != 3 || progress.Progress.InProgress != 1 {
		t.Fatalf("unexpected progress %+v", progress.Progress)
	}
}

func TestCommands(t *testing.T) {
	_, h := setup(t, nil)

	resp := do(t, h, http.MethodPost, "/api/v1/combinations", `{"front_code":"FR-D","rear_code":"RR-d","quantity":2,"purpose":"EV range"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("add combination: %d %s", resp.Code, resp.Body.String())
	}
	combo := decodeBody[struct {
		Combination domain.SpecCombination `json:"combination"`
	}](t, resp).Combination
	if combo.ID != "T4" || combo.Label != "D-d" {
		t.Fatalf("unexpected combination %+v", combo)
	}

	resp = do(t, h, http.MethodPost, "/api/v1/orders", `{"combination_id":"T4","quantity":2}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("add order: %d %s", resp.Code, resp.Body.String())
	}
	order := decodeBody[struct {
		Order domain.TestOrder `json:"order"`
	}](t, resp).Order
	if order.ID != "ORD-004" || order.Objective != "EV range" {
		t.Fatalf("unexpected order %+v", order)
	}

	resp = do(t, h, http.MethodPost, "/api/v1/orders/ORD-004/move", `{"direction":"earlier"}`)
	moved := decodeBody[struct {
		Moved  bool               `json:"moved"`
		Orders []domain.TestOrder `json:"orders"`
	}](t, resp)
	if !moved.Moved || moved.Orders[2].ID != "ORD-004" {
		t.Fatalf("unexpected move response %+v", moved)
	}

	resp = do(t, h, http.MethodPost, "/api/v1/orders/ORD-004/advance", `{"status":"in-progress"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("advance: %d %s", resp.Code, resp.Body.String())
	}
	resp = do(t, h, http.MethodPost, "/api/v1/orders/ORD-004/cancellation", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, h, http.MethodPost, "/api/v1/fields/buffing/toggle", "")
	field := decodeBody[struct {
		Field domain.SheetField `json:"field"`
	}](t, resp).Field
	if !field.Enabled {
		t.Fatalf("buffing not enabled: %+v", field)
	}

	resp = do(t, h, http.MethodPost, "/api/v1/sheets", `{"test_order_id":"ORD-002","m_code":"M-2"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("record sheet: %d %s", resp.Code, resp.Body.String())
	}
	sheet := decodeBody[struct {
		Sheet      domain.EvaluationSheet `json:"sheet"`
		Violations []domain.Violation     `json:"violations"`
	}](t, resp)
	if sheet.Sheet.ID != "ES-03" || len(sheet.Violations) != 1 {
		t.Fatalf("expected second sheet warning, got %+v", sheet)
	}

	resp = do(t, h, http.MethodPost, "/api/v1/results", `{"files":[{"name":"a.csv"},{"name":"b.csv"}]}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("ingest: %d %s", resp.Code, resp.Body.String())
	}
	results := decodeBody[struct {
		Results []domain.ResultRecord `json:"results"`
	}](t, resp).Results
	if len(results) != 2 || results[0].TestOrderID != "ORD-001" || results[1].TestOrderID != "ORD-002" {
		t.Fatalf("unexpected ingest %+v", results)
	}
}

func TestErrorMapping(t *testing.T) {
	_, h := setup(t, nil)
	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodPost, "/api/v1/combinations", `{"front_code":"FR-Z","rear_code":"RR-a"}`, http.StatusNotFound},
		{http.MethodPost, "/api/v1/combinations", `{not json`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/orders", `{"combination_id":"T99"}`, http.StatusNotFound},
		{http.MethodPost, "/api/v1/orders/ORD-404/cancellation", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/orders/ORD-001/move", `{"direction":"up"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/orders/ORD-002/advance", `{"status":"completed"}`, http.StatusConflict},
		{http.MethodPost, "/api/v1/fields/viscosity/toggle", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/orders/ORD-404/sheet-template", "", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/orders", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/metrics", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp := do(t, h, tc.method, tc.target, tc.body)
		if resp.Code != tc.want {
			t.Fatalf("%s %s: status %d, want %d (%s)", tc.method, tc.target, resp.Code, tc.want, resp.Body.String())
		}
	}
}

func TestIngestConflictWhenNoActiveOrders(t *testing.T) {
	svc := core.NewInMemoryService(nil)
	h := httpapi.NewHandler(svc, nil)
	resp := do(t, h, http.MethodPost, "/api/v1/results", `{"files":[{"name":"a.csv"}]}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.Code, resp.Body.String())
	}
	resp = do(t, h, http.MethodPost, "/api/v1/results", `{"files":[]}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("empty batch: %d %s", resp.Code, resp.Body.String())
	}
}

func multipartUpload(t *testing.T, files map[string]string, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := io.WriteString(part, files[name]); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadArchivesFiles(t *testing.T) {
	archive := blob.NewMemory()
	_, h := setup(t, archive)
	contents := map[string]string{"run1.csv": "speed,temp\n80,41\n", "run2.csv": "speed,temp\n100,47\n"}
	body, contentType := multipartUpload(t, contents, "run1.csv", "run2.csv")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/results/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", resp.Code, resp.Body.String())
	}
	out := decodeBody[struct {
		Results       []domain.ResultRecord `json:"results"`
		ArchiveErrors []map[string]string   `json:"archive_errors"`
	}](t, resp)
	if len(out.Results) != 2 || len(out.ArchiveErrors) != 0 {
		t.Fatalf("unexpected upload response %+v", out)
	}

	for _, record := range out.Results {
		info, err := archive.Head(context.Background(), core.ResultArchiveKey(record))
		if err != nil {
			t.Fatalf("archived blob for %s: %v", record.ID, err)
		}
		if info.Metadata["order"] != record.TestOrderID {
			t.Fatalf("metadata not stored: %+v", info.Metadata)
		}
		file := do(t, h, http.MethodGet, "/api/v1/results/"+record.ID+"/file", "")
		if file.Code != http.StatusOK || file.Body.String() != contents[record.FileName] {
			t.Fatalf("download %s: %d %q", record.ID, file.Code, file.Body.String())
		}
	}

	if resp := do(t, h, http.MethodGet, "/api/v1/results/R-001/file", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("seeded result without bytes should 404, got %d", resp.Code)
	}
	if resp := do(t, h, http.MethodGet, "/api/v1/results/R-999/file", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown result should 404, got %d", resp.Code)
	}
	if resp := do(t, h, http.MethodGet, "/api/v1/results/"+out.Results[0].ID+"/file?presign=true", ""); resp.Code != http.StatusNotImplemented {
		t.Fatalf("memory archive presign should be unsupported, got %d", resp.Code)
	}
}

func TestUploadPresignWithFilesystemArchive(t *testing.T) {
	archive, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs archive: %v", err)
	}
	_, h := setup(t, archive)
	body, contentType := multipartUpload(t, map[string]string{"x.csv": "1"}, "x.csv")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/results/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", resp.Code, resp.Body.String())
	}
	record := decodeBody[struct {
		Results []domain.ResultRecord `json:"results"`
	}](t, resp).Results[0]
	presign := do(t, h, http.MethodGet, "/api/v1/results/"+record.ID+"/file?presign=true", "")
	url := decodeBody[struct {
		URL string `json:"url"`
	}](t, presign).URL
	if presign.Code != http.StatusOK || !strings.Contains(url, record.ID) {
		t.Fatalf("presign: %d %q", presign.Code, url)
	}
}

func TestUploadRemovesSpilledTempFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	archive := blob.NewMemory()
	_, h := setup(t, archive)
	h.UploadMemory = 1
	contents := map[string]string{"big.csv": strings.Repeat("speed,temp\n", 64)}
	body, contentType := multipartUpload(t, contents, "big.csv")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/results/upload", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", resp.Code, resp.Body.String())
	}
	record := decodeBody[struct {
		Results []domain.ResultRecord `json:"results"`
	}](t, resp).Results[0]
	info, err := archive.Head(context.Background(), core.ResultArchiveKey(record))
	if err != nil || info.Size != int64(len(contents["big.csv"])) {
		t.Fatalf("spilled part not archived: %+v %v", info, err)
	}
	left, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatalf("read tmp: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("upload left %d temp files behind", len(left))
	}
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	_, h := setup(t, blob.NewMemory())
	if resp := do(t, h, http.MethodPost, "/api/v1/results/upload", `{"files":[]}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	svc := core.NewInMemoryService(nil, core.WithMetricsRecorder(rec))
	h := httpapi.NewHandler(svc, nil)
	h.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	do(t, h, http.MethodGet, "/api/v1/orders", "")
	resp := do(t, h, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `tirecore_service_operations_total{operation="list_orders",status="success"} 1`) {
		t.Fatalf("unexpected metrics output: %d\n%s", resp.Code, resp.Body.String())
	}
}

func TestUnconfiguredHandler(t *testing.T) {
	var h httpapi.Handler
	if resp := do(t, &h, http.MethodGet, "/api/v1/orders", ""); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestStatusForSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: FR-Z", domain.ErrUnknownSpecCode), http.StatusNotFound},
		{domain.ErrUnknownCombination, http.StatusNotFound},
		{domain.ErrUnknownOrder, http.StatusNotFound},
		{domain.ErrUnknownFieldKey, http.StatusNotFound},
		{domain.ErrNoEligibleOrder, http.StatusConflict},
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.RuleViolationError{}, http.StatusConflict},
		{domain.ErrInvalidDirection, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := httpapi.StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
