// Package httpapi exposes the tire test ledger as a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"tirecore/internal/blob"
	"tirecore/internal/core"
	"tirecore/pkg/domain"
)

const maxUploadMemory = 32 << 20

// Handler routes /api/v1 requests to the ledger service. Archive is optional;
// without it uploads are ingested by name only and file downloads return 404.
type Handler struct {
	Service *core.Service
	Archive blob.Store
	Metrics http.Handler
	Logger  core.Logger

	// UploadMemory caps the bytes of a multipart upload held in memory before
	// parts spill to temp files. Zero means 32 MiB.
	UploadMemory int64

	mux *http.ServeMux
}

// NewHandler constructs the API handler.
func NewHandler(svc *core.Service, archive blob.Store) *Handler {
	h := &Handler{Service: svc, Archive: archive}
	h.mux = h.routes()
	return h
}

func (h *Handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/catalog", h.handleCatalog)
	mux.HandleFunc("GET /api/v1/combinations", h.handleListCombinations)
	mux.HandleFunc("POST /api/v1/combinations", h.handleAddCombination)
	mux.HandleFunc("GET /api/v1/orders", h.handleListOrders)
	mux.HandleFunc("POST /api/v1/orders", h.handleAddOrder)
	mux.HandleFunc("POST /api/v1/orders/{id}/move", h.handleMoveOrder)
	mux.HandleFunc("POST /api/v1/orders/{id}/cancellation", h.handleToggleCancellation)
	mux.HandleFunc("POST /api/v1/orders/{id}/advance", h.handleAdvanceOrder)
	mux.HandleFunc("GET /api/v1/orders/{id}/sheet-template", h.handleSheetTemplate)
	mux.HandleFunc("GET /api/v1/sheets", h.handleListSheets)
	mux.HandleFunc("POST /api/v1/sheets", h.handleRecordSheet)
	mux.HandleFunc("GET /api/v1/fields", h.handleListFields)
	mux.HandleFunc("POST /api/v1/fields/{key}/toggle", h.handleToggleField)
	mux.HandleFunc("GET /api/v1/results", h.handleListResults)
	mux.HandleFunc("POST /api/v1/results", h.handleIngest)
	mux.HandleFunc("POST /api/v1/results/upload", h.handleUpload)
	mux.HandleFunc("GET /api/v1/results/{id}/file", h.handleResultFile)
	mux.HandleFunc("GET /api/v1/audit", h.handleAudit)
	mux.HandleFunc("GET /api/v1/progress", h.handleProgress)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
	return mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "ledger service not configured")
		return
	}
	if h.mux == nil {
		h.mux = h.routes()
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	c := h.Service.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{"front": c.Front, "rear": c.Rear})
}

func (h *Handler) handleListCombinations(w http.ResponseWriter, r *http.Request) {
	combos, err := h.Service.ListCombinations(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"combinations": combos})
}

func (h *Handler) handleAddCombination(w http.ResponseWriter, r *http.Request) {
	var in core.CombinationInput
	if !decode(w, r, &in) {
		return
	}
	combo, res, err := h.Service.AddCombination(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"combination": combo, "violations": res.Violations})
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Service.ListOrders(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) handleAddOrder(w http.ResponseWriter, r *http.Request) {
	var in core.OrderInput
	if !decode(w, r, &in) {
		return
	}
	order, res, err := h.Service.AddOrder(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order, "violations": res.Violations})
}

type moveRequest struct {
	Direction domain.Direction `json:"direction"`
}

func (h *Handler) handleMoveOrder(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	moved, _, err := h.Service.Reposition(r.Context(), r.PathValue("id"), req.Direction)
	if err != nil {
		h.fail(w, err)
		return
	}
	orders, err := h.Service.ListOrders(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "orders": orders})
}

func (h *Handler) handleToggleCancellation(w http.ResponseWriter, r *http.Request) {
	order, res, err := h.Service.ToggleCancellation(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order, "violations": res.Violations})
}

type advanceRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) handleAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if !decode(w, r, &req) {
		return
	}
	order, res, err := h.Service.AdvanceOrder(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order, "violations": res.Violations})
}

func (h *Handler) handleSheetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.Service.SheetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": tpl})
}

func (h *Handler) handleListSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := h.Service.ListSheets(r.Context(), r.URL.Query().Get("order"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheets": sheets})
}

func (h *Handler) handleRecordSheet(w http.ResponseWriter, r *http.Request) {
	var sheet domain.EvaluationSheet
	if !decode(w, r, &sheet) {
		return
	}
	created, res, err := h.Service.RecordSheet(r.Context(), sheet)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sheet": created, "violations": res.Violations})
}

func (h *Handler) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.Service.SheetFieldConfig(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

func (h *Handler) handleToggleField(w http.ResponseWriter, r *http.Request) {
	field, _, err := h.Service.ToggleField(r.Context(), r.PathValue("key"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field})
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.Service.ListResults(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type ingestRequest struct {
	Files []domain.FileDescriptor `json:"files"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decode(w, r, &req) {
		return
	}
	created, _, err := h.Service.Ingest(r.Context(), req.Files)
	if err != nil {
		h.fail(w, err)
		return
	}
	if created == nil {
		created = []domain.ResultRecord{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"results": created})
}

type archiveFailure struct {
	ResultID string `json:"result_id"`
	Error    string `json:"error"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := h.UploadMemory
	if limit <= 0 {
		limit = maxUploadMemory
	}
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	headers := r.MultipartForm.File["files"]
	descriptors := make([]domain.FileDescriptor, 0, len(headers))
	for _, fh := range headers {
		descriptors = append(descriptors, domain.FileDescriptor{Name: fh.Filename})
	}
	created, _, err := h.Service.Ingest(r.Context(), descriptors)
	if err != nil {
		h.fail(w, err)
		return
	}
	if created == nil {
		created = []domain.ResultRecord{}
	}
	failures := make([]archiveFailure, 0)
	if h.Archive != nil {
		for i, record := range created {
			if err := h.archive(r, record, headers[i]); err != nil {
				h.logger().Error("result archive failed", "result_id", record.ID, "error", err)
				failures = append(failures, archiveFailure{ResultID: record.ID, Error: err.Error()})
			}
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"results": created, "archive_errors": failures})
}

func (h *Handler) archive(r *http.Request, record domain.ResultRecord, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = h.Archive.Put(r.Context(), core.ResultArchiveKey(record), f, blob.ResultPutOptions(record, fh.Header.Get("Content-Type")))
	return err
}

func (h *Handler) handleResultFile(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeError(w, http.StatusNotFound, "result archive not configured")
		return
	}
	id := r.PathValue("id")
	results, err := h.Service.ListResults(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	var record *domain.ResultRecord
	for i := range results {
		if results[i].ID == id {
			record = &results[i]
			break
		}
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}
	key := core.ResultArchiveKey(*record)
	if r.URL.Query().Get("presign") == "true" {
		url, err := h.Archive.PresignURL(r.Context(), key, blob.SignedURLOptions{Method: http.MethodGet, Expiry: 15 * time.Minute})
		switch {
		case errors.Is(err, blob.ErrUnsupported):
			writeError(w, http.StatusNotImplemented, "presigned urls not supported by archive")
		case err != nil:
			h.fail(w, err)
		default:
			writeJSON(w, http.StatusOK, map[string]any{"url": url})
		}
		return
	}
	info, body, err := h.Archive.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result file not archived")
			return
		}
		h.fail(w, err)
		return
	}
	defer body.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(record.FileName)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	trail, err := h.Service.AuditTrail(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_trail": trail})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.Service.Progress(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": progress})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.Metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.Metrics.ServeHTTP(w, r)
}

func (h *Handler) logger() core.Logger {
	if h.Logger == nil {
		return nopLogger{}
	}
	return h.Logger
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func decode(w http.ResponseWriter, r *http.Request, target any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}
