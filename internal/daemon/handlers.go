package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"accession/internal/api"
	"accession/internal/logging"
	"accession/internal/metadata"
	"accession/internal/services"
	"accession/internal/workflow"
)

const maxBodyBytes = 1 << 20

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	var q metadata.Query
	if err := decodeBody(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.svc.Lookup(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req workflow.IntakeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.svc.Intake(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.List(r.Context(), r.URL.Query()["status"]...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.EntryListResponse{Items: items})
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *apiServer) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var edits workflow.Edits
	if err := decodeBody(r, &edits); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.svc.Edit(r.Context(), id, edits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *apiServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var decision workflow.Decision
	if err := decodeBody(r, &decision); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.svc.Confirm(r.Context(), id, decision)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *apiServer) handleInsert(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.svc.Insert(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.svc.AuditTrail(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.AuditTrailResponse{Items: items})
}

func entryID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid entry id %q", services.ErrValidation, raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", services.ErrValidation)
		}
		return fmt.Errorf("%w: malformed request body: %w", services.ErrValidation, err)
	}
	return nil
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch services.Kind(err) {
	case services.KindValidation, services.KindInvalidState:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
	} else {
		logger.Debug("request rejected",
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String("reason", strings.TrimSpace(err.Error())),
		)
	}
	writeJSON(w, status, api.ErrorFor(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
