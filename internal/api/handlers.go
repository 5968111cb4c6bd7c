package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"time"

	"risk-register-backup/internal/backup"
	"risk-register-backup/internal/logging"
	"risk-register-backup/internal/snapshot"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// APIError is the body of every non-2xx JSON response
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type listQuery struct {
	Status string `validate:"omitempty,oneof=completed failed"`
	Limit  int    `validate:"gte=0,lte=1000"`
}

type listResponse struct {
	Backups []backup.BackupRecord `json:"backups"`
	Count   int                   `json:"count"`
}

// handleExport streams the serialized register as a file download.
// kind=automatic is reserved for privileged roles.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	kind, err := backup.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_KIND", err.Error())
		return
	}
	if kind == backup.KindAutomatic && !slices.Contains(s.privilegedRoles, claims.Role) {
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "Only privileged roles may trigger automatic backups")
		return
	}

	artifact, err := s.service.Export(r.Context(), backup.ExportRequest{Kind: kind, UserID: claims.UserID()})
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("Export failed")
		status, code := statusForError(err)
		respondError(w, r, status, code, "Backup export failed")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("X-Backup-Record-Id", artifact.Record.ID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Warn("Failed to write export artifact")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := listQuery{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer")
			return
		}
		q.Limit = limit
	}
	if err := validate.Struct(q); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", describeValidation(err))
		return
	}

	records, err := s.service.List(r.Context(), backup.RecordFilter{Status: backup.Status(q.Status), Limit: q.Limit})
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("Listing backups failed")
		status, code := statusForError(err)
		respondError(w, r, status, code, "Could not list backups")
		return
	}
	if records == nil {
		records = []backup.BackupRecord{}
	}
	respondJSON(w, http.StatusOK, listResponse{Backups: records, Count: len(records)})
}

// handleRestore applies an uploaded artifact. Only a rejected document
// produces a non-2xx status; per-record failures are reported in the body.
// dry_run=true validates without writing.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "TOO_LARGE", fmt.Sprintf("Backup exceeds %d bytes", s.maxUploadBytes))
			return
		}
		respondError(w, r, http.StatusBadRequest, "READ_FAILED", "Could not read request body")
		return
	}

	var dryRun bool
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		dryRun, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "INVALID_DRY_RUN", fmt.Sprintf("dry_run must be true or false, got %q", raw))
			return
		}
	}

	start := time.Now()
	outcome := s.restoreOrCheck(r, data, dryRun)

	s.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"accepted": outcome.Accepted,
		"applied":  outcome.Applied(),
		"errors":   len(outcome.Errors),
		"dry_run":  dryRun,
		"duration": time.Since(start).String(),
	}).Info("Restore request handled")

	status := http.StatusOK
	if !outcome.Accepted {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, outcome)
}

func (s *Server) restoreOrCheck(r *http.Request, data []byte, dryRun bool) *snapshot.RestoreOutcome {
	if dryRun {
		return s.service.Check(data)
	}
	return s.service.Restore(r.Context(), data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "Database is not reachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusForError(err error) (int, string) {
	switch backup.ErrorType(err) {
	case backup.BackupErrorTypeValidation:
		return http.StatusBadRequest, string(backup.BackupErrorTypeValidation)
	case backup.BackupErrorTypeNotFound:
		return http.StatusNotFound, string(backup.BackupErrorTypeNotFound)
	case "":
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	default:
		return http.StatusInternalServerError, string(backup.ErrorType(err))
	}
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Field() {
	case "Status":
		return "status must be completed or failed"
	case "Limit":
		return "limit must be between 0 and 1000"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, APIError{
		Code:      code,
		Message:   message,
		RequestID: logging.GetRequestIDFromContext(r.Context()),
	})
}
