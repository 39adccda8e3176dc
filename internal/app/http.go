package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/search"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/store"
)

const maxUploadBytes = 32 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "healthy"})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"store": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["store"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "projects" {
		projectID := parts[2]
		rest := parts[3:]

		switch {
		case len(rest) == 1 && rest[0] == "transcripts" && r.Method == http.MethodGet:
			transcripts, err := s.service.ListTranscripts(r.Context(), projectID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"transcripts": transcripts})
			return

		case len(rest) == 1 && rest[0] == "transcripts" && r.Method == http.MethodPost:
			s.handleUploadTranscript(w, r, projectID)
			return

		case len(rest) == 2 && rest[0] == "transcripts" && r.Method == http.MethodDelete:
			if err := s.service.DeleteTranscript(r.Context(), projectID, rest[1]); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return

		case len(rest) == 3 && rest[0] == "transcripts" && rest[2] == "file" && r.Method == http.MethodGet:
			body, filename, err := s.service.TranscriptFile(r.Context(), projectID, rest[1])
			if err != nil {
				writeMappedError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return

		case len(rest) == 1 && rest[0] == "analyses" && r.Method == http.MethodGet:
			analyses, err := s.service.ListAnalyses(r.Context(), projectID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
			return

		case len(rest) == 2 && rest[0] == "analyses" && r.Method == http.MethodGet:
			analysis, err := s.service.GetAnalysis(r.Context(), projectID, rest[1])
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, analysis)
			return

		case len(rest) == 2 && rest[0] == "analyses" && r.Method == http.MethodPut:
			var input SaveAnalysisInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			analysis, result, err := s.service.SaveAnalysis(r.Context(), projectID, rest[1], input)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"analysis": analysis,
				"updated":  result.Updated,
				"count":    result.Count,
			})
			return

		case len(rest) == 3 && rest[0] == "analyses" && rest[2] == "recompute" && r.Method == http.MethodPost:
			result, err := s.service.Recompute(r.Context(), projectID, rest[1])
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
			return

		case len(rest) == 4 && rest[0] == "analyses" && rest[2] == "transcripts" && r.Method == http.MethodDelete:
			// An analysis or transcript that is already gone is not an
			// error; the caller learns updated=false.
			result, err := s.service.RemoveFromAnalysis(r.Context(), projectID, rest[1], rest[3])
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
			return

		case len(rest) == 3 && rest[0] == "analyses" && rest[2] == "history" && r.Method == http.MethodGet:
			limit := 50
			if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
					return
				}
				limit = parsed
			}
			history, err := s.service.History(projectID, rest[1], limit)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"history": history})
			return

		case len(rest) == 4 && rest[0] == "analyses" && rest[2] == "snapshots" && r.Method == http.MethodGet:
			body, err := s.service.SnapshotContent(projectID, rest[1], rest[3])
			if err != nil {
				writeMappedError(w, err)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return

		case len(rest) == 5 && rest[0] == "analyses" && rest[2] == "sheets" && rest[4] == "export" && r.Method == http.MethodGet:
			sheetName, err := url.PathUnescape(rest[3])
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_PATH", "invalid sheet name", nil)
				return
			}
			body, err := s.service.ExportSheetCSV(r.Context(), projectID, rest[1], sheetName)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheetName+".csv"))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	filterType := strings.TrimSpace(r.URL.Query().Get("type"))
	projectID := strings.TrimSpace(r.URL.Query().Get("project"))

	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		offset = parsed
	}
	if filterType != "" && filterType != string(search.ResultTranscript) && filterType != string(search.ResultAnalysis) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be transcript or analysis", nil)
		return
	}

	response := s.service.Search(search.Query{
		Text:            q,
		FilterType:      search.ResultType(filterType),
		FilterProjectID: projectID,
		Limit:           limit,
		Offset:          offset,
	})
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleUploadTranscript(w http.ResponseWriter, r *http.Request, projectID string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read uploaded file", nil)
		return
	}

	transcript, err := s.service.UploadTranscript(
		r.Context(),
		projectID,
		header.Filename,
		header.Header.Get("Content-Type"),
		body,
		r.FormValue("interviewDate"),
		r.FormValue("interviewTime"),
	)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transcript)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotExist) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
