package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/server/middleware"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFromErr maps domain sentinel errors to HTTP status codes. Anything
// unrecognized is treated as an internal error.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrPoolPaused),
		errors.Is(err, domain.ErrLockHeld):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidFee),
		errors.Is(err, domain.ErrInvalidRoute),
		errors.Is(err, domain.ErrAssetNotWhitelisted),
		errors.Is(err, domain.ErrMaxLoanRatioExceeded):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoProfit),
		errors.Is(err, domain.ErrLoanNotRepaid),
		errors.Is(err, domain.ErrDeadlineExceeded),
		errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrSigningFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError converts a service-layer error into an HTTP response.
// Client errors surface the underlying message so callers can see which rule
// rejected the request; internal errors are masked and logged instead.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, msg string) {
	status := statusFromErr(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "handler: "+msg,
			slog.String("error", err.Error()),
		)
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}

// parseListOpts extracts pagination and time-window parameters from the query
// string. Defaults: limit=50 (max 500), offset=0. Time bounds accept RFC 3339
// timestamps or plain dates (2006-01-02).
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	opts := domain.ListOpts{Limit: limit, Offset: offset}
	if t, ok := parseTime(q.Get("since")); ok {
		opts.Since = &t
	}
	if t, ok := parseTime(q.Get("until")); ok {
		opts.Until = &t
	}
	return opts
}

func parseTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// callerIdentity resolves the acting identity for a mutating request. An
// authenticated identity from the request context always wins; unauthenticated
// deployments fall back to the identity named in the request body.
func callerIdentity(r *http.Request, body string) domain.Identity {
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		return id
	}
	if body != "" {
		return domain.Identity(body)
	}
	return domain.Identity("anonymous")
}
