package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"covidstats/internal/storage"

	"go.uber.org/zap"
)

const statusClientClosed = 499

var errTrailingData = errors.New("unexpected data after JSON body")

type apiError struct {
	HTTPStatus int
	Message    string
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		if logger != nil {
			logger.Errorw("failed to encode response", "err", err)
		}
	}
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

func writeAPIError(w http.ResponseWriter, apiErr *apiError) {
	if apiErr == nil {
		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeText(w, apiErr.HTTPStatus, apiErr.Message)
}

func badRequest(format string, args ...any) *apiError {
	return &apiError{HTTPStatus: http.StatusBadRequest, Message: "Bad Request: " + fmt.Sprintf(format, args...)}
}

func mapErrorWithLog(logger *zap.SugaredLogger, err error) *apiError {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &apiError{HTTPStatus: statusClientClosed, Message: "Client Closed Request"}
	case errors.Is(err, storage.ErrStateNotFound):
		return &apiError{HTTPStatus: http.StatusNotFound, Message: "State not found"}
	case errors.Is(err, storage.ErrDistrictNotFound):
		return &apiError{HTTPStatus: http.StatusNotFound, Message: "District not found"}
	default:
		if logger != nil {
			logger.Errorw("unexpected error", "err", err)
		}
		return &apiError{HTTPStatus: http.StatusInternalServerError, Message: "Internal Server Error"}
	}
}

// pathID parses the named path segment as a base-10 int64.
func pathID(r *http.Request, name string) (int64, *apiError) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}
