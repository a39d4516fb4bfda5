package server

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/layer"
	"github.com/sells-group/placemap/internal/viewer"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: write response",
			zap.String("request_id", requestIDFrom(r.Context())), zap.Error(err))
	}
}

// statusOf maps controller errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case eris.Is(err, viewer.ErrInvalidFilter):
		return http.StatusBadRequest
	case eris.Is(err, viewer.ErrUnknownPlace):
		return http.StatusNotFound
	case eris.Is(err, viewer.ErrNoData):
		return http.StatusNotFound
	case eris.Is(err, viewer.ErrUnavailable):
		return http.StatusUnprocessableEntity
	case eris.Is(err, layer.ErrCapacityExceeded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("server: request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, r, status, errorBody{Error: msg, RequestID: requestIDFrom(r.Context())})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeJSON(w, r, http.StatusBadRequest, errorBody{Error: msg, RequestID: requestIDFrom(r.Context())})
}
