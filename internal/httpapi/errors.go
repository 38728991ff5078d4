package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
	"jobingest-engine/internal/tasks"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeErr maps store sentinels and error kinds onto HTTP statuses.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, tasks.ErrTaskNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, store.ErrDuplicateKey):
		WriteError(w, r, http.StatusConflict, "duplicate", err.Error())
		return
	case errors.Is(err, tasks.ErrTaskFinished):
		WriteError(w, r, http.StatusConflict, "task_finished", err.Error())
		return
	}

	switch kind := domain.KindOf(err); kind {
	case domain.KindConfigInvalid:
		WriteError(w, r, http.StatusBadRequest, string(kind), err.Error())
	case domain.KindSourceUnavailable, domain.KindRenderTimeout:
		WriteError(w, r, http.StatusBadGateway, string(kind), err.Error())
	case domain.KindTimeout:
		WriteError(w, r, http.StatusGatewayTimeout, string(kind), err.Error())
	default:
		log.Printf("level=error msg=\"request failed\" request_id=%s path=%s err=%v", RequestIDFrom(r.Context()), r.URL.Path, err)
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
