package httpapi

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

type HealthHandler struct{}

func (HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"uptime_seconds": int(time.Since(startedAt).Seconds()),
	})
}
