package httpapi

import (
	"net/http"

	"jobingest-engine/internal/admin"
	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
)

type JobsHandler struct {
	Admin *admin.Service
}

// List serves GET /jobs?source=&company=&sort=&order=&limit=.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	q := r.URL.Query()
	jobs, err := h.Admin.Jobs(r.Context(), store.JobFilter{
		Source:  q.Get("source"),
		Company: q.Get("company"),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
		Limit:   limit,
	}.Normalized())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}
