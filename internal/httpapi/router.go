package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the admin API behind the standard middleware chain.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.HandleFunc("/health", HealthHandler{}.Health).Methods(http.MethodGet)

	sh := ScrapingHandler{Admin: d.Admin}
	s := r.PathPrefix("/scraping").Subrouter()
	s.HandleFunc("/trigger", sh.TriggerAll).Methods(http.MethodPost)
	s.HandleFunc("/trigger/{company}", sh.TriggerCompany).Methods(http.MethodPost)
	s.HandleFunc("/status/{task_id}", sh.TaskStatus).Methods(http.MethodGet)
	s.HandleFunc("/status/{task_id}/cancel", sh.CancelTask).Methods(http.MethodPost)
	s.HandleFunc("/summary", sh.Summary).Methods(http.MethodGet)
	s.HandleFunc("/logs", sh.Logs).Methods(http.MethodGet)
	s.HandleFunc("/companies", sh.Companies).Methods(http.MethodGet)
	s.HandleFunc("/companies", sh.CreateCompany).Methods(http.MethodPost)
	s.HandleFunc("/test", sh.TestAdapter).Methods(http.MethodPost)
	s.HandleFunc("/stats", sh.Stats).Methods(http.MethodGet)
	s.HandleFunc("/validate", sh.Validate).Methods(http.MethodGet)

	r.HandleFunc("/jobs", JobsHandler{Admin: d.Admin}.List).Methods(http.MethodGet)

	if d.Hub != nil {
		r.HandleFunc("/events", EventsHandler{Hub: d.Hub}.ServeSSE).Methods(http.MethodGet)
	}

	return Chain(r, RequestID, Recover, AccessLog, Cors(d.AllowedOrigins))
}
