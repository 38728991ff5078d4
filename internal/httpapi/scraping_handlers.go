package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"jobingest-engine/internal/admin"
	"jobingest-engine/internal/domain"
	"jobingest-engine/internal/store"
)

type ScrapingHandler struct {
	Admin *admin.Service
}

type taskAccepted struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h ScrapingHandler) TriggerAll(w http.ResponseWriter, r *http.Request) {
	info, err := h.Admin.TriggerAll(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, taskAccepted{
		TaskID:  info.ID,
		Status:  string(info.Status),
		Message: "scraping started for all active companies",
	})
}

func (h ScrapingHandler) TriggerCompany(w http.ResponseWriter, r *http.Request) {
	company := mux.Vars(r)["company"]
	info, err := h.Admin.TriggerCompany(r.Context(), company)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, taskAccepted{
		TaskID:  info.ID,
		Status:  string(info.Status),
		Message: "scraping started for " + company,
	})
}

func (h ScrapingHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.Admin.TaskStatus(r.Context(), mux.Vars(r)["task_id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

func (h ScrapingHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["task_id"]
	if err := h.Admin.CancelTask(id); err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"task_id": id, "status": "cancelling"})
}

func (h ScrapingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, ok := h.Admin.LastSummary()
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "no run has finished yet")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"summary":      sum,
		"success_rate": sum.SuccessRate(),
	})
}

func (h ScrapingHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", store.DefaultLogLimit)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	logs, err := h.Admin.Logs(r.Context(), store.RunLogFilter{
		Company: strings.TrimSpace(r.URL.Query().Get("company")),
		Source:  strings.TrimSpace(r.URL.Query().Get("source")),
		Limit:   limit,
		Skip:    skip,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.ScrapingRunLog{}
	}
	WriteJSON(w, http.StatusOK, logs)
}

func (h ScrapingHandler) Companies(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") != "false"
	cfgs, err := h.Admin.Companies(r.Context(), activeOnly)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if cfgs == nil {
		cfgs = []domain.CompanyScraperConfig{}
	}
	WriteJSON(w, http.StatusOK, cfgs)
}

type createCompanyRequest struct {
	CompanyName string         `json:"company_name"`
	ScraperType string         `json:"scraper_type"`
	Config      map[string]any `json:"config"`
	IsActive    *bool          `json:"is_active"`
}

func (h ScrapingHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := h.Admin.CreateCompany(r.Context(), domain.CompanyScraperConfig{
		CompanyName: req.CompanyName,
		ScraperType: domain.ScraperType(req.ScraperType),
		Config:      req.Config,
		IsActive:    active,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

type testRequest struct {
	CompanyName string `json:"company_name"`
	SampleSize  int    `json:"sample_size"`
}

func (h ScrapingHandler) TestAdapter(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "company_name is required")
		return
	}
	res, err := h.Admin.TestAdapter(r.Context(), req.CompanyName, req.SampleSize)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h ScrapingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", admin.DefaultStatsDays)
	if err != nil || days == 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "days must be a positive integer")
		return
	}
	rep, err := h.Admin.Stats(r.Context(), days)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rep)
}

func (h ScrapingHandler) Validate(w http.ResponseWriter, r *http.Request) {
	res, err := h.Admin.ValidateAll(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	valid := 0
	for _, v := range res {
		if v.IsValid {
			valid++
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"total_scrapers":   len(res),
		"valid_scrapers":   valid,
		"invalid_scrapers": len(res) - valid,
		"results":          res,
	})
}
