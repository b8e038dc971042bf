package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiCategory, 0, len(categories))
	for _, c := range categories {
		out = append(out, toAPICategory(c))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req apiCategory
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category := req.toCore()
	category.ID = 0
	if err := category.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateCategory(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusCreated, toAPICategory(created))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req apiCategory
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category := req.toCore()
	category.ID = id
	if err := category.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateCategory(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, toAPICategory(updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleCategoryUsage(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := s.usageKey(year, month)
	usage, found := s.usageCache.Get(key)
	if !found {
		usage, err = s.budget.CategoryUsage(r.Context(), year, month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.usageCache.Set(key, usage)
	}

	out := make([]apiCategoryUsage, 0, len(usage))
	for _, u := range usage {
		out = append(out, toAPIUsage(u))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiBudget, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toAPIBudget(b))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req apiBudget
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	budget := req.toCore()
	budget.ID = 0
	if budget.Status == "" {
		budget.Status = core.BudgetActive
	}
	if err := budget.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateBudget(r.Context(), budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusCreated, toAPIBudget(created))
}

func (s *Server) handleCurrentBudget(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ActiveBudgets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(budgets) == 0 {
		writeError(w, r, core.NotFound("budget", 0))
		return
	}
	writeJSON(w, r, http.StatusOK, toAPIBudget(budgets[0]))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req apiBudget
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	budget := req.toCore()
	budget.ID = id
	if err := budget.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateBudget(r.Context(), budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, toAPIBudget(updated))
}

type allocationRequest struct {
	CategoryID    int64           `json:"categoryId"`
	UnusedAmount  decimal.Decimal `json:"unusedAmount"`
	Action        string          `json:"action"`
	DestinationID *int64          `json:"destinationId,omitempty"`
}

type closeMonthRequest struct {
	Allocations []allocationRequest `json:"allocations,omitempty"`
}

type closeMonthResponse struct {
	ClosedBudget apiBudget `json:"closedBudget"`
	NewBudget    apiBudget `json:"newBudget"`
	Report       apiReport `json:"monthlyReport"`
}

func (s *Server) handleCloseMonth(w http.ResponseWriter, r *http.Request) {
	var req closeMonthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	allocations := make([]core.Allocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		action := core.AllocationAction(a.Action)
		if !action.Valid() {
			writeError(w, r, core.Validationf("invalid allocation action %q", a.Action))
			return
		}
		allocations = append(allocations, core.Allocation{
			CategoryID:    a.CategoryID,
			UnusedAmount:  a.UnusedAmount,
			Action:        action,
			DestinationID: a.DestinationID,
		})
	}

	result, err := s.budget.CloseMonth(r.Context(), allocations)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, closeMonthResponse{
		ClosedBudget: toAPIBudget(result.ClosedBudget),
		NewBudget:    toAPIBudget(result.NewBudget),
		Report:       toAPIReport(result.Report),
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	var filter storage.ReportFilter
	q := r.URL.Query()
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, core.Validationf("invalid year %q", raw))
			return
		}
		filter.Year = &year
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, r, core.Validationf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}

	reports, err := s.store.ListReports(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiReport, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toAPIReport(rep))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAPIReport(report))
}
