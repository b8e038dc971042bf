package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	transactions, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiTransaction, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toAPITransaction(t))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func transactionFilterFromQuery(r *http.Request) (storage.TransactionFilter, error) {
	var filter storage.TransactionFilter
	q := r.URL.Query()

	if raw := firstNonEmpty(q.Get("startDate"), q.Get("from")); raw != "" {
		from, err := parseFilterDate(raw)
		if err != nil {
			return filter, core.Validationf("invalid startDate %q", raw)
		}
		filter.From = &from
	}
	if raw := firstNonEmpty(q.Get("endDate"), q.Get("to")); raw != "" {
		to, err := parseFilterDate(raw)
		if err != nil {
			return filter, core.Validationf("invalid endDate %q", raw)
		}
		filter.To = &to
	}
	if raw := q.Get("type"); raw != "" {
		tt := core.TransactionType(raw)
		if !tt.Valid() {
			return filter, core.Validationf("invalid transaction type %q", raw)
		}
		filter.Type = &tt
	}
	if raw := q.Get("accountId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, core.Validationf("invalid accountId %q", raw)
		}
		filter.AccountID = &id
	}
	filter.Category = q.Get("category")
	filter.TransferGroupID = q.Get("transferGroupId")
	return filter, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseFilterDate accepts RFC3339 timestamps and plain dates.
func parseFilterDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req apiTransaction
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t := req.toCore()
	t.ID = 0
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}

	created, err := s.ledger.Record(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusCreated, toAPITransaction(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAPITransaction(t))
}

type transactionPatchRequest struct {
	Date        *time.Time       `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	CategoryID  *int64           `json:"categoryId,omitempty"`
	Type        *string          `json:"type,omitempty"`
	AccountID   *int64           `json:"accountId,omitempty"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patch := services.TransactionPatch{
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
	}
	if req.Type != nil {
		tt := core.TransactionType(*req.Type)
		patch.Type = &tt
	}

	updated, err := s.ledger.Amend(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, toAPITransaction(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.Retract(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusNoContent, nil)
}

type transferRequest struct {
	SourceAccountID      int64           `json:"sourceAccountId"`
	DestinationAccountID int64           `json:"destinationAccountId"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description,omitempty"`
	Date                 *time.Time      `json:"date,omitempty"`
}

type transferResponse struct {
	Withdrawal apiTransaction `json:"withdrawal"`
	Deposit    apiTransaction `json:"deposit"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date := time.Now().UTC()
	if req.Date != nil {
		date = *req.Date
	}

	result, err := s.ledger.Transfer(r.Context(),
		req.SourceAccountID, req.DestinationAccountID, req.Amount, req.Description, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusCreated, transferResponse{
		Withdrawal: toAPITransaction(result.Withdrawal),
		Deposit:    toAPITransaction(result.Deposit),
	})
}

func (s *Server) handleBudgetTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.ledger.BudgetTransfer(r.Context(),
		req.SourceAccountID, req.DestinationAccountID, req.Amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusCreated, transferResponse{
		Withdrawal: toAPITransaction(result.Withdrawal),
		Deposit:    toAPITransaction(result.Deposit),
	})
}
