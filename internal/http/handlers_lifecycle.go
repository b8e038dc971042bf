package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiGoal, 0, len(goals))
	for _, g := range goals {
		out = append(out, toAPIGoal(g))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req apiGoal
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	goal := req.toCore()
	goal.ID = 0
	if err := goal.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateGoal(r.Context(), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toAPIGoal(created))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req apiGoal
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	goal := req.toCore()
	goal.ID = id
	if err := goal.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateGoal(r.Context(), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAPIGoal(updated))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteGoal(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

type depositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	AccountID int64           `json:"accountId"`
}

func (s *Server) handleGoalDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.lifecycle.GoalDeposit(r.Context(), id, req.Amount, req.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, struct {
		Goal        apiGoal        `json:"goal"`
		Transaction apiTransaction `json:"transaction"`
	}{toAPIGoal(result.Goal), toAPITransaction(result.Transaction)})
}

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	installments, err := s.store.ListInstallments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiInstallment, 0, len(installments))
	for _, i := range installments {
		out = append(out, toAPIInstallment(i))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateInstallment(w http.ResponseWriter, r *http.Request) {
	var req apiInstallment
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	installment := req.toCore()
	installment.ID = 0
	if installment.Status == "" {
		installment.Status = core.InstallmentActive
	}
	if installment.NextPaymentDate.IsZero() {
		installment.NextPaymentDate = installment.StartDate
	}
	if err := installment.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateInstallment(r.Context(), installment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toAPIInstallment(created))
}

func (s *Server) handleUpdateInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req apiInstallment
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	installment := req.toCore()
	installment.ID = id
	if err := installment.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateInstallment(r.Context(), installment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAPIInstallment(updated))
}

func (s *Server) handleDeleteInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteInstallment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleInstallmentPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.lifecycle.InstallmentPayment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, struct {
		Installment apiInstallment `json:"installment"`
		Transaction apiTransaction `json:"transaction"`
	}{toAPIInstallment(result.Installment), toAPITransaction(result.Transaction)})
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := s.store.ListInvestments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]apiInvestment, 0, len(investments))
	for _, v := range investments {
		out = append(out, toAPIInvestment(v))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req apiInvestment
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	investment := req.toCore()
	investment.ID = 0
	if investment.StartDate.IsZero() {
		investment.StartDate = time.Now().UTC()
	}
	if investment.CurrentValue.IsZero() {
		investment.CurrentValue = investment.InitialAmount
	}
	if err := investment.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.CreateInvestment(r.Context(), investment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toAPIInvestment(created))
}

func (s *Server) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req apiInvestment
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	investment := req.toCore()
	investment.ID = id
	if err := investment.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.store.UpdateInvestment(r.Context(), investment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toAPIInvestment(updated))
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteInvestment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleInvestmentDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.lifecycle.InvestmentDeposit(r.Context(), id, req.Amount, req.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusOK, struct {
		Investment  apiInvestment  `json:"investment"`
		Transaction apiTransaction `json:"transaction"`
	}{toAPIInvestment(result.Investment), toAPITransaction(result.Transaction)})
}

type liquidateRequest struct {
	Action          string `json:"action"`
	DestinationType string `json:"destinationType,omitempty"`
	DestinationID   *int64 `json:"destinationId,omitempty"`
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req liquidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.lifecycle.Liquidate(r.Context(), id, req.Action, req.DestinationType, req.DestinationID); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()
	writeJSON(w, r, http.StatusNoContent, nil)
}
