package http

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type dashboardResponse struct {
	TotalBalance    decimal.Decimal      `json:"totalBalance"`
	TotalIncome     decimal.Decimal      `json:"totalIncome"`
	TotalExpenses   decimal.Decimal      `json:"totalExpenses"`
	RemainingBudget decimal.Decimal      `json:"remainingBudget"`
	IncomeTrend     decimal.Decimal      `json:"incomeTrend"`
	ExpensesTrend   decimal.Decimal      `json:"expensesTrend"`
	CategoryData    []categoryAmountItem `json:"categoryData"`
	MonthlyData     []monthlyFlowItem    `json:"monthlyData"`
}

type categoryAmountItem struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type monthlyFlowItem struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

const statsCacheKey = "dashboard"

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, found := s.statsCache.Get(statsCacheKey)
	if !found {
		var err error
		stats, err = s.stats.Stats(r.Context(), time.Now().UTC())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.statsCache.Set(statsCacheKey, stats)
	}

	resp := dashboardResponse{
		TotalBalance:    stats.TotalBalance,
		TotalIncome:     stats.TotalIncome,
		TotalExpenses:   stats.TotalExpenses,
		RemainingBudget: stats.RemainingBudget,
		IncomeTrend:     stats.IncomeTrend,
		ExpensesTrend:   stats.ExpensesTrend,
		CategoryData:    make([]categoryAmountItem, 0, len(stats.CategoryData)),
		MonthlyData:     make([]monthlyFlowItem, 0, len(stats.MonthlyData)),
	}
	for _, c := range stats.CategoryData {
		resp.CategoryData = append(resp.CategoryData, categoryAmountItem{Name: c.Name, Value: c.Value})
	}
	for _, m := range stats.MonthlyData {
		resp.MonthlyData = append(resp.MonthlyData, monthlyFlowItem{Month: m.Month, Income: m.Income, Expenses: m.Expenses})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// exportBundle is the portable snapshot format shared by export and import.
type exportBundle struct {
	Accounts     []apiAccount     `json:"accounts"`
	Budgets      []apiBudget      `json:"budgets"`
	Goals        []apiGoal        `json:"goals"`
	Installments []apiInstallment `json:"installments"`
	Investments  []apiInvestment  `json:"investments"`
	Transactions []apiTransaction `json:"transactions"`
}

type importResponse struct {
	Imported struct {
		Accounts     int `json:"accounts"`
		Budgets      int `json:"budgets"`
		Goals        int `json:"goals"`
		Installments int `json:"installments"`
		Investments  int `json:"investments"`
		Transactions int `json:"transactions"`
	} `json:"imported"`
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req exportBundle
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	bundle := services.ImportBundle{
		Accounts:     make([]core.Account, 0, len(req.Accounts)),
		Budgets:      make([]core.Budget, 0, len(req.Budgets)),
		Goals:        make([]core.Goal, 0, len(req.Goals)),
		Installments: make([]core.Installment, 0, len(req.Installments)),
		Investments:  make([]core.Investment, 0, len(req.Investments)),
		Transactions: make([]core.Transaction, 0, len(req.Transactions)),
	}
	for _, a := range req.Accounts {
		bundle.Accounts = append(bundle.Accounts, a.toCore())
	}
	for _, b := range req.Budgets {
		bundle.Budgets = append(bundle.Budgets, b.toCore())
	}
	for _, g := range req.Goals {
		bundle.Goals = append(bundle.Goals, g.toCore())
	}
	for _, i := range req.Installments {
		bundle.Installments = append(bundle.Installments, i.toCore())
	}
	for _, v := range req.Investments {
		bundle.Investments = append(bundle.Investments, v.toCore())
	}
	for _, t := range req.Transactions {
		bundle.Transactions = append(bundle.Transactions, t.toCore())
	}

	result, err := s.importer.Import(r.Context(), bundle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateCaches()

	var resp importResponse
	resp.Imported.Accounts = result.Accounts
	resp.Imported.Budgets = result.Budgets
	resp.Imported.Goals = result.Goals
	resp.Imported.Installments = result.Installments
	resp.Imported.Investments = result.Investments
	resp.Imported.Transactions = result.Transactions
	// Surface at most the first ten failures, the count tells the rest.
	if len(result.Errors) > 10 {
		resp.Errors = result.Errors[:10]
	} else {
		resp.Errors = result.Errors
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "csv" {
		s.exportCSV(w, r)
		return
	}

	ctx := r.Context()
	bundle := exportBundle{
		Accounts:     []apiAccount{},
		Budgets:      []apiBudget{},
		Goals:        []apiGoal{},
		Installments: []apiInstallment{},
		Investments:  []apiInvestment{},
		Transactions: []apiTransaction{},
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, a := range accounts {
		bundle.Accounts = append(bundle.Accounts, toAPIAccount(a))
	}

	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, b := range budgets {
		bundle.Budgets = append(bundle.Budgets, toAPIBudget(b))
	}

	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, g := range goals {
		bundle.Goals = append(bundle.Goals, toAPIGoal(g))
	}

	installments, err := s.store.ListInstallments(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, i := range installments {
		bundle.Installments = append(bundle.Installments, toAPIInstallment(i))
	}

	investments, err := s.store.ListInvestments(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, v := range investments {
		bundle.Investments = append(bundle.Investments, toAPIInvestment(v))
	}

	transactions, err := s.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, t := range transactions {
		bundle.Transactions = append(bundle.Transactions, toAPITransaction(t))
	}

	w.Header().Set("Content-Disposition", `attachment; filename="fintrack-export.json"`)
	writeJSON(w, r, http.StatusOK, bundle)
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.store.ListTransactions(r.Context(), storage.TransactionFilter{})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="fintrack-transactions.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "date", "description", "amount", "category", "type", "accountId", "transferGroupId"})
	for _, t := range transactions {
		accountID := ""
		if t.AccountID != nil {
			accountID = strconv.FormatInt(*t.AccountID, 10)
		}
		_ = cw.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.Date.UTC().Format(time.RFC3339),
			t.Description,
			core.FormatAmount(t.Amount),
			t.Category,
			string(t.Type),
			accountID,
			t.TransferGroupID,
		})
	}
	cw.Flush()
}
