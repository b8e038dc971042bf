package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(":0", memory.NewStore(), nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestAccountCRUD(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "1000.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created apiAccount
	decodeBody(t, rr, &created)
	if created.ID == 0 || created.Balance.String() != "1000" {
		t.Fatalf("unexpected created account: %+v", created)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/accounts/1", map[string]any{
		"name": "Main checking", "type": "bank", "balance": "1200.00",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated apiAccount
	decodeBody(t, rr, &updated)
	if updated.Name != "Main checking" || updated.Balance.String() != "1200" {
		t.Fatalf("unexpected updated account: %+v", updated)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/accounts/1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/1", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "", "type": "bank", "balance": "0",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", rr.Code)
	}
}

func TestTransactionMovesBalance(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "500.00",
	})

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2026-04-10T00:00:00Z", "description": "Groceries",
		"amount": "100.00", "category": "Groceries", "type": "expense", "accountId": 1,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/1", nil)
	var account apiAccount
	decodeBody(t, rr, &account)
	if account.Balance.String() != "400" {
		t.Fatalf("balance=%s, want 400", account.Balance)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/1", nil)
	decodeBody(t, rr, &account)
	if account.Balance.String() != "500" {
		t.Fatalf("balance after retract=%s, want 500", account.Balance)
	}

	// Unknown account is the caller's lookup failure, not a validation one.
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2026-04-10T00:00:00Z", "description": "Ghost",
		"amount": "10.00", "category": "Misc", "type": "expense", "accountId": 99,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2026-04-10T00:00:00Z", "description": "",
		"amount": "10.00", "category": "Misc", "type": "expense",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty description, got %d", rr.Code)
	}
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "1000.00",
	})
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Savings", "type": "bank", "balance": "0.00",
	})

	rr := doJSON(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"sourceAccountId": 1, "destinationAccountId": 2, "amount": "250.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
	var result transferResponse
	decodeBody(t, rr, &result)
	if result.Withdrawal.TransferGroupID == "" ||
		result.Withdrawal.TransferGroupID != result.Deposit.TransferGroupID {
		t.Fatalf("transfer halves not correlated: %+v", result)
	}
	if result.Withdrawal.Type != "expense" || result.Deposit.Type != "income" {
		t.Fatalf("unexpected pair types: %s/%s", result.Withdrawal.Type, result.Deposit.Type)
	}

	var account apiAccount
	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/2", nil)
	decodeBody(t, rr, &account)
	if account.Balance.String() != "250" {
		t.Fatalf("destination balance=%s, want 250", account.Balance)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"sourceAccountId": 1, "destinationAccountId": 1, "amount": "10.00",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for same-account transfer, got %d", rr.Code)
	}
}

func TestBudgetTransferRequiresActiveBudget(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "100.00",
	})
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Savings", "type": "bank", "balance": "0.00",
	})

	rr := doJSON(t, srv, http.MethodPost, "/api/budget-transfers", map[string]any{
		"sourceAccountId": 1, "destinationAccountId": 2, "amount": "50.00",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without active budget, got %d", rr.Code)
	}

	doJSON(t, srv, http.MethodPost, "/api/budgets", map[string]any{
		"monthlySalary": "3000.00", "savingsRate": "20", "month": 4, "year": 2026,
	})

	rr = doJSON(t, srv, http.MethodPost, "/api/budget-transfers", map[string]any{
		"sourceAccountId": 1, "destinationAccountId": 2, "amount": "500.00",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for insufficient funds, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/budget-transfers", map[string]any{
		"sourceAccountId": 1, "destinationAccountId": 2, "amount": "50.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("budget transfer status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCategoryUsageEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "1000.00",
	})
	doJSON(t, srv, http.MethodPost, "/api/budget-categories", map[string]any{
		"name": "Groceries", "budgetedAmount": "500.00", "isPredefined": true,
	})
	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2026-04-10T00:00:00Z", "description": "Weekly shop",
		"amount": "450.00", "category": "Groceries", "type": "expense", "accountId": 1,
	})

	rr := doJSON(t, srv, http.MethodGet, "/api/budget-categories/usage?year=2026&month=4", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("usage status=%d body=%s", rr.Code, rr.Body.String())
	}
	var rawItems []map[string]json.RawMessage
	decodeBody(t, rr, &rawItems)
	if len(rawItems) != 1 {
		t.Fatalf("usage rows=%d, want 1", len(rawItems))
	}
	for _, key := range []string{"id", "colorIndicator", "isPredefined"} {
		if _, ok := rawItems[0][key]; !ok {
			t.Fatalf("usage item missing %q key, body=%s", key, rr.Body.String())
		}
	}
	var usage []apiCategoryUsage
	decodeBody(t, rr, &usage)
	if usage[0].PercentUsed != 90 || usage[0].Color != "yellow" {
		t.Fatalf("usage=%+v, want 90%% yellow", usage[0])
	}
	if !usage[0].IsPredefined {
		t.Fatalf("usage=%+v, want predefined flag carried through", usage[0])
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget-categories/usage?year=2026&month=13", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for month 13, got %d", rr.Code)
	}
}

func TestCloseMonthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "1000.00",
	})
	doJSON(t, srv, http.MethodPost, "/api/budget-categories", map[string]any{
		"name": "Groceries", "budgetedAmount": "500.00", "isPredefined": false,
	})
	doJSON(t, srv, http.MethodPost, "/api/budgets", map[string]any{
		"monthlySalary": "3000.00", "savingsRate": "20", "month": 4, "year": 2026,
	})
	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2026-04-10T00:00:00Z", "description": "Weekly shop",
		"amount": "450.00", "category": "Groceries", "type": "expense", "accountId": 1,
	})

	rr := doJSON(t, srv, http.MethodPost, "/api/budgets/close-month", map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("close-month status=%d body=%s", rr.Code, rr.Body.String())
	}
	var raw map[string]json.RawMessage
	decodeBody(t, rr, &raw)
	for _, key := range []string{"closedBudget", "newBudget", "monthlyReport"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("close-month response missing %q key, body=%s", key, rr.Body.String())
		}
	}
	var result closeMonthResponse
	decodeBody(t, rr, &result)
	if result.ClosedBudget.Status != "closed" {
		t.Fatalf("closed budget status=%s", result.ClosedBudget.Status)
	}
	if result.NewBudget.Month != 5 || result.NewBudget.Year != 2026 || result.NewBudget.Status != "active" {
		t.Fatalf("unexpected next budget: %+v", result.NewBudget)
	}
	if result.Report.TotalExpenses.String() != "450" {
		t.Fatalf("report expenses=%s, want 450", result.Report.TotalExpenses)
	}

	// Unused 50 defaulted to carryover.
	rr = doJSON(t, srv, http.MethodGet, "/api/budget-categories", nil)
	var categories []apiCategory
	decodeBody(t, rr, &categories)
	if categories[0].BudgetedAmount.String() != "550" {
		t.Fatalf("budgeted after carryover=%s, want 550", categories[0].BudgetedAmount)
	}

	// Second close with no remaining active budget fails.
	doJSON(t, srv, http.MethodPut, "/api/budgets/2", map[string]any{
		"monthlySalary": "3000.00", "savingsRate": "20", "month": 5, "year": 2026, "status": "closed",
	})
	rr = doJSON(t, srv, http.MethodPost, "/api/budgets/close-month", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without active budget, got %d", rr.Code)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/accounts", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rr.Code)
	}
}

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/import", map[string]any{
		"accounts": []map[string]any{
			{"id": 77, "name": "Imported checking", "type": "bank", "balance": "900.00"},
		},
		"transactions": []map[string]any{
			{"id": 5, "date": "2026-03-01T00:00:00Z", "description": "Old groceries",
				"amount": "45.00", "category": "Groceries", "type": "expense", "accountId": 77},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body.String())
	}
	var result importResponse
	decodeBody(t, rr, &result)
	if result.Imported.Accounts != 1 || result.Imported.Transactions != 1 {
		t.Fatalf("unexpected import counts: %+v", result.Imported)
	}

	// Imported balances are snapshots: no ledger effect was applied.
	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/1", nil)
	var account apiAccount
	decodeBody(t, rr, &account)
	if account.Balance.String() != "900" {
		t.Fatalf("imported balance=%s, want 900", account.Balance)
	}

	// Nothing importable at all is a client error.
	rr = doJSON(t, srv, http.MethodPost, "/api/import", map[string]any{
		"accounts": []map[string]any{{"name": "", "type": "bank", "balance": "0"}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for failed import, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "500.00",
	})
	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2026-04-10T00:00:00Z", "description": "Groceries",
		"amount": "100.00", "category": "Groceries", "type": "expense", "accountId": 1,
	})

	rr := doJSON(t, srv, http.MethodGet, "/api/export?format=csv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type=%s", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines=%d, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,date,description,amount") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "100.00") {
		t.Fatalf("row missing amount: %s", lines[1])
	}
}

func TestDashboardStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank", "balance": "500.00",
	})
	doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Savings", "type": "bank", "balance": "1500.00",
	})

	rr := doJSON(t, srv, http.MethodGet, "/api/dashboard/stats", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status=%d body=%s", rr.Code, rr.Body.String())
	}
	var stats dashboardResponse
	decodeBody(t, rr, &stats)
	if stats.TotalBalance.String() != "2000" {
		t.Fatalf("total balance=%s, want 2000", stats.TotalBalance)
	}
	if len(stats.MonthlyData) != 6 {
		t.Fatalf("monthly history length=%d, want 6", len(stats.MonthlyData))
	}
}
