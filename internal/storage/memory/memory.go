// Package memory provides an in-memory Store used by tests and ephemeral
// runs. Transactions are implemented by snapshotting all tables and
// restoring them if the callback fails.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type tables struct {
	accounts     map[int64]core.Account
	transactions map[int64]core.Transaction
	categories   map[int64]core.BudgetCategory
	budgets      map[int64]core.Budget
	reports      map[int64]core.MonthlyReport
	installments map[int64]core.Installment
	goals        map[int64]core.Goal
	investments  map[int64]core.Investment
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.accounts {
		c.accounts[k] = v
	}
	for k, v := range t.transactions {
		c.transactions[k] = v
	}
	for k, v := range t.categories {
		c.categories[k] = v
	}
	for k, v := range t.budgets {
		c.budgets[k] = v
	}
	for k, v := range t.reports {
		c.reports[k] = v
	}
	for k, v := range t.installments {
		c.installments[k] = v
	}
	for k, v := range t.goals {
		c.goals[k] = v
	}
	for k, v := range t.investments {
		c.investments[k] = v
	}
	return c
}

func newTables() tables {
	return tables{
		accounts:     make(map[int64]core.Account),
		transactions: make(map[int64]core.Transaction),
		categories:   make(map[int64]core.BudgetCategory),
		budgets:      make(map[int64]core.Budget),
		reports:      make(map[int64]core.MonthlyReport),
		installments: make(map[int64]core.Installment),
		goals:        make(map[int64]core.Goal),
		investments:  make(map[int64]core.Investment),
	}
}

type Store struct {
	mu     sync.Mutex
	t      *tables
	nextID *int64
	// locked marks a transaction-scoped view whose caller already holds mu.
	locked bool
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	t := newTables()
	id := int64(1)
	return &Store{t: &t, nextID: &id}
}

func (s *Store) lock() func() {
	if s.locked {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) id() int64 {
	id := *s.nextID
	*s.nextID++
	return id
}

// RunInTx snapshots every table, runs fn under the store lock against a
// lock-free view, and restores the snapshot if fn fails. Nested calls join
// the outer scope.
func (s *Store) RunInTx(_ context.Context, fn func(storage.Store) error) error {
	if s.locked {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	snapshotID := *s.nextID
	if err := fn(&Store{t: s.t, nextID: s.nextID, locked: true}); err != nil {
		*s.t = snapshot
		*s.nextID = snapshotID
		return err
	}
	return nil
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	defer s.lock()()
	a.ID = s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.t.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	defer s.lock()()
	a, ok := s.t.accounts[id]
	if !ok {
		return core.Account{}, core.NotFound("account", id)
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	defer s.lock()()
	out := make([]core.Account, 0, len(s.t.accounts))
	for _, a := range s.t.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) (core.Account, error) {
	defer s.lock()()
	old, ok := s.t.accounts[a.ID]
	if !ok {
		return core.Account{}, core.NotFound("account", a.ID)
	}
	a.CreatedAt = old.CreatedAt
	s.t.accounts[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.accounts[id]; !ok {
		return core.NotFound("account", id)
	}
	delete(s.t.accounts, id)
	return nil
}

func (s *Store) AdjustBalance(_ context.Context, accountID int64, delta decimal.Decimal) error {
	defer s.lock()()
	a, ok := s.t.accounts[accountID]
	if !ok {
		return core.NotFound("account", accountID)
	}
	a.Balance = core.Round2(a.Balance.Add(delta))
	s.t.accounts[accountID] = a
	return nil
}

// Transactions

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	defer s.lock()()
	t.ID = s.id()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.t.transactions[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	defer s.lock()()
	t, ok := s.t.transactions[id]
	if !ok {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	defer s.lock()()
	var out []core.Transaction
	for _, t := range s.t.transactions {
		if f.From != nil && t.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && t.Date.After(*f.To) {
			continue
		}
		if f.Type != nil && t.Type != *f.Type {
			continue
		}
		if f.AccountID != nil && (t.AccountID == nil || *t.AccountID != *f.AccountID) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
			continue
		}
		if f.TransferGroupID != "" && t.TransferGroupID != f.TransferGroupID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	defer s.lock()()
	old, ok := s.t.transactions[t.ID]
	if !ok {
		return core.Transaction{}, core.NotFound("transaction", t.ID)
	}
	t.CreatedAt = old.CreatedAt
	s.t.transactions[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.transactions[id]; !ok {
		return core.NotFound("transaction", id)
	}
	delete(s.t.transactions, id)
	return nil
}

// Budget categories

func (s *Store) CreateCategory(_ context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	defer s.lock()()
	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.t.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.BudgetCategory, error) {
	defer s.lock()()
	c, ok := s.t.categories[id]
	if !ok {
		return core.BudgetCategory{}, core.NotFound("category", id)
	}
	return c, nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (core.BudgetCategory, error) {
	defer s.lock()()
	for _, c := range s.t.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return core.BudgetCategory{}, core.NotFound("category", 0)
}

func (s *Store) ListCategories(_ context.Context) ([]core.BudgetCategory, error) {
	defer s.lock()()
	out := make([]core.BudgetCategory, 0, len(s.t.categories))
	for _, c := range s.t.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	defer s.lock()()
	old, ok := s.t.categories[c.ID]
	if !ok {
		return core.BudgetCategory{}, core.NotFound("category", c.ID)
	}
	c.CreatedAt = old.CreatedAt
	s.t.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.categories[id]; !ok {
		return core.NotFound("category", id)
	}
	delete(s.t.categories, id)
	return nil
}

// Budgets

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	defer s.lock()()
	b.ID = s.id()
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.t.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	defer s.lock()()
	b, ok := s.t.budgets[id]
	if !ok {
		return core.Budget{}, core.NotFound("budget", id)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	defer s.lock()()
	return s.budgetsWhere(func(core.Budget) bool { return true }), nil
}

func (s *Store) ActiveBudgets(_ context.Context) ([]core.Budget, error) {
	defer s.lock()()
	return s.budgetsWhere(func(b core.Budget) bool { return b.Status == core.BudgetActive }), nil
}

func (s *Store) budgetsWhere(keep func(core.Budget) bool) []core.Budget {
	var out []core.Budget
	for _, b := range s.t.budgets {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	defer s.lock()()
	old, ok := s.t.budgets[b.ID]
	if !ok {
		return core.Budget{}, core.NotFound("budget", b.ID)
	}
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	s.t.budgets[b.ID] = b
	return b, nil
}

// Monthly reports

func (s *Store) CreateReport(_ context.Context, r core.MonthlyReport) (core.MonthlyReport, error) {
	defer s.lock()()
	r.ID = s.id()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.t.reports[r.ID] = r
	return r, nil
}

func (s *Store) GetReport(_ context.Context, id int64) (core.MonthlyReport, error) {
	defer s.lock()()
	r, ok := s.t.reports[id]
	if !ok {
		return core.MonthlyReport{}, core.NotFound("report", id)
	}
	return r, nil
}

func (s *Store) GetReportByMonth(_ context.Context, year, month int) (core.MonthlyReport, error) {
	defer s.lock()()
	for _, r := range s.t.reports {
		if r.Year == year && r.Month == month {
			return r, nil
		}
	}
	return core.MonthlyReport{}, core.NotFound("report", 0)
}

func (s *Store) ListReports(_ context.Context, f storage.ReportFilter) ([]core.MonthlyReport, error) {
	defer s.lock()()
	var out []core.MonthlyReport
	for _, r := range s.t.reports {
		if f.Year != nil && r.Year != *f.Year {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UnmirroredReports(_ context.Context) ([]core.MonthlyReport, error) {
	defer s.lock()()
	var out []core.MonthlyReport
	for _, r := range s.t.reports {
		if r.MirroredAt == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (s *Store) MarkReportMirrored(_ context.Context, id int64, at time.Time) error {
	defer s.lock()()
	r, ok := s.t.reports[id]
	if !ok {
		return core.NotFound("report", id)
	}
	r.MirroredAt = &at
	s.t.reports[id] = r
	return nil
}

// Installments

func (s *Store) CreateInstallment(_ context.Context, i core.Installment) (core.Installment, error) {
	defer s.lock()()
	i.ID = s.id()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	s.t.installments[i.ID] = i
	return i, nil
}

func (s *Store) GetInstallment(_ context.Context, id int64) (core.Installment, error) {
	defer s.lock()()
	i, ok := s.t.installments[id]
	if !ok {
		return core.Installment{}, core.NotFound("installment", id)
	}
	return i, nil
}

func (s *Store) ListInstallments(_ context.Context) ([]core.Installment, error) {
	defer s.lock()()
	out := make([]core.Installment, 0, len(s.t.installments))
	for _, i := range s.t.installments {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateInstallment(_ context.Context, i core.Installment) (core.Installment, error) {
	defer s.lock()()
	old, ok := s.t.installments[i.ID]
	if !ok {
		return core.Installment{}, core.NotFound("installment", i.ID)
	}
	i.CreatedAt = old.CreatedAt
	s.t.installments[i.ID] = i
	return i, nil
}

func (s *Store) DeleteInstallment(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.installments[id]; !ok {
		return core.NotFound("installment", id)
	}
	delete(s.t.installments, id)
	return nil
}

// Goals

func (s *Store) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	defer s.lock()()
	g.ID = s.id()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	s.t.goals[g.ID] = g
	return g, nil
}

func (s *Store) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	defer s.lock()()
	g, ok := s.t.goals[id]
	if !ok {
		return core.Goal{}, core.NotFound("goal", id)
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	defer s.lock()()
	out := make([]core.Goal, 0, len(s.t.goals))
	for _, g := range s.t.goals {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	defer s.lock()()
	old, ok := s.t.goals[g.ID]
	if !ok {
		return core.Goal{}, core.NotFound("goal", g.ID)
	}
	g.CreatedAt = old.CreatedAt
	s.t.goals[g.ID] = g
	return g, nil
}

func (s *Store) DeleteGoal(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.goals[id]; !ok {
		return core.NotFound("goal", id)
	}
	delete(s.t.goals, id)
	return nil
}

// Investments

func (s *Store) CreateInvestment(_ context.Context, v core.Investment) (core.Investment, error) {
	defer s.lock()()
	v.ID = s.id()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	s.t.investments[v.ID] = v
	return v, nil
}

func (s *Store) GetInvestment(_ context.Context, id int64) (core.Investment, error) {
	defer s.lock()()
	v, ok := s.t.investments[id]
	if !ok {
		return core.Investment{}, core.NotFound("investment", id)
	}
	return v, nil
}

func (s *Store) ListInvestments(_ context.Context) ([]core.Investment, error) {
	defer s.lock()()
	out := make([]core.Investment, 0, len(s.t.investments))
	for _, v := range s.t.investments {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateInvestment(_ context.Context, v core.Investment) (core.Investment, error) {
	defer s.lock()()
	old, ok := s.t.investments[v.ID]
	if !ok {
		return core.Investment{}, core.NotFound("investment", v.ID)
	}
	v.CreatedAt = old.CreatedAt
	s.t.investments[v.ID] = v
	return v, nil
}

func (s *Store) DeleteInvestment(_ context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.t.investments[id]; !ok {
		return core.NotFound("investment", id)
	}
	delete(s.t.investments, id)
	return nil
}
