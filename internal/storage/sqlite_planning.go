package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Budget categories

func (s *SQLiteStore) CreateCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO budget_categories (name, budgeted_amount, is_predefined) VALUES (?, ?, ?)`,
		c.Name, decStr(c.BudgetedAmount), c.IsPredefined)
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("category id: %w", err)
	}
	return s.GetCategory(ctx, id)
}

func (s *SQLiteStore) GetCategory(ctx context.Context, id int64) (core.BudgetCategory, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, budgeted_amount, is_predefined, created_at FROM budget_categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.BudgetCategory{}, core.NotFound("category", id)
	}
	return c, err
}

func (s *SQLiteStore) GetCategoryByName(ctx context.Context, name string) (core.BudgetCategory, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, budgeted_amount, is_predefined, created_at
		 FROM budget_categories WHERE LOWER(name) = LOWER(?)`, name)
	return scanCategory(row)
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]core.BudgetCategory, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, budgeted_amount, is_predefined, created_at FROM budget_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.BudgetCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, c core.BudgetCategory) (core.BudgetCategory, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE budget_categories SET name = ?, budgeted_amount = ?, is_predefined = ? WHERE id = ?`,
		c.Name, decStr(c.BudgetedAmount), c.IsPredefined, c.ID)
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.BudgetCategory{}, core.NotFound("category", c.ID)
	}
	return s.GetCategory(ctx, c.ID)
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM budget_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("category", id)
	}
	return nil
}

func scanCategory(row scanner) (core.BudgetCategory, error) {
	var (
		c        core.BudgetCategory
		budgeted string
	)
	err := row.Scan(&c.ID, &c.Name, &budgeted, &c.IsPredefined, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetCategory{}, core.NotFound("category", 0)
	}
	if err != nil {
		return core.BudgetCategory{}, fmt.Errorf("scan category: %w", err)
	}
	c.BudgetedAmount = parseDec(budgeted)
	return c, nil
}

// Budgets

func (s *SQLiteStore) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO budgets (monthly_salary, savings_rate, account_id, status, month, year)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		decStr(b.MonthlySalary), decStr(b.SavingsRate), nullID(b.AccountID), string(b.Status), b.Month, b.Year)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	return s.GetBudget(ctx, id)
}

func (s *SQLiteStore) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, monthly_salary, savings_rate, account_id, status, month, year, created_at, updated_at
		 FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.Budget{}, core.NotFound("budget", id)
	}
	return b, err
}

func (s *SQLiteStore) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT id, monthly_salary, savings_rate, account_id, status, month, year, created_at, updated_at
		 FROM budgets ORDER BY year DESC, month DESC`)
}

func (s *SQLiteStore) ActiveBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT id, monthly_salary, savings_rate, account_id, status, month, year, created_at, updated_at
		 FROM budgets WHERE status = 'active' ORDER BY year DESC, month DESC`)
}

func (s *SQLiteStore) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *SQLiteStore) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE budgets SET monthly_salary = ?, savings_rate = ?, account_id = ?, status = ?,
			month = ?, year = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		decStr(b.MonthlySalary), decStr(b.SavingsRate), nullID(b.AccountID), string(b.Status),
		b.Month, b.Year, b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Budget{}, core.NotFound("budget", b.ID)
	}
	return s.GetBudget(ctx, b.ID)
}

func scanBudget(row scanner) (core.Budget, error) {
	var (
		b         core.Budget
		salary    string
		rate      string
		accountID sql.NullInt64
		status    string
	)
	err := row.Scan(&b.ID, &salary, &rate, &accountID, &status, &b.Month, &b.Year, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NotFound("budget", 0)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	b.MonthlySalary = parseDec(salary)
	b.SavingsRate = parseDec(rate)
	b.AccountID = idPtr(accountID)
	b.Status = core.BudgetStatus(status)
	return b, nil
}

// Monthly reports

const reportColumns = `id, month, year, total_income, total_expenses, budgeted_amount,
	unused_budget, savings_amount, budget_utilization, category_breakdown,
	goals_contributed, investments_added, installments_paid, mirrored_at, created_at`

func (s *SQLiteStore) CreateReport(ctx context.Context, r core.MonthlyReport) (core.MonthlyReport, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO monthly_reports (month, year, total_income, total_expenses, budgeted_amount,
			unused_budget, savings_amount, budget_utilization, category_breakdown,
			goals_contributed, investments_added, installments_paid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Month, r.Year, decStr(r.TotalIncome), decStr(r.TotalExpenses), decStr(r.BudgetedAmount),
		decStr(r.UnusedBudget), decStr(r.SavingsAmount), decStr(r.BudgetUtilization), r.CategoryBreakdown,
		decStr(r.GoalsContributed), decStr(r.InvestmentsAdded), decStr(r.InstallmentsPaid))
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("report id: %w", err)
	}
	return s.GetReport(ctx, id)
}

func (s *SQLiteStore) GetReport(ctx context.Context, id int64) (core.MonthlyReport, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM monthly_reports WHERE id = ?`, id)
	r, err := scanReport(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.MonthlyReport{}, core.NotFound("report", id)
	}
	return r, err
}

func (s *SQLiteStore) GetReportByMonth(ctx context.Context, year, month int) (core.MonthlyReport, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM monthly_reports WHERE year = ? AND month = ?`, year, month)
	return scanReport(row)
}

func (s *SQLiteStore) ListReports(ctx context.Context, f ReportFilter) ([]core.MonthlyReport, error) {
	query := `SELECT ` + reportColumns + ` FROM monthly_reports`
	var args []any
	if f.Year != nil {
		query += ` WHERE year = ?`
		args = append(args, *f.Year)
	}
	query += ` ORDER BY year DESC, month DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.queryReports(ctx, query, args...)
}

func (s *SQLiteStore) UnmirroredReports(ctx context.Context) ([]core.MonthlyReport, error) {
	return s.queryReports(ctx,
		`SELECT `+reportColumns+` FROM monthly_reports WHERE mirrored_at IS NULL ORDER BY year, month`)
}

func (s *SQLiteStore) MarkReportMirrored(ctx context.Context, id int64, at time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE monthly_reports SET mirrored_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("mark report mirrored: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("report", id)
	}
	return nil
}

func (s *SQLiteStore) queryReports(ctx context.Context, query string, args ...any) ([]core.MonthlyReport, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []core.MonthlyReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func scanReport(row scanner) (core.MonthlyReport, error) {
	var (
		r                                            core.MonthlyReport
		income, expenses, budgeted, unused           string
		savings, utilization, goals, invested, paid  string
		mirroredAt                                   sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Month, &r.Year, &income, &expenses, &budgeted,
		&unused, &savings, &utilization, &r.CategoryBreakdown,
		&goals, &invested, &paid, &mirroredAt, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyReport{}, core.NotFound("report", 0)
	}
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("scan report: %w", err)
	}
	r.TotalIncome = parseDec(income)
	r.TotalExpenses = parseDec(expenses)
	r.BudgetedAmount = parseDec(budgeted)
	r.UnusedBudget = parseDec(unused)
	r.SavingsAmount = parseDec(savings)
	r.BudgetUtilization = parseDec(utilization)
	r.GoalsContributed = parseDec(goals)
	r.InvestmentsAdded = parseDec(invested)
	r.InstallmentsPaid = parseDec(paid)
	r.MirroredAt = timePtr(mirroredAt)
	return r, nil
}

// Installments

func (s *SQLiteStore) CreateInstallment(ctx context.Context, i core.Installment) (core.Installment, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO installments (name, monthly_amount, term, months_paid, start_date, next_payment_date, account_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		i.Name, decStr(i.MonthlyAmount), i.Term, i.MonthsPaid, i.StartDate, i.NextPaymentDate, i.AccountID, string(i.Status))
	if err != nil {
		return core.Installment{}, fmt.Errorf("insert installment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Installment{}, fmt.Errorf("installment id: %w", err)
	}
	return s.GetInstallment(ctx, id)
}

func (s *SQLiteStore) GetInstallment(ctx context.Context, id int64) (core.Installment, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, monthly_amount, term, months_paid, start_date, next_payment_date, account_id, status, created_at
		 FROM installments WHERE id = ?`, id)
	i, err := scanInstallment(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.Installment{}, core.NotFound("installment", id)
	}
	return i, err
}

func (s *SQLiteStore) ListInstallments(ctx context.Context) ([]core.Installment, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, monthly_amount, term, months_paid, start_date, next_payment_date, account_id, status, created_at
		 FROM installments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var installments []core.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, i)
	}
	return installments, rows.Err()
}

func (s *SQLiteStore) UpdateInstallment(ctx context.Context, i core.Installment) (core.Installment, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE installments SET name = ?, monthly_amount = ?, term = ?, months_paid = ?,
			start_date = ?, next_payment_date = ?, account_id = ?, status = ?
		 WHERE id = ?`,
		i.Name, decStr(i.MonthlyAmount), i.Term, i.MonthsPaid,
		i.StartDate, i.NextPaymentDate, i.AccountID, string(i.Status), i.ID)
	if err != nil {
		return core.Installment{}, fmt.Errorf("update installment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Installment{}, core.NotFound("installment", i.ID)
	}
	return s.GetInstallment(ctx, i.ID)
}

func (s *SQLiteStore) DeleteInstallment(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM installments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete installment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("installment", id)
	}
	return nil
}

func scanInstallment(row scanner) (core.Installment, error) {
	var (
		i      core.Installment
		amount string
		status string
	)
	err := row.Scan(&i.ID, &i.Name, &amount, &i.Term, &i.MonthsPaid,
		&i.StartDate, &i.NextPaymentDate, &i.AccountID, &status, &i.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, core.NotFound("installment", 0)
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("scan installment: %w", err)
	}
	i.MonthlyAmount = parseDec(amount)
	i.Status = core.InstallmentStatus(status)
	return i, nil
}

// Goals

func (s *SQLiteStore) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO goals (name, target_amount, current_amount, deadline, account_id)
		 VALUES (?, ?, ?, ?, ?)`,
		g.Name, decStr(g.TargetAmount), decStr(g.CurrentAmount), g.Deadline, nullID(g.AccountID))
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal id: %w", err)
	}
	return s.GetGoal(ctx, id)
}

func (s *SQLiteStore) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, target_amount, current_amount, deadline, account_id, created_at
		 FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.Goal{}, core.NotFound("goal", id)
	}
	return g, err
}

func (s *SQLiteStore) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, target_amount, current_amount, deadline, account_id, created_at
		 FROM goals ORDER BY deadline`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *SQLiteStore) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, deadline = ?, account_id = ?
		 WHERE id = ?`,
		g.Name, decStr(g.TargetAmount), decStr(g.CurrentAmount), g.Deadline, nullID(g.AccountID), g.ID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Goal{}, core.NotFound("goal", g.ID)
	}
	return s.GetGoal(ctx, g.ID)
}

func (s *SQLiteStore) DeleteGoal(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("goal", id)
	}
	return nil
}

func scanGoal(row scanner) (core.Goal, error) {
	var (
		g         core.Goal
		target    string
		current   string
		accountID sql.NullInt64
	)
	err := row.Scan(&g.ID, &g.Name, &target, &current, &g.Deadline, &accountID, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.NotFound("goal", 0)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	g.TargetAmount = parseDec(target)
	g.CurrentAmount = parseDec(current)
	g.AccountID = idPtr(accountID)
	return g, nil
}

// Investments

func (s *SQLiteStore) CreateInvestment(ctx context.Context, v core.Investment) (core.Investment, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO investments (name, type, initial_amount, current_value, account_id, start_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.Name, v.Type, decStr(v.InitialAmount), decStr(v.CurrentValue), nullID(v.AccountID), v.StartDate)
	if err != nil {
		return core.Investment{}, fmt.Errorf("insert investment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Investment{}, fmt.Errorf("investment id: %w", err)
	}
	return s.GetInvestment(ctx, id)
}

func (s *SQLiteStore) GetInvestment(ctx context.Context, id int64) (core.Investment, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, type, initial_amount, current_value, account_id, start_date, created_at
		 FROM investments WHERE id = ?`, id)
	v, err := scanInvestment(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.Investment{}, core.NotFound("investment", id)
	}
	return v, err
}

func (s *SQLiteStore) ListInvestments(ctx context.Context) ([]core.Investment, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, type, initial_amount, current_value, account_id, start_date, created_at
		 FROM investments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var investments []core.Investment
	for rows.Next() {
		v, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, v)
	}
	return investments, rows.Err()
}

func (s *SQLiteStore) UpdateInvestment(ctx context.Context, v core.Investment) (core.Investment, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE investments SET name = ?, type = ?, initial_amount = ?, current_value = ?, account_id = ?, start_date = ?
		 WHERE id = ?`,
		v.Name, v.Type, decStr(v.InitialAmount), decStr(v.CurrentValue), nullID(v.AccountID), v.StartDate, v.ID)
	if err != nil {
		return core.Investment{}, fmt.Errorf("update investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Investment{}, core.NotFound("investment", v.ID)
	}
	return s.GetInvestment(ctx, v.ID)
}

func (s *SQLiteStore) DeleteInvestment(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("investment", id)
	}
	return nil
}

func scanInvestment(row scanner) (core.Investment, error) {
	var (
		v         core.Investment
		initial   string
		current   string
		accountID sql.NullInt64
	)
	err := row.Scan(&v.ID, &v.Name, &v.Type, &initial, &current, &accountID, &v.StartDate, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Investment{}, core.NotFound("investment", 0)
	}
	if err != nil {
		return core.Investment{}, fmt.Errorf("scan investment: %w", err)
	}
	v.InitialAmount = parseDec(initial)
	v.CurrentValue = parseDec(current)
	v.AccountID = idPtr(accountID)
	return v, nil
}
