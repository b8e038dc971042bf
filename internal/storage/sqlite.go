package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is the production Store backed by a single SQLite file.
// A transaction-scoped copy has db set to nil and q bound to the *sql.Tx.
type SQLiteStore struct {
	db *sql.DB
	q  dbtx
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RunInTx runs fn inside one database transaction. When called on a store
// that is already transaction-scoped, fn joins the ambient transaction.
func (s *SQLiteStore) RunInTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func decStr(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullDec(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return decStr(*p)
}

func decPtr(n sql.NullString) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := parseDec(n.String)
	return &d
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// Accounts

func (s *SQLiteStore) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (name, type, balance, credit_limit) VALUES (?, ?, ?, ?)`,
		a.Name, string(a.Type), decStr(a.Balance), nullDec(a.CreditLimit))
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account id: %w", err)
	}
	return s.GetAccount(ctx, id)
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, name, type, balance, credit_limit, created_at FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.Account{}, core.NotFound("account", id)
	}
	return a, err
}

func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, type, balance, credit_limit, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, balance = ?, credit_limit = ? WHERE id = ?`,
		a.Name, string(a.Type), decStr(a.Balance), nullDec(a.CreditLimit), a.ID)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Account{}, core.NotFound("account", a.ID)
	}
	return s.GetAccount(ctx, a.ID)
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("account", id)
	}
	return nil
}

func (s *SQLiteStore) AdjustBalance(ctx context.Context, accountID int64, delta decimal.Decimal) error {
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`,
		decStr(core.Round2(a.Balance.Add(delta))), accountID)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (core.Account, error) {
	var (
		a           core.Account
		typ         string
		balance     string
		creditLimit sql.NullString
	)
	err := row.Scan(&a.ID, &a.Name, &typ, &balance, &creditLimit, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NotFound("account", 0)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Type = core.AccountType(typ)
	a.Balance = parseDec(balance)
	a.CreditLimit = decPtr(creditLimit)
	return a, nil
}

// Transactions

const transactionColumns = `id, date, description, amount, category, category_id, type,
	account_id, goal_id, installment_id, investment_id,
	source_account_id, destination_account_id, transfer_group_id, created_at`

func (s *SQLiteStore) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (date, description, amount, category, category_id, type,
			account_id, goal_id, installment_id, investment_id,
			source_account_id, destination_account_id, transfer_group_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Date, t.Description, decStr(t.Amount), t.Category, nullID(t.CategoryID), string(t.Type),
		nullID(t.AccountID), nullID(t.GoalID), nullID(t.InstallmentID), nullID(t.InvestmentID),
		nullID(t.SourceAccountID), nullID(t.DestinationAccountID), t.TransferGroupID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	return s.GetTransaction(ctx, id)
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	var nf *core.NotFoundError
	if errors.As(err, &nf) {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	return t, err
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var (
		conds []string
		args  []any
	)
	if f.From != nil {
		conds = append(conds, `date >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, `date <= ?`)
		args = append(args, *f.To)
	}
	if f.Type != nil {
		conds = append(conds, `type = ?`)
		args = append(args, string(*f.Type))
	}
	if f.AccountID != nil {
		conds = append(conds, `account_id = ?`)
		args = append(args, *f.AccountID)
	}
	if f.Category != "" {
		conds = append(conds, `LOWER(category) = LOWER(?)`)
		args = append(args, f.Category)
	}
	if f.TransferGroupID != "" {
		conds = append(conds, `transfer_group_id = ?`)
		args = append(args, f.TransferGroupID)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *SQLiteStore) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET date = ?, description = ?, amount = ?, category = ?, category_id = ?,
			type = ?, account_id = ?, goal_id = ?, installment_id = ?, investment_id = ?,
			source_account_id = ?, destination_account_id = ?, transfer_group_id = ?
		 WHERE id = ?`,
		t.Date, t.Description, decStr(t.Amount), t.Category, nullID(t.CategoryID),
		string(t.Type), nullID(t.AccountID), nullID(t.GoalID), nullID(t.InstallmentID), nullID(t.InvestmentID),
		nullID(t.SourceAccountID), nullID(t.DestinationAccountID), t.TransferGroupID, t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.NotFound("transaction", t.ID)
	}
	return s.GetTransaction(ctx, t.ID)
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NotFound("transaction", id)
	}
	return nil
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		amount     string
		typ        string
		categoryID sql.NullInt64
		accountID  sql.NullInt64
		goalID     sql.NullInt64
		instID     sql.NullInt64
		invID      sql.NullInt64
		srcID      sql.NullInt64
		dstID      sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Date, &t.Description, &amount, &t.Category, &categoryID, &typ,
		&accountID, &goalID, &instID, &invID, &srcID, &dstID, &t.TransferGroupID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("transaction", 0)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Amount = parseDec(amount)
	t.Type = core.TransactionType(typ)
	t.CategoryID = idPtr(categoryID)
	t.AccountID = idPtr(accountID)
	t.GoalID = idPtr(goalID)
	t.InstallmentID = idPtr(instID)
	t.InvestmentID = idPtr(invID)
	t.SourceAccountID = idPtr(srcID)
	t.DestinationAccountID = idPtr(dstID)
	return t, nil
}
