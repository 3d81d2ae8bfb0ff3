package storage

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by the query layer, so queries
// run the same against *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// WithTx returns the query layer bound to a transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type UserRow struct {
	ID        string
	Name      string
	CreatedAt string
}

type TransactionRow struct {
	ID                  string
	UserID              string
	AmountCents         int64
	Type                string
	Category            string
	PaymentMode         string
	TxDate              string
	Note                string
	CreatedAt           string
	SyncStatus          string
	Version             int64
	InvestorName        sql.NullString
	AnnualRatePct       sql.NullFloat64
	ReturnPeriod        sql.NullString
	DurationMonths      sql.NullInt64
	Purpose             sql.NullString
	PeriodicAmountCents sql.NullInt64
}

type PendingSyncRow struct {
	ID        string
	Version   int64
	CreatedAt string
}

const createUser = `
INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)
`

type CreateUserParams struct {
	ID        string
	Name      string
	CreatedAt string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.Name, arg.CreatedAt)
	return err
}

const listUsers = `
SELECT id, name, created_at FROM users ORDER BY created_at, id
`

func (q *Queries) ListUsers(ctx context.Context) ([]UserRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const getUser = `
SELECT id, name, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id string) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(&u.ID, &u.Name, &u.CreatedAt)
	return u, err
}

const createTransaction = `
INSERT INTO transactions (id, user_id, amount_cents, type, category, payment_mode, tx_date, note, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateTransactionParams struct {
	ID          string
	UserID      string
	AmountCents int64
	Type        string
	Category    string
	PaymentMode string
	TxDate      string
	Note        string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.UserID, arg.AmountCents, arg.Type, arg.Category,
		arg.PaymentMode, arg.TxDate, arg.Note, arg.CreatedAt)
	return err
}

const createInvestorDetails = `
INSERT INTO investor_details (transaction_id, investor_name, annual_rate_pct, return_period, duration_months, purpose, periodic_amount_cents)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateInvestorDetailsParams struct {
	TransactionID       string
	InvestorName        string
	AnnualRatePct       float64
	ReturnPeriod        string
	DurationMonths      int64
	Purpose             string
	PeriodicAmountCents int64
}

func (q *Queries) CreateInvestorDetails(ctx context.Context, arg CreateInvestorDetailsParams) error {
	_, err := q.db.ExecContext(ctx, createInvestorDetails,
		arg.TransactionID, arg.InvestorName, arg.AnnualRatePct, arg.ReturnPeriod,
		arg.DurationMonths, arg.Purpose, arg.PeriodicAmountCents)
	return err
}

const deleteInvestorDetails = `
DELETE FROM investor_details WHERE transaction_id = ?
`

func (q *Queries) DeleteInvestorDetails(ctx context.Context, transactionID string) error {
	_, err := q.db.ExecContext(ctx, deleteInvestorDetails, transactionID)
	return err
}

const transactionColumns = `
t.id, t.user_id, t.amount_cents, t.type, t.category, t.payment_mode,
t.tx_date, t.note, t.created_at, t.sync_status, t.version,
i.investor_name, i.annual_rate_pct, i.return_period, i.duration_months,
i.purpose, i.periodic_amount_cents
`

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions t
LEFT JOIN investor_details i ON i.transaction_id = t.id
WHERE t.id = ? AND t.deleted_at IS NULL
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactionsByUser = `
SELECT ` + transactionColumns + `
FROM transactions t
LEFT JOIN investor_details i ON i.transaction_id = t.id
WHERE t.user_id = ? AND t.deleted_at IS NULL
ORDER BY t.created_at, t.id
`

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByUser, userID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const listTransactionsByRange = `
SELECT ` + transactionColumns + `
FROM transactions t
LEFT JOIN investor_details i ON i.transaction_id = t.id
WHERE t.user_id = ? AND t.deleted_at IS NULL AND t.tx_date >= ? AND t.tx_date < ?
ORDER BY t.tx_date, t.created_at, t.id
`

type ListTransactionsByRangeParams struct {
	UserID   string
	FromDate string
	ToDate   string
}

func (q *Queries) ListTransactionsByRange(ctx context.Context, arg ListTransactionsByRangeParams) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByRange, arg.UserID, arg.FromDate, arg.ToDate)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

const updateTransaction = `
UPDATE transactions
SET amount_cents = ?, type = ?, category = ?, payment_mode = ?, tx_date = ?, note = ?,
    version = version + 1, sync_status = 'pending'
WHERE id = ? AND deleted_at IS NULL
RETURNING version
`

type UpdateTransactionParams struct {
	AmountCents int64
	Type        string
	Category    string
	PaymentMode string
	TxDate      string
	Note        string
	ID          string
}

// UpdateTransaction returns the new row version, or sql.ErrNoRows when
// the transaction does not exist or is already deleted.
func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, updateTransaction,
		arg.AmountCents, arg.Type, arg.Category, arg.PaymentMode, arg.TxDate, arg.Note, arg.ID).Scan(&version)
	return version, err
}

const softDeleteTransaction = `
UPDATE transactions SET deleted_at = ?, sync_status = 'pending', version = version + 1
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) SoftDeleteTransaction(ctx context.Context, id, deletedAt string) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteTransaction, deletedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getPendingSync = `
SELECT id, version, created_at FROM transactions
WHERE sync_status = 'pending' AND deleted_at IS NULL
ORDER BY created_at
LIMIT ?
`

func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PendingSyncRow
	for rows.Next() {
		var p PendingSyncRow
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const markSynced = `
UPDATE transactions SET sync_status = 'synced' WHERE id = ?
`

func (q *Queries) MarkSynced(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markSynced, id)
	return err
}

const markSyncError = `
UPDATE transactions SET sync_status = 'error' WHERE id = ?
`

func (q *Queries) MarkSyncError(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markSyncError, id)
	return err
}

const listCategoryGroups = `
SELECT g.name, l.label
FROM category_groups g
LEFT JOIN category_labels l ON l.group_name = g.name
ORDER BY g.position, l.position
`

type CategoryLabelRow struct {
	GroupName string
	Label     sql.NullString
}

func (q *Queries) ListCategoryGroups(ctx context.Context) ([]CategoryLabelRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryGroups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryLabelRow
	for rows.Next() {
		var r CategoryLabelRow
		if err := rows.Scan(&r.GroupName, &r.Label); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const upsertCategoryGroup = `
INSERT INTO category_groups (name, position) VALUES (?, ?)
ON CONFLICT(name) DO NOTHING
`

func (q *Queries) UpsertCategoryGroup(ctx context.Context, name string, position int64) error {
	_, err := q.db.ExecContext(ctx, upsertCategoryGroup, name, position)
	return err
}

const insertCategoryLabel = `
INSERT INTO category_labels (group_name, label, position) VALUES (?, ?, ?)
ON CONFLICT(group_name, label) DO UPDATE SET position = excluded.position
`

func (q *Queries) InsertCategoryLabel(ctx context.Context, group, label string, position int64) error {
	_, err := q.db.ExecContext(ctx, insertCategoryLabel, group, label, position)
	return err
}

const deleteGroupLabels = `
DELETE FROM category_labels WHERE group_name = ?
`

func (q *Queries) DeleteGroupLabels(ctx context.Context, group string) error {
	_, err := q.db.ExecContext(ctx, deleteGroupLabels, group)
	return err
}

func scanTransaction(row *sql.Row) (TransactionRow, error) {
	var t TransactionRow
	err := row.Scan(
		&t.ID, &t.UserID, &t.AmountCents, &t.Type, &t.Category, &t.PaymentMode,
		&t.TxDate, &t.Note, &t.CreatedAt, &t.SyncStatus, &t.Version,
		&t.InvestorName, &t.AnnualRatePct, &t.ReturnPeriod, &t.DurationMonths,
		&t.Purpose, &t.PeriodicAmountCents)
	return t, err
}

func collectTransactions(rows *sql.Rows) ([]TransactionRow, error) {
	defer rows.Close()
	var out []TransactionRow
	for rows.Next() {
		var t TransactionRow
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.AmountCents, &t.Type, &t.Category, &t.PaymentMode,
			&t.TxDate, &t.Note, &t.CreatedAt, &t.SyncStatus, &t.Version,
			&t.InvestorName, &t.AnnualRatePct, &t.ReturnPeriod, &t.DurationMonths,
			&t.Purpose, &t.PeriodicAmountCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
