// Package storage persists the tracker's data in a per-device SQLite file.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fundbook/internal/core"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(dbPath string) (*Repository, error) {
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

	return &Repository{db: db, queries: New(db)}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser persists a user profile.
func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:        u.ID,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", u.ID, "name", u.Name)
	return nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]core.User, len(rows))
	for i, row := range rows {
		users[i] = core.User{ID: row.ID, Name: row.Name, CreatedAt: parseTime(row.CreatedAt)}
	}
	return users, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return core.User{ID: row.ID, Name: row.Name, CreatedAt: parseTime(row.CreatedAt)}, nil
}

// CreateTransaction persists a transaction and its investor details, if
// any, in one database transaction.
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	err = q.CreateTransaction(ctx, CreateTransactionParams{
		ID:          t.ID,
		UserID:      t.UserID,
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Category:    t.Category,
		PaymentMode: t.PaymentMode,
		TxDate:      t.Date.Format(dateLayout),
		Note:        t.Note,
		CreatedAt:   t.CreatedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	if t.Investor != nil {
		err = q.CreateInvestorDetails(ctx, CreateInvestorDetailsParams{
			TransactionID:       t.ID,
			InvestorName:        t.Investor.Name,
			AnnualRatePct:       t.Investor.AnnualRatePct,
			ReturnPeriod:        string(t.Investor.Period),
			DurationMonths:      int64(t.Investor.DurationMonths),
			Purpose:             t.Investor.Purpose,
			PeriodicAmountCents: t.Investor.PeriodicAmount.Cents,
		})
		if err != nil {
			return fmt.Errorf("create investor details: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"investor", t.Investor != nil)
	return nil
}

// UpdateTransaction replaces the mutable fields of an existing
// transaction, bumping its version and re-queuing it for export. Investor
// details are replaced wholesale. Returns the new row version.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	version, err := q.UpdateTransaction(ctx, UpdateTransactionParams{
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Category:    t.Category,
		PaymentMode: t.PaymentMode,
		TxDate:      t.Date.Format(dateLayout),
		Note:        t.Note,
		ID:          t.ID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}

	if err := q.DeleteInvestorDetails(ctx, t.ID); err != nil {
		return 0, fmt.Errorf("clear investor details: %w", err)
	}
	if t.Investor != nil {
		err = q.CreateInvestorDetails(ctx, CreateInvestorDetailsParams{
			TransactionID:       t.ID,
			InvestorName:        t.Investor.Name,
			AnnualRatePct:       t.Investor.AnnualRatePct,
			ReturnPeriod:        string(t.Investor.Period),
			DurationMonths:      int64(t.Investor.DurationMonths),
			Purpose:             t.Investor.Purpose,
			PeriodicAmountCents: t.Investor.PeriodicAmount.Cents,
		})
		if err != nil {
			return 0, fmt.Errorf("replace investor details: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update: %w", err)
	}
	slog.InfoContext(ctx, "Transaction updated", "id", t.ID, "version", version)
	return version, nil
}

// SoftDeleteTransaction marks a transaction deleted without removing the
// row, so the export worker can propagate the deletion.
func (r *Repository) SoftDeleteTransaction(ctx context.Context, id string) error {
	affected, err := r.queries.SoftDeleteTransaction(ctx, id, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction soft deleted", "id", id)
	return nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return rowToTransaction(row), nil
}

// ListTransactions returns a user's live transactions in creation order.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rowsToTransactions(rows), nil
}

// ListMonthTransactions returns a user's transactions dated inside one
// calendar month.
func (r *Repository) ListMonthTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	to := from.AddMonthsClamped(1)
	rows, err := r.queries.ListTransactionsByRange(ctx, ListTransactionsByRangeParams{
		UserID:   userID,
		FromDate: from.Format(dateLayout),
		ToDate:   to.Format(dateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("list month transactions (year=%d, month=%d): %w", year, month, err)
	}
	return rowsToTransactions(rows), nil
}

// PendingExport is the minimal row identity queued for spreadsheet export.
type PendingExport struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// GetPendingExports returns transactions not yet exported.
func (r *Repository) GetPendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	out := make([]PendingExport, len(rows))
	for i, row := range rows {
		out[i] = PendingExport{ID: row.ID, Version: row.Version, CreatedAt: parseTime(row.CreatedAt)}
	}
	return out, nil
}

// MarkExported marks a transaction as successfully exported.
func (r *Repository) MarkExported(ctx context.Context, id string) error {
	if err := r.queries.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

// MarkExportError marks a transaction as having export errors.
func (r *Repository) MarkExportError(ctx context.Context, id string) error {
	if err := r.queries.MarkSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

// ListCategoryGroups returns the stored groups with their ordered labels.
// A fresh database yields an empty slice, not an error.
func (r *Repository) ListCategoryGroups(ctx context.Context) ([]core.CategoryGroup, error) {
	rows, err := r.queries.ListCategoryGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	var groups []core.CategoryGroup
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.GroupName]
		if !ok {
			i = len(groups)
			index[row.GroupName] = i
			groups = append(groups, core.CategoryGroup{Name: row.GroupName})
		}
		if row.Label.Valid {
			groups[i].Labels = append(groups[i].Labels, row.Label.String)
		}
	}
	return groups, nil
}

// ReplaceCategoryGroup rewrites one group's label list in order.
func (r *Repository) ReplaceCategoryGroup(ctx context.Context, g core.CategoryGroup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertCategoryGroup(ctx, g.Name, int64(1<<30)); err != nil {
		return fmt.Errorf("upsert category group: %w", err)
	}
	if err := q.DeleteGroupLabels(ctx, g.Name); err != nil {
		return fmt.Errorf("clear group labels: %w", err)
	}
	for i, label := range g.Labels {
		if err := q.InsertCategoryLabel(ctx, g.Name, label, int64(i)); err != nil {
			return fmt.Errorf("insert label %q: %w", label, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group replace: %w", err)
	}
	slog.InfoContext(ctx, "Category group replaced", "group", g.Name, "labels", len(g.Labels))
	return nil
}

// AddCategoryLabel appends one label to a group.
func (r *Repository) AddCategoryLabel(ctx context.Context, group, label string) error {
	groups, err := r.ListCategoryGroups(ctx)
	if err != nil {
		return err
	}
	position := 0
	for _, g := range groups {
		if g.Name == group {
			position = len(g.Labels)
			break
		}
	}
	if err := r.queries.UpsertCategoryGroup(ctx, group, int64(len(groups))); err != nil {
		return fmt.Errorf("upsert category group: %w", err)
	}
	if err := r.queries.InsertCategoryLabel(ctx, group, label, int64(position)); err != nil {
		return fmt.Errorf("add category label: %w", err)
	}
	return nil
}

// EnsureDefaultCategoryGroups migrates the stored groups against the
// current defaults on startup: missing groups and labels are appended in
// place, existing user entries are untouched.
func (r *Repository) EnsureDefaultCategoryGroups(ctx context.Context) error {
	existing, err := r.ListCategoryGroups(ctx)
	if err != nil {
		return err
	}
	merged, changed := core.MergeDefaultGroups(existing, core.DefaultCategoryGroups())
	if !changed {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for gi, g := range merged {
		if err := q.UpsertCategoryGroup(ctx, g.Name, int64(gi)); err != nil {
			return fmt.Errorf("upsert group %q: %w", g.Name, err)
		}
		for li, label := range g.Labels {
			if err := q.InsertCategoryLabel(ctx, g.Name, label, int64(li)); err != nil {
				return fmt.Errorf("insert label %q: %w", label, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group migration: %w", err)
	}
	slog.InfoContext(ctx, "Category groups migrated", "groups", len(merged))
	return nil
}

func rowToTransaction(row TransactionRow) core.Transaction {
	t := core.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Amount:      core.Money{Cents: row.AmountCents},
		Type:        core.TransactionType(row.Type),
		Category:    row.Category,
		PaymentMode: row.PaymentMode,
		Date:        parseDate(row.TxDate),
		Note:        row.Note,
		CreatedAt:   parseTime(row.CreatedAt),
	}
	if row.InvestorName.Valid {
		t.Investor = &core.InvestorDetails{
			Name:           row.InvestorName.String,
			AnnualRatePct:  row.AnnualRatePct.Float64,
			Period:         core.ReturnPeriod(row.ReturnPeriod.String),
			DurationMonths: int(row.DurationMonths.Int64),
			Purpose:        row.Purpose.String,
			PeriodicAmount: core.Money{Cents: row.PeriodicAmountCents.Int64},
		}
	}
	return t
}

func rowsToTransactions(rows []TransactionRow) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = rowToTransaction(row)
	}
	return out
}

func parseDate(s string) core.Date {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}
	}
	return core.DateOf(t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
