package store

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ExpenseFilter narrows a listing to one user's records, optionally by
// category and purchase-date range. UserID is mandatory, rows are never
// returned across owners.
type ExpenseFilter struct {
	UserID   uuid.UUID
	Category string
	From     *time.Time
	To       *time.Time
}

// Expenses owns expense records. Every operation that addresses a single
// row is scoped by owner so a foreign id behaves like a missing one.
type Expenses interface {
	repository.Repository[*Expense]

	ListForUser(ctx context.Context, filter ExpenseFilter) ([]*Expense, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*Expense, error)
	UpdateForUser(ctx context.Context, record *Expense) (*Expense, error)
	DeleteForUser(ctx context.Context, userID, id uuid.UUID) error
}

type expenses struct {
	repository.Repository[*Expense]
	db *bun.DB
}

var _ Expenses = (*expenses)(nil)

// NewExpensesRepository creates the expenses repository backed by db.
func NewExpensesRepository(db *bun.DB) Expenses {
	repo := repository.NewRepository[*Expense](db, repository.ModelHandlers[*Expense]{
		NewRecord: func() *Expense { return &Expense{} },
		GetID: func(e *Expense) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *Expense, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
	})

	return &expenses{
		Repository: repo,
		db:         db,
	}
}

func (a *expenses) Create(ctx context.Context, record *Expense, criteria ...repository.InsertCriteria) (*Expense, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *expenses) CreateTx(ctx context.Context, tx bun.IDB, record *Expense, criteria ...repository.InsertCriteria) (*Expense, error) {
	prepareExpenseDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func prepareExpenseDefaults(record *Expense) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Category == "" {
		record.Category = CategoryOthers
	}

	if record.PurchasedAt.IsZero() {
		record.PurchasedAt = time.Now()
	}
}

// ListForUser returns the filtered expenses in descending purchase
// order. The name stays clear of the embedded repository's List, which
// keeps its criteria based signature.
func (a *expenses) ListForUser(ctx context.Context, filter ExpenseFilter) ([]*Expense, error) {
	records := []*Expense{}

	q := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", filter.UserID)

	if filter.Category != "" {
		q = q.Where("?TableAlias.category = ?", filter.Category)
	}
	if filter.From != nil {
		q = q.Where("?TableAlias.purchased_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("?TableAlias.purchased_at <= ?", *filter.To)
	}

	if err := q.Order("purchased_at DESC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *expenses) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Expense, error) {
	record := &Expense{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id":      id.String(),
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// UpdateForUser replaces the mutable fields of an existing record. The
// update is owner scoped, a missing or foreign row reports not found.
func (a *expenses) UpdateForUser(ctx context.Context, record *Expense) (*Expense, error) {
	now := time.Now()
	record.UpdatedAt = &now

	res, err := a.db.NewUpdate().
		Model(record).
		Column("category", "cost", "description", "purchased_at", "updated_at").
		Where("?TableAlias.id = ?", record.ID).
		Where("?TableAlias.user_id = ?", record.UserID).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id":      record.ID.String(),
				"user_id": record.UserID.String(),
			})
	}

	return a.GetForUser(ctx, record.UserID, record.ID)
}

func (a *expenses) DeleteForUser(ctx context.Context, userID, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*Expense)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id":      id.String(),
				"user_id": userID.String(),
			})
	}

	return nil
}
