package quotes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/pagination"
)

// Repository persists dispatched quote records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, record *models.QuoteRequest) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	var record models.QuoteRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	return &record, nil
}

// ListParams filters the admin listing. Email matches exactly when set.
type ListParams struct {
	Limit  int
	Cursor string
	Email  string
}

// List returns quotes newest first.
func (r *Repository) List(ctx context.Context, params ListParams) (pagination.Page[models.QuoteRequest], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.QuoteRequest]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	q := r.db.WithContext(ctx).Model(&models.QuoteRequest{})
	if params.Email != "" {
		q = q.Where("email = ?", params.Email)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.QuoteRequest
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.QuoteRequest]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}

	return pagination.Trim(rows, params.Limit, func(row models.QuoteRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	}), nil
}

// CreateTx inserts record using tx.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, record *models.QuoteRequest) error {
	return r.WithTx(tx).Create(ctx, record)
}
