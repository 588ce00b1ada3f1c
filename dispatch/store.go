package dispatch

import (
	"context"

	"github.com/mmdatafocus/retailbridge_backend/models"
	"gorm.io/gorm"
)

// GormStore is the MySQL-backed Store. The unique index on doc_code plus
// duplicate-insert tolerance in EnsureInvoiceDispatch make concurrent first
// attempts safe.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Get(ctx context.Context, docCode string) (*models.InvoiceDispatch, error) {
	return models.GetInvoiceDispatch(ctx, s.DB, docCode)
}

func (s *GormStore) Ensure(ctx context.Context, docCode string) (*models.InvoiceDispatch, error) {
	return models.EnsureInvoiceDispatch(ctx, s.DB, docCode)
}

func (s *GormStore) Update(ctx context.Context, docCode, status string, response []byte, lastError *string) error {
	return models.UpdateInvoiceDispatch(ctx, s.DB, docCode, status, response, lastError)
}

func (s *GormStore) MarkLinesProcessed(ctx context.Context, docCode string) error {
	return models.MarkSaleLinesProcessed(ctx, s.DB, docCode)
}
