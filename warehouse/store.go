package warehouse

import (
	"context"

	"github.com/mmdatafocus/retailbridge_backend/models"
	"gorm.io/gorm"
)

// GormStore is the MySQL-backed Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Upsert(ctx context.Context, docCode, ioClass string, success bool, result []byte, lastError *string) error {
	return models.UpsertWarehousePosting(ctx, s.DB, docCode, ioClass, success, result, lastError)
}
