package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// WarehousePosting tracks the stock-movement submission per document code.
// Success clears any previously recorded error; failure keeps the record
// retryable for a later pass.
type WarehousePosting struct {
	ID             uint      `gorm:"primary_key" json:"id"`
	DocCode        string    `gorm:"uniqueIndex;size:50;not null" json:"doc_code"`
	IoClass        string    `gorm:"size:20" json:"io_class"`
	Success        bool      `gorm:"not null;default:false" json:"success"`
	ResultPayload  []byte    `gorm:"type:json" json:"result_payload"`
	LastError      *string   `gorm:"type:text" json:"last_error"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetWarehousePosting(ctx context.Context, db *gorm.DB, docCode string) (*WarehousePosting, error) {
	var rec WarehousePosting
	err := db.WithContext(ctx).Where("doc_code = ?", docCode).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// UpsertWarehousePosting writes the posting outcome for a document code,
// creating the row on first sighting.
func UpsertWarehousePosting(ctx context.Context, db *gorm.DB, docCode string, ioClass string, success bool, result []byte, lastError *string) error {
	existing, err := GetWarehousePosting(ctx, db, docCode)
	if err != nil {
		return err
	}
	if existing == nil {
		rec := WarehousePosting{
			DocCode:       docCode,
			IoClass:       ioClass,
			Success:       success,
			ResultPayload: result,
			LastError:     lastError,
		}
		if err := db.WithContext(ctx).Create(&rec).Error; err != nil {
			if IsDuplicateKeyErr(err) {
				return UpsertWarehousePosting(ctx, db, docCode, ioClass, success, result, lastError)
			}
			return err
		}
		return nil
	}
	return db.WithContext(ctx).
		Model(&WarehousePosting{}).
		Where("doc_code = ?", docCode).
		Updates(map[string]interface{}{
			"io_class":       ioClass,
			"success":        success,
			"result_payload": result,
			"last_error":     lastError,
		}).Error
}

// ListFailedWarehousePostings returns retryable records for a re-posting pass.
func ListFailedWarehousePostings(ctx context.Context, db *gorm.DB, limit int) ([]WarehousePosting, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []WarehousePosting
	err := db.WithContext(ctx).
		Where("success = ?", false).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
