package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// InvoiceDispatch tracks the idempotent submission of one document to the
// external ERP invoicing endpoint. One row per document code, never deleted;
// every attempt updates it in place with the raw response or error.
type InvoiceDispatch struct {
	ID           uint      `gorm:"primary_key" json:"id"`
	DocCode      string    `gorm:"uniqueIndex;size:50;not null" json:"doc_code"`
	Status       string    `gorm:"size:20;not null" json:"status"`
	LastResponse []byte    `gorm:"type:json" json:"last_response"`
	LastError    *string   `gorm:"type:text" json:"last_error"`
	Attempts     int       `gorm:"not null;default:0" json:"attempts"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDuplicateKeyErr reports MySQL error 1062 (duplicate entry) so callers
// can tolerate concurrent first-attempt inserts on the unique doc code.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func GetInvoiceDispatch(ctx context.Context, db *gorm.DB, docCode string) (*InvoiceDispatch, error) {
	var rec InvoiceDispatch
	err := db.WithContext(ctx).Where("doc_code = ?", docCode).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// EnsureInvoiceDispatch inserts the UNSENT record on first attempt. A
// concurrent insert losing on the unique index falls back to reading the
// winner's row.
func EnsureInvoiceDispatch(ctx context.Context, db *gorm.DB, docCode string) (*InvoiceDispatch, error) {
	rec := InvoiceDispatch{
		DocCode: docCode,
		Status:  DispatchStatusUnsent,
	}
	err := db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if !IsDuplicateKeyErr(err) {
		return nil, err
	}
	return GetInvoiceDispatch(ctx, db, docCode)
}

func UpdateInvoiceDispatch(ctx context.Context, db *gorm.DB, docCode string, status string, response []byte, lastError *string) error {
	return db.WithContext(ctx).
		Model(&InvoiceDispatch{}).
		Where("doc_code = ?", docCode).
		Updates(map[string]interface{}{
			"status":        status,
			"last_response": response,
			"last_error":    lastError,
			"attempts":      gorm.Expr("attempts + 1"),
		}).Error
}
