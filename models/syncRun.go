package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// SyncRun is one ingestion pass over the retail feed for a date + brand.
type SyncRun struct {
	ID            uint       `gorm:"primary_key" json:"id"`
	Brand         string     `gorm:"index;size:10;not null" json:"brand"`
	FeedDate      time.Time  `gorm:"index" json:"feed_date"`
	Status        string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string     `gorm:"size:20" json:"triggered_by"`
	StatsJSON     []byte     `gorm:"type:json" json:"stats"`
	RecordsSynced int        `json:"records_synced"`
	ErrorCount    int        `json:"error_count"`
	ParentRunId   *uint      `gorm:"index" json:"parent_run_id"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SyncError is one per-record failure inside a run. Structural failures and
// transient external failures both land here; the run carries on.
type SyncError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	EntityType  string    `gorm:"size:30" json:"entity_type"`
	DocCode     string    `gorm:"size:50" json:"doc_code"`
	ErrorCode   string    `gorm:"size:50" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateSyncError(ctx context.Context, db *gorm.DB, runId uint, entityType, docCode, code, message string, payload []byte, retryable bool) error {
	rec := SyncError{
		SyncRunId:   runId,
		EntityType:  entityType,
		DocCode:     docCode,
		ErrorCode:   code,
		Message:     message,
		PayloadJSON: payload,
		Retryable:   retryable,
	}
	return db.WithContext(ctx).Create(&rec).Error
}

func GetSyncRun(ctx context.Context, db *gorm.DB, id uint) (*SyncRun, error) {
	var run SyncRun
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func ListSyncRuns(ctx context.Context, db *gorm.DB, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []SyncRun
	err := db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

func ListSyncErrors(ctx context.Context, db *gorm.DB, runId uint) ([]SyncError, error) {
	var errs []SyncError
	err := db.WithContext(ctx).Where("sync_run_id = ?", runId).Order("id ASC").Find(&errs).Error
	return errs, err
}
