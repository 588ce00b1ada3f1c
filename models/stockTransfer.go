package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockTransfer is one stock-movement row from the feed. Rows are persisted
// unconditionally for audit; DedupKey makes re-ingestion of the same logical
// row non-duplicating at the processing level.
type StockTransfer struct {
	ID               uint            `gorm:"primary_key" json:"id"`
	DocCode          string          `gorm:"index;size:50;not null" json:"doc_code"`
	DocType          string          `gorm:"size:20;not null" json:"doc_type"`
	ItemCode         string          `gorm:"size:50" json:"item_code"`
	IoType           string          `gorm:"size:5" json:"io_type"`
	Quantity         decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity"`
	StockCode        string          `gorm:"size:20" json:"stock_code"`
	RelatedStockCode string          `gorm:"size:20" json:"related_stock_code"`
	SOCode           string          `gorm:"size:50" json:"so_code"`
	BatchSerial      string          `gorm:"size:100" json:"batch_serial"`
	DedupKey         string          `gorm:"index;size:64;not null" json:"dedup_key"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// ComputeDedupKey derives the composite key from business content only.
// Identical content always yields the identical key, regardless of when or
// how often the row was ingested.
func ComputeDedupKey(docCode, itemCode string, qty decimal.Decimal, stockCode, ioType, batchSerial string) string {
	parts := []string{
		strings.TrimSpace(docCode),
		strings.TrimSpace(itemCode),
		qty.String(),
		strings.TrimSpace(stockCode),
		strings.TrimSpace(ioType),
		strings.TrimSpace(batchSerial),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func (s *StockTransfer) BeforeCreate(tx *gorm.DB) error {
	if s.DedupKey == "" {
		s.DedupKey = ComputeDedupKey(s.DocCode, s.ItemCode, s.Quantity, s.StockCode, s.IoType, s.BatchSerial)
	}
	return nil
}

func GetStockTransfersByDocCode(ctx context.Context, db *gorm.DB, docCode string) ([]StockTransfer, error) {
	var rows []StockTransfer
	err := db.WithContext(ctx).
		Where("doc_code = ?", docCode).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// DedupStockTransfers keeps one row per composite key, first sighting wins.
// Downstream processing operates on the deduplicated view.
func DedupStockTransfers(rows []StockTransfer) []StockTransfer {
	seen := map[string]bool{}
	out := make([]StockTransfer, 0, len(rows))
	for _, row := range rows {
		key := row.DedupKey
		if key == "" {
			key = ComputeDedupKey(row.DocCode, row.ItemCode, row.Quantity, row.StockCode, row.IoType, row.BatchSerial)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}
