package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleOrder is one business document from the retail feed. DocCode is the
// idempotency key shared by the dispatch and warehouse trackers.
type SaleOrder struct {
	ID           uint      `gorm:"primary_key" json:"id"`
	DocCode      string    `gorm:"uniqueIndex;size:50;not null" json:"doc_code"`
	DocDate      time.Time `json:"doc_date"`
	Brand        string    `gorm:"index;size:10;not null" json:"brand"`
	BranchCode   string    `gorm:"size:20" json:"branch_code"`
	CustomerCode string    `gorm:"index;size:50" json:"customer_code"`
	OrderType    string    `gorm:"size:50" json:"order_type"`
	Channel      string    `gorm:"size:20" json:"channel"`
	PackageCode  string    `gorm:"size:50" json:"package_code"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Lines []SaleLine `gorm:"foreignKey:DocCode;references:DocCode" json:"lines"`
}

// SaleLine is one line of a sale document. Resolved is false when the item
// code could not be matched against the reference service; such lines are
// excluded from lookup waves until explicitly re-synced.
type SaleLine struct {
	ID       uint   `gorm:"primary_key" json:"id"`
	DocCode  string `gorm:"index:idx_sale_line_natural,unique;size:50;not null" json:"doc_code"`
	ItemCode string `gorm:"index:idx_sale_line_natural,unique;size:50;not null" json:"item_code"`
	Serial   string `gorm:"index:idx_sale_line_natural,unique;size:100" json:"serial"`

	Quantity    decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_price"`
	Revenue     decimal.Decimal `gorm:"type:decimal(20,4)" json:"revenue"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4)" json:"line_total"`
	GrossAmount decimal.Decimal `gorm:"type:decimal(20,4)" json:"gross_amount"`
	GoodsAmount decimal.Decimal `gorm:"type:decimal(20,4)" json:"goods_amount"`

	PromoCode     string `gorm:"size:100" json:"promo_code"`
	VoucherLabel  string `gorm:"size:50" json:"voucher_label"`
	TaxCode       string `gorm:"size:10" json:"tax_code"`
	WarehouseCode string `gorm:"size:20" json:"warehouse_code"`

	// Discount/payment components the feed reports per line.
	PromoDiscount         decimal.Decimal `gorm:"type:decimal(20,4)" json:"promo_discount"`
	VIPDiscount           decimal.Decimal `gorm:"type:decimal(20,4)" json:"vip_discount"`
	VoucherPayment        decimal.Decimal `gorm:"type:decimal(20,4)" json:"voucher_payment"`
	ReserveVoucherPayment decimal.Decimal `gorm:"type:decimal(20,4)" json:"reserve_voucher_payment"`
	VirtualAccountPayment decimal.Decimal `gorm:"type:decimal(20,4)" json:"virtual_account_payment"`
	OtherDiscount         decimal.Decimal `gorm:"type:decimal(20,4)" json:"other_discount"`

	Resolved  bool      `gorm:"not null;default:true" json:"resolved"`
	Processed bool      `gorm:"not null;default:false" json:"processed"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DiscountSum is the amount reconstructed into the gross fallback chain when
// the feed omits every explicit gross field.
func (l SaleLine) DiscountSum() decimal.Decimal {
	return l.PromoDiscount.
		Add(l.VIPDiscount).
		Add(l.VoucherPayment).
		Add(l.ReserveVoucherPayment).
		Add(l.VirtualAccountPayment).
		Add(l.OtherDiscount)
}

// CashVoucherAggregate is one row of the feed's parallel cash/voucher array,
// keyed by document code. PaymentCode identifies the settling payment system.
type CashVoucherAggregate struct {
	ID          uint            `gorm:"primary_key" json:"id"`
	DocCode     string          `gorm:"index;size:50;not null" json:"doc_code"`
	PaymentCode string          `gorm:"size:20" json:"payment_code"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetSaleOrderByDocCode(ctx context.Context, db *gorm.DB, docCode string) (*SaleOrder, error) {
	var order SaleOrder
	err := db.WithContext(ctx).Where("doc_code = ?", docCode).Take(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func GetSaleLinesByDocCode(ctx context.Context, db *gorm.DB, docCode string) ([]SaleLine, error) {
	var lines []SaleLine
	err := db.WithContext(ctx).
		Where("doc_code = ?", docCode).
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func GetCashVoucherAggregates(ctx context.Context, db *gorm.DB, docCode string) ([]CashVoucherAggregate, error) {
	var rows []CashVoucherAggregate
	err := db.WithContext(ctx).Where("doc_code = ?", docCode).Find(&rows).Error
	return rows, err
}

// MarkSaleLinesProcessed flips the processed flag for every line of the
// document. Called by the dispatch tracker on SUCCESS only.
func MarkSaleLinesProcessed(ctx context.Context, db *gorm.DB, docCode string) error {
	return db.WithContext(ctx).
		Model(&SaleLine{}).
		Where("doc_code = ?", docCode).
		Update("processed", true).Error
}

// MarkSaleLinesResolved clears the unresolved flag for a document range so a
// later sync pass retries reference lookups for those lines.
func MarkSaleLinesResolved(ctx context.Context, db *gorm.DB, docCodes []string) error {
	if len(docCodes) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&SaleLine{}).
		Where("doc_code IN ?", docCodes).
		Update("resolved", true).Error
}
