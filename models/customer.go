package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer is the canonical customer record for a (code, brand) pair.
// Name/mobile/brand are mutated on repeat sightings in the feed.
type Customer struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"index:idx_customer_code_brand,unique;size:50;not null" json:"code"`
	Brand     string    `gorm:"index:idx_customer_code_brand,unique;size:10;not null" json:"brand"`
	Name      string    `gorm:"size:255" json:"name"`
	Mobile    string    `gorm:"size:30" json:"mobile"`
	Email     string    `gorm:"size:100" json:"email"`
	Address   string    `gorm:"size:255" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpsertCustomer looks up by (code, brand), creating when absent and
// refreshing the mutable contact fields when present. Returns true when a
// new row was created.
func UpsertCustomer(ctx context.Context, db *gorm.DB, input *Customer) (bool, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return false, errors.New("customer code is empty")
	}

	var existing Customer
	err := db.WithContext(ctx).
		Where("code = ? AND brand = ?", input.Code, input.Brand).
		Take(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, db.WithContext(ctx).Create(input).Error
		}
		return false, err
	}

	updates := map[string]interface{}{}
	if input.Name != "" && input.Name != existing.Name {
		updates["name"] = input.Name
	}
	if input.Mobile != "" && input.Mobile != existing.Mobile {
		updates["mobile"] = input.Mobile
	}
	if input.Brand != "" && input.Brand != existing.Brand {
		updates["brand"] = input.Brand
	}
	if len(updates) == 0 {
		return false, nil
	}
	return false, db.WithContext(ctx).
		Model(&Customer{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error
}
