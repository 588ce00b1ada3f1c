package models

import (
	"github.com/mmdatafocus/retailbridge_backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&SaleOrder{},
		&SaleLine{},
		&Customer{},
		&CashVoucherAggregate{},
		&StockTransfer{},
		&InvoiceDispatch{},
		&WarehousePosting{},
		&SyncRun{},
		&SyncError{},
	)
	if err != nil {
		panic(err)
	}
}
