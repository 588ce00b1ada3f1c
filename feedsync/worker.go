package feedsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/retailbridge_backend/config"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/refdata"
	"github.com/mmdatafocus/retailbridge_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var validate = validator.New()

// WarehouseProcessor is the warehouse tracker as the worker sees it.
type WarehouseProcessor interface {
	ProcessDocument(ctx context.Context, docCode string, rows []models.StockTransfer) error
}

// Worker runs one ingestion pass: fetch the feed for a date + brand,
// normalize into storage, then trigger warehouse processing for touched
// documents without blocking or failing the ingestion result.
type Worker struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Resolver  *refdata.Resolver
	Warehouse WarehouseProcessor

	// stockRows loads the persisted stock rows for one document; tests
	// substitute a stub.
	stockRows func(ctx context.Context, docCode string) ([]models.StockTransfer, error)
}

func NewWorker(db *gorm.DB, logger *logrus.Logger, resolver *refdata.Resolver, wh WarehouseProcessor) *Worker {
	w := &Worker{
		DB:        db,
		Logger:    logger,
		Resolver:  resolver,
		Warehouse: wh,
	}
	w.stockRows = func(ctx context.Context, docCode string) ([]models.StockTransfer, error) {
		return models.GetStockTransfersByDocCode(ctx, w.DB, docCode)
	}
	return w
}

// ProcessSyncRun drives one queued run to a terminal status. Per-record
// failures are collected; only a completely unusable request (bad date, no
// feed access) fails the run outright.
func (w *Worker) ProcessSyncRun(ctx context.Context, payload RunPayload) error {
	if payload.RunId == 0 || payload.Brand == "" {
		return errors.New("invalid payload")
	}
	ctx = utils.SetBrandInContext(ctx, payload.Brand)
	db := w.DB.WithContext(ctx)

	run, err := models.GetSyncRun(ctx, db, payload.RunId)
	if err != nil {
		return err
	}
	switch run.Status {
	case models.SyncRunStatusSuccess, models.SyncRunStatusFailed, models.SyncRunStatusPartial:
		return nil
	}

	feedDate, ok := utils.ParseFeedDate(payload.Date)
	if !ok {
		return w.failRun(ctx, run, fmt.Errorf("cannot parse feed date %q", payload.Date))
	}

	now := time.Now()
	startedAt := run.StartedAt
	if startedAt == nil {
		startedAt = &now
	}
	if err := db.Model(run).Updates(map[string]interface{}{
		"status":     models.SyncRunStatusRunning,
		"started_at": startedAt,
	}).Error; err != nil {
		return err
	}

	client, err := newFeedClient()
	if err != nil {
		return w.failRun(ctx, run, err)
	}

	dateArg := feedDate.Format("2006-01-02")

	ordersSummary := BatchSummary{}
	rawOrders, err := client.fetchAll(ctx, "/v1/orders", dateArg, payload.Brand)
	if err != nil {
		_ = models.CreateSyncError(ctx, db, run.ID, "orders", "", "fetch_failed", err.Error(), nil, true)
		ordersSummary.addError(err.Error())
	} else {
		ordersSummary = w.normalizeOrders(ctx, run.ID, payload.Brand, rawOrders)
	}

	cashSummary := BatchSummary{}
	rawCash, err := client.fetchAll(ctx, "/v1/cash-vouchers", dateArg, payload.Brand)
	if err != nil {
		_ = models.CreateSyncError(ctx, db, run.ID, "cash_vouchers", "", "fetch_failed", err.Error(), nil, true)
		cashSummary.addError(err.Error())
	} else {
		cashSummary = w.normalizeCashVouchers(ctx, run.ID, rawCash)
	}

	stockSummary := BatchSummary{}
	var touched []string
	rawStock, err := client.fetchAll(ctx, "/v1/stock-movements", dateArg, payload.Brand)
	if err != nil {
		_ = models.CreateSyncError(ctx, db, run.ID, "stock_movements", "", "fetch_failed", err.Error(), nil, true)
		stockSummary.addError(err.Error())
	} else {
		stockSummary, touched = w.normalizeStockMovements(ctx, run.ID, rawStock)
	}

	// Warehouse processing is a side effect of ingestion: it runs after the
	// batch persists and never blocks or fails the ingestion result.
	if len(touched) > 0 && w.Warehouse != nil {
		go w.triggerWarehouse(context.WithoutCancel(ctx), touched)
	}

	return w.finishRun(ctx, run, *startedAt, ordersSummary, cashSummary, stockSummary)
}

func (w *Worker) normalizeOrders(ctx context.Context, runId uint, brand string, raws []json.RawMessage) BatchSummary {
	db := w.DB.WithContext(ctx)
	summary := BatchSummary{}

	orders := make([]feedOrder, 0, len(raws))
	for _, raw := range raws {
		var order feedOrder
		if err := json.Unmarshal(raw, &order); err != nil {
			_ = models.CreateSyncError(ctx, db, runId, "order", "", "invalid_payload", err.Error(), raw, true)
			summary.addError(err.Error())
			continue
		}
		if err := validate.Struct(order); err != nil {
			_ = models.CreateSyncError(ctx, db, runId, "order", order.DocCode, "invalid_payload", err.Error(), raw, false)
			summary.addError(err.Error())
			continue
		}
		if len(order.Lines) == 0 {
			msg := fmt.Sprintf("document %s has no sale lines", order.DocCode)
			_ = models.CreateSyncError(ctx, db, runId, "order", order.DocCode, "empty_lines", msg, raw, false)
			summary.addError(msg)
			continue
		}
		orders = append(orders, order)
	}

	// One lookup wave for the whole batch.
	var itemCodes []string
	for _, order := range orders {
		for _, line := range order.Lines {
			itemCodes = append(itemCodes, line.ItemCode)
		}
	}
	products := w.Resolver.ResolveProducts(ctx, itemCodes)

	for _, order := range orders {
		docDate, ok := utils.ParseFeedDate(order.DocDate)
		if !ok {
			msg := fmt.Sprintf("document %s has unparseable date %q", order.DocCode, order.DocDate)
			_ = models.CreateSyncError(ctx, db, runId, "order", order.DocCode, "date_unparseable", msg, nil, false)
			summary.addError(msg)
			continue
		}

		if order.CustomerCode != "" {
			_, err := models.UpsertCustomer(ctx, db, &models.Customer{
				Code:   order.CustomerCode,
				Brand:  brand,
				Name:   order.CustomerName,
				Mobile: order.Mobile,
			})
			if err != nil {
				_ = models.CreateSyncError(ctx, db, runId, "customer", order.DocCode, "upsert_failed", err.Error(), nil, true)
				summary.addError(err.Error())
			}
		}

		created, err := w.upsertOrder(ctx, order, brand, docDate, products)
		if err != nil {
			_ = models.CreateSyncError(ctx, db, runId, "order", order.DocCode, "upsert_failed", err.Error(), nil, true)
			summary.addError(err.Error())
			continue
		}
		if created {
			summary.Created++
		} else {
			summary.Updated++
		}
	}
	return summary
}

func (w *Worker) upsertOrder(ctx context.Context, order feedOrder, brand string, docDate time.Time, products map[string]*refdata.Product) (bool, error) {
	db := w.DB.WithContext(ctx)

	canonical := models.SaleOrder{
		DocCode:      order.DocCode,
		DocDate:      docDate,
		Brand:        brand,
		BranchCode:   order.BranchCode,
		CustomerCode: order.CustomerCode,
		OrderType:    order.OrderType,
		Channel:      order.Channel,
		PackageCode:  order.PackageCode,
	}

	createdOrder := false
	var existing models.SaleOrder
	err := db.Where("doc_code = ?", order.DocCode).Take(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		if err := db.Create(&canonical).Error; err != nil {
			return false, err
		}
		createdOrder = true
	} else {
		if err := db.Model(&models.SaleOrder{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"doc_date":      docDate,
				"branch_code":   order.BranchCode,
				"customer_code": order.CustomerCode,
				"order_type":    order.OrderType,
				"channel":       order.Channel,
				"package_code":  order.PackageCode,
			}).Error; err != nil {
			return false, err
		}
	}

	for _, line := range order.Lines {
		if err := w.upsertLine(ctx, order.DocCode, line, products[line.ItemCode] != nil); err != nil {
			return createdOrder, err
		}
	}
	return createdOrder, nil
}

func (w *Worker) upsertLine(ctx context.Context, docCode string, line feedSaleLine, resolved bool) error {
	db := w.DB.WithContext(ctx)
	values := map[string]interface{}{
		"quantity":                utils.DecimalFromNumber(line.Quantity),
		"unit_price":              utils.DecimalFromNumber(line.UnitPrice),
		"revenue":                 utils.DecimalFromNumber(line.Revenue),
		"line_total":              utils.DecimalFromNumber(line.LineTotal),
		"gross_amount":            utils.DecimalFromNumber(line.GrossAmount),
		"goods_amount":            utils.DecimalFromNumber(line.GoodsAmount),
		"promo_code":              line.PromoCode,
		"voucher_label":           line.VoucherLabel,
		"tax_code":                line.TaxCode,
		"warehouse_code":          line.Warehouse,
		"promo_discount":          utils.DecimalFromNumber(line.PromoDiscount),
		"vip_discount":            utils.DecimalFromNumber(line.VIPDiscount),
		"voucher_payment":         utils.DecimalFromNumber(line.VoucherPayment),
		"reserve_voucher_payment": utils.DecimalFromNumber(line.ReserveVoucherPayment),
		"virtual_account_payment": utils.DecimalFromNumber(line.VirtualAccountPayment),
		"other_discount":          utils.DecimalFromNumber(line.OtherDiscount),
		"resolved":                resolved,
	}

	var existing models.SaleLine
	err := db.Where("doc_code = ? AND item_code = ? AND serial = ?", docCode, line.ItemCode, line.Serial).
		Take(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		rec := models.SaleLine{
			DocCode:               docCode,
			ItemCode:              line.ItemCode,
			Serial:                line.Serial,
			Quantity:              utils.DecimalFromNumber(line.Quantity),
			UnitPrice:             utils.DecimalFromNumber(line.UnitPrice),
			Revenue:               utils.DecimalFromNumber(line.Revenue),
			LineTotal:             utils.DecimalFromNumber(line.LineTotal),
			GrossAmount:           utils.DecimalFromNumber(line.GrossAmount),
			GoodsAmount:           utils.DecimalFromNumber(line.GoodsAmount),
			PromoCode:             line.PromoCode,
			VoucherLabel:          line.VoucherLabel,
			TaxCode:               line.TaxCode,
			WarehouseCode:         line.Warehouse,
			PromoDiscount:         utils.DecimalFromNumber(line.PromoDiscount),
			VIPDiscount:           utils.DecimalFromNumber(line.VIPDiscount),
			VoucherPayment:        utils.DecimalFromNumber(line.VoucherPayment),
			ReserveVoucherPayment: utils.DecimalFromNumber(line.ReserveVoucherPayment),
			VirtualAccountPayment: utils.DecimalFromNumber(line.VirtualAccountPayment),
			OtherDiscount:         utils.DecimalFromNumber(line.OtherDiscount),
			Resolved:              resolved,
		}
		return db.Create(&rec).Error
	}
	return db.Model(&models.SaleLine{}).Where("id = ?", existing.ID).Updates(values).Error
}

func (w *Worker) normalizeCashVouchers(ctx context.Context, runId uint, raws []json.RawMessage) BatchSummary {
	db := w.DB.WithContext(ctx)
	summary := BatchSummary{}

	byDoc := map[string][]models.CashVoucherAggregate{}
	for _, raw := range raws {
		var row feedCashVoucher
		if err := json.Unmarshal(raw, &row); err != nil {
			_ = models.CreateSyncError(ctx, db, runId, "cash_voucher", "", "invalid_payload", err.Error(), raw, true)
			summary.addError(err.Error())
			continue
		}
		if row.DocCode == "" {
			continue
		}
		byDoc[row.DocCode] = append(byDoc[row.DocCode], models.CashVoucherAggregate{
			DocCode:     row.DocCode,
			PaymentCode: row.PaymentCode,
			Amount:      utils.DecimalFromNumber(row.Amount),
		})
	}

	// Aggregates are replaced wholesale per document so re-ingestion stays
	// idempotent.
	chunkSize := config.GetSyncTuning().ChunkSize
	for docCode, rows := range byDoc {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("doc_code = ?", docCode).Delete(&models.CashVoucherAggregate{}).Error; err != nil {
				return err
			}
			return tx.CreateInBatches(&rows, chunkSize).Error
		})
		if err != nil {
			_ = models.CreateSyncError(ctx, db, runId, "cash_voucher", docCode, "upsert_failed", err.Error(), nil, true)
			summary.addError(err.Error())
			continue
		}
		summary.Created += len(rows)
	}
	return summary
}

func (w *Worker) normalizeStockMovements(ctx context.Context, runId uint, raws []json.RawMessage) (BatchSummary, []string) {
	db := w.DB.WithContext(ctx)
	summary := BatchSummary{}
	touchedSet := map[string]bool{}

	for _, raw := range raws {
		var row feedStockMovement
		if err := json.Unmarshal(raw, &row); err != nil {
			_ = models.CreateSyncError(ctx, db, runId, "stock_movement", "", "invalid_payload", err.Error(), raw, true)
			summary.addError(err.Error())
			continue
		}
		if row.DocCode == "" {
			_ = models.CreateSyncError(ctx, db, runId, "stock_movement", "", "missing_doc_code", "stock movement without doc code", raw, false)
			summary.addError("stock movement without doc code")
			continue
		}
		rec := models.StockTransfer{
			DocCode:          row.DocCode,
			DocType:          row.DocType,
			ItemCode:         row.ItemCode,
			IoType:           row.IoType,
			Quantity:         utils.DecimalFromNumber(row.Quantity),
			StockCode:        row.StockCode,
			RelatedStockCode: row.RelatedStockCode,
			SOCode:           row.SOCode,
			BatchSerial:      row.BatchSerial,
		}
		// Stored unconditionally for audit; the composite key dedups at
		// processing time.
		if err := db.Create(&rec).Error; err != nil {
			_ = models.CreateSyncError(ctx, db, runId, "stock_movement", row.DocCode, "insert_failed", err.Error(), raw, true)
			summary.addError(err.Error())
			continue
		}
		summary.Created++
		touchedSet[row.DocCode] = true
	}

	touched := make([]string, 0, len(touchedSet))
	for docCode := range touchedSet {
		touched = append(touched, docCode)
	}
	return summary, touched
}

// triggerWarehouse posts every touched document. Failures are logged and
// swallowed: by signature this cannot feed anything back into the run.
func (w *Worker) triggerWarehouse(ctx context.Context, docCodes []string) {
	brand, _ := utils.GetBrandFromContext(ctx)
	for _, docCode := range docCodes {
		rows, err := w.stockRows(ctx, docCode)
		if err != nil {
			config.LogError(w.Logger, "feedsync", "triggerWarehouse", brand+"/"+docCode, nil, err)
			continue
		}
		if err := w.Warehouse.ProcessDocument(ctx, docCode, rows); err != nil {
			config.LogError(w.Logger, "feedsync", "triggerWarehouse", brand+"/"+docCode, nil, err)
		}
	}
}

func (w *Worker) failRun(ctx context.Context, run *models.SyncRun, cause error) error {
	db := w.DB.WithContext(ctx)
	finishedAt := time.Now()
	_ = models.CreateSyncError(ctx, db, run.ID, "run", "", "fatal", cause.Error(), nil, false)
	_ = db.Model(run).Updates(map[string]interface{}{
		"status":      models.SyncRunStatusFailed,
		"finished_at": finishedAt,
		"error_count": 1,
	}).Error
	return cause
}

// summaryStatus derives the run status from the ingestion summaries alone.
// The warehouse side effect has no input here.
func summaryStatus(summaries ...BatchSummary) (status string, total, failed int) {
	for _, s := range summaries {
		total += s.Created + s.Updated
		failed += s.Failed
	}
	status = models.SyncRunStatusSuccess
	if failed > 0 && total == 0 {
		status = models.SyncRunStatusFailed
	} else if failed > 0 {
		status = models.SyncRunStatusPartial
	}
	return status, total, failed
}

func (w *Worker) finishRun(ctx context.Context, run *models.SyncRun, startedAt time.Time, summaries ...BatchSummary) error {
	db := w.DB.WithContext(ctx)

	status, total, failed := summaryStatus(summaries...)

	stats := map[string]BatchSummary{
		"orders":          summaries[0],
		"cash_vouchers":   summaries[1],
		"stock_movements": summaries[2],
	}
	statsJSON, _ := json.Marshal(stats)
	finishedAt := time.Now()

	return db.Model(run).Updates(map[string]interface{}{
		"status":         status,
		"finished_at":    finishedAt,
		"duration_ms":    finishedAt.Sub(startedAt).Milliseconds(),
		"records_synced": total,
		"error_count":    failed,
		"stats_json":     statsJSON,
	}).Error
}
