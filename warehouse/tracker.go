package warehouse

import (
	"context"

	"github.com/mmdatafocus/retailbridge_backend/config"
	"github.com/mmdatafocus/retailbridge_backend/erpclient"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/refdata"
	"github.com/sirupsen/logrus"
)

// Io classifications recorded on the posting.
const (
	IoClassTransfer = "TRANSFER"
	IoClassMovement = "MOVEMENT"
)

// Movement-type codes the ERP expects per io direction.
const (
	movementTypeIn  = "NK"
	movementTypeOut = "XK"
)

// ERPSubmitter is the slice of the ERP client the tracker calls.
type ERPSubmitter interface {
	SubmitStockTransfer(ctx context.Context, payload erpclient.TransferPayload) ([]byte, error)
	SubmitStockMovement(ctx context.Context, payload erpclient.MovementPayload) ([]byte, error)
}

// Store persists postings per document code; tests substitute a fake.
type Store interface {
	Upsert(ctx context.Context, docCode, ioClass string, success bool, result []byte, lastError *string) error
}

// ProductResolver supplies canonical material codes and units for movement
// lines. Optional; nil leaves the raw item codes in place.
type ProductResolver interface {
	ResolveProducts(ctx context.Context, itemCodes []string) map[string]*refdata.Product
}

// Tracker classifies stock-transfer rows per document and posts the
// eligible ones, keeping one retryable WarehousePosting per doc code.
type Tracker struct {
	store    Store
	erp      ERPSubmitter
	products ProductResolver
	logger   *logrus.Logger
}

func NewTracker(store Store, erp ERPSubmitter, products ProductResolver, logger *logrus.Logger) *Tracker {
	return &Tracker{
		store:    store,
		erp:      erp,
		products: products,
		logger:   logger,
	}
}

/// EligibleMovement reports whether a stock-io row may be posted: no linked
// sales order and an in/out direction. Rows failing either condition are
// skipped, not errored.
func EligibleMovement(row models.StockTransfer) bool {
	if row.DocType != models.StockDocTypeStockIO {
		return false
	}
	if row.SOCode != "" {
		return false
	}
	return row.IoType == models.StockIoTypeIn || row.IoType == models.StockIoTypeOut
}

// ProcessDocument groups the document's rows, decides which external call
// (if any) applies, and upserts the posting record with the outcome.
func (t *Tracker) ProcessDocument(ctx context.Context, docCode string, rows []models.StockTransfer) error {
	rows = models.DedupStockTransfers(rows)

	var transferRows, movementRows []models.StockTransfer
	skipped := 0
	for _, row := range rows {
		switch {
		case row.DocType == models.StockDocTypeTransfer && row.RelatedStockCode != "":
			transferRows = append(transferRows, row)
		case EligibleMovement(row):
			movementRows = append(movementRows, row)
		default:
			skipped++
		}
	}
	if skipped > 0 && t.logger != nil {
		t.logger.WithFields(logrus.Fields{
			"module":   "warehouse",
			"doc_code": docCode,
			"skipped":  skipped,
		}).Warn("stock rows skipped by eligibility rules")
	}

	if len(transferRows) > 0 {
		payload := erpclient.TransferPayload{
			DocCode: docCode,
			Detail:  t.buildLines(ctx, transferRows),
		}
		result, err := t.erp.SubmitStockTransfer(ctx, payload)
		return t.record(ctx, docCode, IoClassTransfer, result, err)
	}

	if len(movementRows) > 0 {
		payload := erpclient.MovementPayload{
			DocCode: docCode,
			Detail:  t.buildLines(ctx, movementRows),
		}
		result, err := t.erp.SubmitStockMovement(ctx, payload)
		return t.record(ctx, docCode, IoClassMovement, result, err)
	}

	return nil
}

func (t *Tracker) record(ctx context.Context, docCode, ioClass string, result []byte, submitErr error) error {
	if submitErr != nil {
		msg := submitErr.Error()
		if err := t.store.Upsert(ctx, docCode, ioClass, false, result, &msg); err != nil {
			config.LogError(t.logger, "warehouse", "record", docCode, nil, err)
			return err
		}
		return submitErr
	}
	// Success clears any previously recorded error.
	return t.store.Upsert(ctx, docCode, ioClass, true, result, nil)
}

func (t *Tracker) buildLines(ctx context.Context, rows []models.StockTransfer) []erpclient.MovementLine {
	var products map[string]*refdata.Product
	if t.products != nil {
		codes := make([]string, 0, len(rows))
		for _, row := range rows {
			codes = append(codes, row.ItemCode)
		}
		products = t.products.ResolveProducts(ctx, codes)
	}

	lines := make([]erpclient.MovementLine, 0, len(rows))
	for _, row := range rows {
		material := row.ItemCode
		unit := ""
		if product := products[row.ItemCode]; product != nil {
			if product.MaterialCode != "" {
				material = product.MaterialCode
			}
			unit = product.Unit
		}
		movementType := movementTypeOut
		if row.IoType == models.StockIoTypeIn {
			movementType = movementTypeIn
		}
		lines = append(lines, erpclient.MovementLine{
			MaterialCode: material,
			Unit:         unit,
			Quantity:     row.Quantity.Abs(),
			BatchSerial:  row.BatchSerial,
			StockCode:    row.StockCode,
			RelatedStock: row.RelatedStockCode,
			MovementType: movementType,
		})
	}
	return lines
}
