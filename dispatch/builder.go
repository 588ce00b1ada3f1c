package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/retailbridge_backend/derive"
	"github.com/mmdatafocus/retailbridge_backend/erpclient"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/refdata"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNoSaleLines marks a structural input failure: a document with zero
// sale lines cannot produce a payload. Fatal for the document, not the
// batch.
var ErrNoSaleLines = errors.New("document has no sale lines")

const (
	payloadCurrency = "VND"
	payloadChannel  = "ONLINE"
)

// PayloadBuilder assembles the full ERP invoice payload for one document:
// load order context, resolve reference data, derive every line.
type PayloadBuilder struct {
	DB       *gorm.DB
	Resolver *refdata.Resolver
}

func NewPayloadBuilder(db *gorm.DB, resolver *refdata.Resolver) *PayloadBuilder {
	return &PayloadBuilder{DB: db, Resolver: resolver}
}

func (b *PayloadBuilder) Build(ctx context.Context, docCode string) (erpclient.InvoicePayload, error) {
	order, err := models.GetSaleOrderByDocCode(ctx, b.DB, docCode)
	if err != nil {
		return erpclient.InvoicePayload{}, err
	}
	lines, err := models.GetSaleLinesByDocCode(ctx, b.DB, docCode)
	if err != nil {
		return erpclient.InvoicePayload{}, err
	}
	if len(lines) == 0 {
		return erpclient.InvoicePayload{}, fmt.Errorf("%w: %s", ErrNoSaleLines, docCode)
	}
	aggregates, err := models.GetCashVoucherAggregates(ctx, b.DB, docCode)
	if err != nil {
		return erpclient.InvoicePayload{}, err
	}

	// Unresolved lines are excluded from lookup waves until re-synced;
	// their derivation runs with nil reference data.
	var codes []string
	for _, line := range lines {
		if line.Resolved {
			codes = append(codes, line.ItemCode)
		}
	}
	products := b.Resolver.ResolveProducts(ctx, codes)
	department := b.Resolver.ResolveDepartment(ctx, order.BranchCode)

	detail := make([]derive.InvoiceLine, 0, len(lines))
	for i, line := range lines {
		var product *refdata.Product
		if line.Resolved {
			product = products[line.ItemCode]
		}
		derived, err := derive.BuildInvoiceLine(derive.Input{
			Line:       line,
			Order:      *order,
			Product:    product,
			Department: department,
			Aggregates: aggregates,
			RowIndex:   i + 1,
		})
		if err != nil {
			return erpclient.InvoicePayload{}, err
		}
		detail = append(detail, derived)
	}

	accountingUnit := ""
	if department != nil {
		accountingUnit = department.CompanyCode
	}

	return erpclient.InvoicePayload{
		Header: erpclient.InvoiceHeader{
			AccountingUnit: accountingUnit,
			CustomerCode:   order.CustomerCode,
			DocCode:        order.DocCode,
			DocDate:        order.DocDate.Format("2006-01-02"),
			Currency:       payloadCurrency,
			ExchangeRate:   decimal.NewFromInt(1),
			Channel:        payloadChannel,
		},
		Detail: detail,
	}, nil
}
