package erpclient

import (
	"github.com/mmdatafocus/retailbridge_backend/derive"
	"github.com/shopspring/decimal"
)

// InvoicePayload is one document for the ERP invoicing endpoint: a header
// plus the derived invoice lines.
type InvoicePayload struct {
	Header InvoiceHeader        `json:"header"`
	Detail []derive.InvoiceLine `json:"detail"`
}

type InvoiceHeader struct {
	AccountingUnit string          `json:"accounting_unit"`
	CustomerCode   string          `json:"customer_code"`
	DocCode        string          `json:"doc_code"`
	DocDate        string          `json:"doc_date"`
	Currency       string          `json:"currency"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	Channel        string          `json:"channel"`
}

// TransferPayload is one grouped stock-transfer document.
type TransferPayload struct {
	DocCode string         `json:"doc_code"`
	Detail  []MovementLine `json:"detail"`
}

// MovementPayload is one stock-movement document (in/out).
type MovementPayload struct {
	DocCode string         `json:"doc_code"`
	Detail  []MovementLine `json:"detail"`
}

type MovementLine struct {
	MaterialCode string          `json:"material_code"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	BatchSerial  string          `json:"batch_serial,omitempty"`
	StockCode    string          `json:"stock_code"`
	RelatedStock string          `json:"related_stock,omitempty"`
	MovementType string          `json:"movement_type"`
}
