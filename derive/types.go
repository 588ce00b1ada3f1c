package derive

import (
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/refdata"
	"github.com/shopspring/decimal"
)

// Slot is one of the 22 fixed discount slots of the external invoice line
// schema: a label plus an amount.
type Slot struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

func (s Slot) IsZero() bool {
	return s.Amount.IsZero() && s.Label == ""
}

// InvoiceLine is the fully derived accounting line for one sale line.
// Field length caps follow the external schema: material ≤16, unit ≤32,
// warehouse ≤16, department ≤8, batch ≤16, serial ≤64. At most one of
// BatchCode/SerialNumber is ever non-empty.
type InvoiceLine struct {
	RowIndex       int             `json:"row_index"`
	MaterialCode   string          `json:"material_code"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	Revenue        decimal.Decimal `json:"revenue"`
	WarehouseCode  string          `json:"warehouse_code"`
	TaxCode        string          `json:"tax_code"`
	DepartmentCode string          `json:"department_code"`
	BatchCode      string          `json:"batch_code,omitempty"`
	SerialNumber   string          `json:"serial_number,omitempty"`
	IsGift         bool            `json:"is_gift"`

	CK01 Slot `json:"ck01"`
	CK02 Slot `json:"ck02"`
	CK03 Slot `json:"ck03"`
	CK04 Slot `json:"ck04"`
	CK05 Slot `json:"ck05"`
	CK06 Slot `json:"ck06"`
	CK07 Slot `json:"ck07"`
	CK08 Slot `json:"ck08"`
	CK09 Slot `json:"ck09"`
	CK10 Slot `json:"ck10"`
	CK11 Slot `json:"ck11"`
	CK12 Slot `json:"ck12"`
	CK13 Slot `json:"ck13"`
	CK14 Slot `json:"ck14"`
	CK15 Slot `json:"ck15"`
	CK16 Slot `json:"ck16"`
	CK17 Slot `json:"ck17"`
	CK18 Slot `json:"ck18"`
	CK19 Slot `json:"ck19"`
	CK20 Slot `json:"ck20"`
	CK21 Slot `json:"ck21"`
	CK22 Slot `json:"ck22"`
}

// Slots returns the fixed-order slot array, mostly for tests and payload
// assembly.
func (l InvoiceLine) Slots() [22]Slot {
	return [22]Slot{
		l.CK01, l.CK02, l.CK03, l.CK04, l.CK05, l.CK06, l.CK07, l.CK08,
		l.CK09, l.CK10, l.CK11, l.CK12, l.CK13, l.CK14, l.CK15, l.CK16,
		l.CK17, l.CK18, l.CK19, l.CK20, l.CK21, l.CK22,
	}
}

// Input is everything the derivation needs for one line. Product and
// Department are nil when unresolved; defaults apply downstream.
type Input struct {
	Line       models.SaleLine
	Order      models.SaleOrder
	Product    *refdata.Product
	Department *refdata.Department
	Aggregates []models.CashVoucherAggregate
	RowIndex   int
}
