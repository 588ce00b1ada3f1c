package derive

import (
	"errors"
	"unicode/utf8"

	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/shopspring/decimal"
)

// The engine is deterministic and side-effect free: (sale line, order
// context, reference data) in, invoice line out. All I/O happens before.

const (
	warehousePrefixService = "L"
	warehousePrefixGoods   = "B"

	// Department MSO1 is the single documented exception: its warehouse
	// code is fixed regardless of the derived prefix.
	departmentCodeMSO1 = "MSO1"
	warehouseCodeMSO1  = "BMSO1"

	defaultTaxCode = "10"

	maxMaterialCodeLen   = 16
	maxUnitLen           = 32
	maxWarehouseCodeLen  = 16
	maxDepartmentCodeLen = 8
	maxBatchCodeLen      = 16
	maxSerialNumberLen   = 64
)

// amountEpsilon absorbs float noise the feed carries on nominally-zero
// amounts.
var amountEpsilon = decimal.RequireFromString("0.001")

var ErrRowIndex = errors.New("row index must be 1-based")

func isServiceOrderType(orderType string) bool {
	switch orderType {
	case models.OrderTypeService, models.OrderTypeServicePackage:
		return true
	}
	return false
}

func isGoodsOrderType(orderType string) bool {
	switch orderType {
	case models.OrderTypeNormal, models.OrderTypeExchange, models.OrderTypeOnline, models.OrderTypeInvestment:
		return true
	}
	return false
}

func nearZero(v decimal.Decimal) bool {
	return v.Abs().LessThan(amountEpsilon)
}

// GrossAmount resolves the pre-discount line amount. Precedence:
//  1. explicit gross field
//  2. line total
//  3. goods amount
//  4. reconstruction: net revenue + sum of all discount components
func GrossAmount(line models.SaleLine) decimal.Decimal {
	return firstNonZero(
		line.GrossAmount,
		line.LineTotal,
		line.GoodsAmount,
		line.Revenue.Add(line.DiscountSum()),
	)
}

// UnitPrice is gross/quantity when quantity is positive, else the explicit
// unit price from the feed.
func UnitPrice(line models.SaleLine, gross decimal.Decimal) decimal.Decimal {
	if line.Quantity.IsPositive() {
		return gross.Div(line.Quantity)
	}
	return line.UnitPrice
}

// IsGift classifies a line as free/promotional goods: unit price and gross
// amount both zero. Service order types are never gifts regardless of
// amount.
func IsGift(orderType string, unitPrice, gross decimal.Decimal) bool {
	if isServiceOrderType(orderType) {
		return false
	}
	return nearZero(unitPrice) && nearZero(gross)
}

// DeriveWarehouseCode maps the order type to a one-letter prefix and joins
// it with the department code. Unrecognized order types yield no derived
// code.
func DeriveWarehouseCode(orderType, departmentCode string) string {
	if departmentCode == departmentCodeMSO1 {
		return warehouseCodeMSO1
	}
	var prefix string
	switch {
	case isServiceOrderType(orderType):
		prefix = warehousePrefixService
	case isGoodsOrderType(orderType):
		prefix = warehousePrefixGoods
	default:
		return ""
	}
	if departmentCode == "" {
		return ""
	}
	return prefix + departmentCode
}

// voucherIsPrimary decides between the primary (ck05) and reserve (ck15)
// voucher slots. Marketplace channel always classifies primary; other
// channels classify primary when a promotion code is present without a
// package code. Brand MN reduces to the channel check alone.
func voucherIsPrimary(order models.SaleOrder, line models.SaleLine) bool {
	channelPrimary := order.Channel == models.ChannelMarketplace
	if order.Brand == models.BrandMN {
		return channelPrimary
	}
	return channelPrimary || (line.PromoCode != "" && order.PackageCode == "")
}

// virtualAccountAmount resolves the ck11 amount: the line-level figure when
// present, else the document's virtual-account aggregate, attributed to the
// first row only so the document total is not multiplied per line.
func virtualAccountAmount(in Input) decimal.Decimal {
	if !in.Line.VirtualAccountPayment.IsZero() {
		return in.Line.VirtualAccountPayment
	}
	if in.RowIndex != 1 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, agg := range in.Aggregates {
		if agg.PaymentCode == models.PaymentSystemVirtualAccount {
			total = total.Add(agg.Amount)
		}
	}
	return total
}

// BuildInvoiceLine derives the full invoice line for one sale line.
func BuildInvoiceLine(in Input) (InvoiceLine, error) {
	if in.RowIndex < 1 {
		return InvoiceLine{}, ErrRowIndex
	}

	gross := GrossAmount(in.Line)
	unitPrice := UnitPrice(in.Line, gross)
	gift := IsGift(in.Order.OrderType, unitPrice, gross)

	departmentCode := ""
	if in.Department != nil {
		departmentCode = in.Department.Code
	}
	departmentCode = firstNonEmpty(departmentCode, in.Order.BranchCode)

	materialCode := in.Line.ItemCode
	unit := ""
	if in.Product != nil {
		materialCode = firstNonEmpty(in.Product.MaterialCode, in.Line.ItemCode)
		unit = in.Product.Unit
	}

	batchCode, serialNumber := SelectBatchSerial(in.Order.Brand, in.Product, in.Line.Serial)

	out := InvoiceLine{
		RowIndex:       in.RowIndex,
		MaterialCode:   truncate(materialCode, maxMaterialCodeLen),
		Unit:           truncate(unit, maxUnitLen),
		Quantity:       in.Line.Quantity,
		UnitPrice:      unitPrice,
		GrossAmount:    gross,
		Revenue:        in.Line.Revenue,
		TaxCode:        firstNonEmpty(in.Line.TaxCode, defaultTaxCode),
		DepartmentCode: truncate(departmentCode, maxDepartmentCodeLen),
		BatchCode:      truncate(batchCode, maxBatchCodeLen),
		SerialNumber:   truncate(serialNumber, maxSerialNumberLen),
		IsGift:         gift,
	}

	derivedWarehouse := DeriveWarehouseCode(in.Order.OrderType, departmentCode)
	out.WarehouseCode = truncate(firstNonEmpty(derivedWarehouse, in.Line.WarehouseCode), maxWarehouseCodeLen)

	assignSlots(&out, in, gift)
	return out, nil
}

// truncate caps s at max bytes (the external schema caps are byte caps),
// backing off to the previous rune boundary so a multi-byte character is
// never split mid-sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
