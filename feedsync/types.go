package feedsync

import "encoding/json"

// Raw shapes as the retail feed emits them. Amounts arrive as json.Number
// because the feed is inconsistent about quoting.

type feedOrder struct {
	DocCode      string         `json:"doc_code" validate:"required"`
	DocDate      string         `json:"doc_date" validate:"required"`
	Brand        string         `json:"brand"`
	BranchCode   string         `json:"branch_code"`
	OrderType    string         `json:"order_type"`
	Channel      string         `json:"channel"`
	PackageCode  string         `json:"package_code"`
	CustomerCode string         `json:"customer_code"`
	CustomerName string         `json:"customer_name"`
	Mobile       string         `json:"mobile"`
	Lines        []feedSaleLine `json:"lines"`
}

type feedSaleLine struct {
	ItemCode     string      `json:"item_code"`
	Quantity     json.Number `json:"quantity"`
	UnitPrice    json.Number `json:"unit_price"`
	Revenue      json.Number `json:"revenue"`
	LineTotal    json.Number `json:"line_total"`
	GrossAmount  json.Number `json:"gross_amount"`
	GoodsAmount  json.Number `json:"tien_hang"`
	PromoCode    string      `json:"promo_code"`
	VoucherLabel string      `json:"voucher_label"`
	TaxCode      string      `json:"tax_code"`
	Warehouse    string      `json:"warehouse"`
	Serial       string      `json:"serial"`

	PromoDiscount         json.Number `json:"promo_discount"`
	VIPDiscount           json.Number `json:"vip_discount"`
	VoucherPayment        json.Number `json:"voucher_payment"`
	ReserveVoucherPayment json.Number `json:"reserve_voucher_payment"`
	VirtualAccountPayment json.Number `json:"virtual_account_payment"`
	OtherDiscount         json.Number `json:"other_discount"`
}

type feedCashVoucher struct {
	DocCode     string      `json:"doc_code"`
	PaymentCode string      `json:"payment_code"`
	Amount      json.Number `json:"amount"`
}

type feedStockMovement struct {
	DocCode          string      `json:"doc_code"`
	DocType          string      `json:"doc_type"`
	ItemCode         string      `json:"item_code"`
	IoType           string      `json:"io_type"`
	Quantity         json.Number `json:"quantity"`
	StockCode        string      `json:"stock_code"`
	RelatedStockCode string      `json:"related_stock_code"`
	SOCode           string      `json:"so_code"`
	BatchSerial      string      `json:"batch_serial"`
}

// TriggerSyncRequest is the manual trigger payload.
type TriggerSyncRequest struct {
	Date  string `json:"date" binding:"required" validate:"required"`
	Brand string `json:"brand" binding:"required" validate:"required,oneof=MN VS KA"`
}

// BatchSummary is the partial-success result of one normalization pass.
type BatchSummary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

func (s *BatchSummary) addError(msg string) {
	s.Failed++
	s.Errors = append(s.Errors, msg)
}

type RunPayload struct {
	RunId uint   `json:"run_id"`
	Brand string `json:"brand"`
	Date  string `json:"date"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
