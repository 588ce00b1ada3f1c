package models

// Brand codes as the retail feed reports them. BrandMN carries most of the
// brand-conditioned derivation exceptions.
const (
	BrandMN = "MN"
	BrandVS = "VS"
	BrandKA = "KA"
)

// Sales channel indicator on an order. ChannelMarketplace marks orders that
// came through the external marketplace integration.
const (
	ChannelStore       = "STORE"
	ChannelMarketplace = "ECOM"
)

// Order type names as emitted by the feed. These are business labels, not
// enums, on the wire; membership lists below drive derivation.
const (
	OrderTypeNormal         = "01.Thường"
	OrderTypeExchange       = "02.Đổi hàng"
	OrderTypeOnline         = "03.Online"
	OrderTypeService        = "04.Dịch vụ"
	OrderTypeServicePackage = "05.Gói dịch vụ"
	OrderTypeInvestment     = "06.Đầu tư"
)

const (
	DispatchStatusUnsent  = "unsent"
	DispatchStatusSuccess = "success"
	DispatchStatusFailed  = "failed"
)

// Stock movement document types and io directions.
const (
	StockDocTypeTransfer = "TRANSFER"
	StockDocTypeStockIO  = "STOCK_IO"

	StockIoTypeIn  = "I"
	StockIoTypeOut = "O"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)

// PaymentSystemVirtualAccount tags cash/voucher aggregate rows that settle
// through the virtual-account payment system.
const PaymentSystemVirtualAccount = "TKDV"
