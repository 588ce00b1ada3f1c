package derive

import (
	"strings"
	"time"

	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/refdata"
)

// Product classification and category codes the reference service reports.
const (
	ClassificationGoods   = "HH"
	ClassificationService = "DV"

	CategorySupplement = "TPCN"
	CategoryCosmetic   = "MP"
	CategoryTool       = "DC"
)

const (
	vipLabelGoods   = "CK VIP HB"
	vipLabelService = "CK VIP DV"

	giftLabelInvestment = "DAU TU.TANG SP"
	giftLabelSuffix     = ".TANG SP"
)

// voucherLabelExpansion maps the feed's two-word voucher codes to the
// space-separated forms the ERP expects.
var voucherLabelExpansion = map[string]string{
	"VCHB": "VC HB",
	"VCKM": "VC KM",
	"VCDV": "VC DV",
}

// brandVirtualAccountCode is the brand → accounting code lookup for the
// ck11 virtual-account label.
var brandVirtualAccountCode = map[string]string{
	models.BrandMN: "MN",
	models.BrandVS: "VS",
	models.BrandKA: "KA",
}

// ExpandVoucherLabel rewrites the feed voucher code for the ERP. Brand MN
// labels are compounds of the form "X TT Y" and must pass through verbatim:
// the expansion must never introduce a space around "TT".
func ExpandVoucherLabel(brand, label string) string {
	label = strings.TrimSpace(label)
	if brand == models.BrandMN {
		return label
	}
	if expanded, ok := voucherLabelExpansion[label]; ok {
		return expanded
	}
	return label
}

// VIPDiscountLabel derives the ck03 label. Brand MN uses a fixed two-value
// label keyed by product classification; other brands also consult the
// material-code prefix and the inventory/serial tracking flags.
func VIPDiscountLabel(brand string, product *refdata.Product, materialCode string) string {
	if brand == models.BrandMN {
		if product != nil && product.Classification == ClassificationService {
			return vipLabelService
		}
		return vipLabelGoods
	}
	if product == nil {
		return vipLabelGoods
	}
	if product.Classification == ClassificationService ||
		strings.HasPrefix(materialCode, "DV") ||
		(!product.TrackInventory && !product.TrackSerial) {
		return vipLabelService
	}
	return vipLabelGoods
}

// VirtualAccountLabel builds the ck11 code {yearSuffix}{month}{brandCode}.TKDV
// from the order date and the brand lookup table.
func VirtualAccountLabel(brand string, orderDate time.Time) string {
	code, ok := brandVirtualAccountCode[brand]
	if !ok || orderDate.IsZero() {
		return ""
	}
	return orderDate.Format("0601") + code + ".TKDV"
}

// GiftLabel re-encodes the promotion code for a gift line. Investment orders
// get a fixed literal; the normal-sale order types get
// {yearMonth}{brandSuffix}.TANG SP where the brand suffix is the two
// characters preceding the first "." of the promotion code. When the order
// date is unavailable the legacy digit-scan fallback applies.
func GiftLabel(orderType, promoCode string, orderDate time.Time) string {
	if orderType == models.OrderTypeInvestment {
		return giftLabelInvestment
	}
	if !isGiftReencodeOrderType(orderType) {
		return ""
	}
	suffix := promoBrandSuffix(promoCode)
	if suffix == "" {
		return ""
	}
	if !orderDate.IsZero() {
		return orderDate.Format("0601") + suffix + giftLabelSuffix
	}
	return legacyGiftDiscountLabel(promoCode, suffix)
}

// legacyGiftDiscountLabel is the frozen legacy fallback: it scans the
// promotion code for the literal digit patterns "10" and "5" and maps them
// to "10" and "25". Known-ambiguous; kept for compatibility only.
func legacyGiftDiscountLabel(promoCode, suffix string) string {
	switch {
	case strings.Contains(promoCode, "10"):
		return "10" + suffix + giftLabelSuffix
	case strings.Contains(promoCode, "5"):
		return "25" + suffix + giftLabelSuffix
	default:
		return ""
	}
}

func promoBrandSuffix(promoCode string) string {
	idx := strings.Index(promoCode, ".")
	if idx < 2 {
		return ""
	}
	return promoCode[idx-2 : idx]
}

func isGiftReencodeOrderType(orderType string) bool {
	switch orderType {
	case models.OrderTypeNormal, models.OrderTypeExchange, models.OrderTypeOnline:
		return true
	}
	return false
}

// SelectBatchSerial applies the batch-vs-serial policy: trackBatch wins over
// trackSerial; neither flag leaves both empty. At most one return value is
// non-empty.
func SelectBatchSerial(brand string, product *refdata.Product, serial string) (batchCode, serialNumber string) {
	serial = strings.TrimSpace(serial)
	if product == nil || serial == "" {
		return "", ""
	}
	if product.TrackBatch {
		return BatchFromSerial(brand, product.Category, serial), ""
	}
	if product.TrackSerial {
		return "", serial
	}
	return "", ""
}

// BatchFromSerial derives the batch code from the raw serial string. An
// underscore means "take everything after it"; otherwise the serial is
// truncated per product category, except brand MN which always keeps the
// full serial.
func BatchFromSerial(brand, category, serial string) string {
	if idx := strings.Index(serial, "_"); idx >= 0 {
		return serial[idx+1:]
	}
	if brand == models.BrandMN {
		return serial
	}
	switch category {
	case CategorySupplement:
		return lastN(serial, 8)
	case CategoryCosmetic, CategoryTool:
		return lastN(serial, 4)
	default:
		return lastN(serial, 4)
	}
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
