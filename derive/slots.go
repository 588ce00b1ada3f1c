package derive

// Slot assignment. ck05/ck15 are mutually exclusive; ck01 is suppressed on
// gift lines; ck02 carries the gift label; ck03/ck11 labels are
// brand-conditioned. Amounts the feed reported into the reserve slot are
// reclassified at read time when the rule says primary — stored history is
// not mutated.

const (
	promoDiscountLabel = "CK KM"
)

func assignSlots(out *InvoiceLine, in Input, gift bool) {
	line := in.Line
	order := in.Order

	// ck01: purchase-promotion discount, suppressed entirely on gifts.
	if !gift && !line.PromoDiscount.IsZero() {
		out.CK01 = Slot{Label: promoDiscountLabel, Amount: line.PromoDiscount}
	}

	// ck02: gift label re-encoding.
	if gift {
		if label := GiftLabel(order.OrderType, line.PromoCode, order.DocDate); label != "" {
			out.CK02 = Slot{Label: label}
		}
	}

	// ck03: VIP purchase discount.
	if !line.VIPDiscount.IsZero() {
		out.CK03 = Slot{
			Label:  VIPDiscountLabel(order.Brand, in.Product, out.MaterialCode),
			Amount: line.VIPDiscount,
		}
	}

	// ck05 vs ck15: exactly one may carry the voucher payment.
	voucherAmount := line.VoucherPayment.Add(line.ReserveVoucherPayment)
	if !voucherAmount.IsZero() {
		label := ExpandVoucherLabel(order.Brand, line.VoucherLabel)
		if voucherIsPrimary(order, line) {
			out.CK05 = Slot{Label: label, Amount: voucherAmount}
		} else {
			out.CK15 = Slot{Label: label, Amount: voucherAmount}
		}
	}

	// ck11: virtual-account payment, only when an amount is present.
	if va := virtualAccountAmount(in); !va.IsZero() {
		if label := VirtualAccountLabel(order.Brand, order.DocDate); label != "" {
			out.CK11 = Slot{Label: label, Amount: va}
		}
	}

	// ck22 carries whatever discount remains uncategorized by the feed.
	if !line.OtherDiscount.IsZero() {
		out.CK22 = Slot{Label: "CK KHAC", Amount: line.OtherDiscount}
	}
}
